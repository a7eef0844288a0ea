package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/escalopa/kid-reader-bot/internal/application"
	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/stats"
)

const (
	storiesPerPage   = 6
	categoriesInRow  = 3
	hearButtonsInRow = 4
	preAdvanceStep   = 50
)

// progressSteps stand in for the continuous slider of a touch screen
var progressSteps = []int{25, 50, 75, 100}

var statusMarkers = map[domain.WordStatus]string{
	domain.WordCompleted: "✅",
	domain.WordActive:    "🔵",
	domain.WordCurrent:   "👉",
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, text)
}

// renderPage builds the highlighted page text
func renderPage(tr domain.I18nPort, lang domain.Language, view application.PageView) string {
	var text strings.Builder
	text.WriteString(tr.Get(lang, "page.header", escape(view.Story.Title), view.PageIndex+1, view.PageCount))
	text.WriteString("\n\n")

	words := make([]string, 0, len(view.Words))
	for _, w := range view.Words {
		word := escape(w.Text)
		switch w.Status {
		case domain.WordActive, domain.WordCurrent:
			word = fmt.Sprintf("%s <u><b>%s</b></u>", statusMarkers[w.Status], word)
		case domain.WordCompleted:
			word = fmt.Sprintf("<b>%s</b>", word)
		}
		words = append(words, word)
	}
	text.WriteString(strings.Join(words, " "))
	text.WriteString("\n\n")

	switch {
	case view.Finished:
		text.WriteString(tr.Get(lang, "page.story_finished"))
	case view.PageComplete:
		text.WriteString(tr.Get(lang, "page.complete"))
	default:
		active := view.Words[view.ActiveWord]
		text.WriteString(tr.Get(lang, "word.progress", escape(active.Text), active.Progress))
		text.WriteString("\n")
		text.WriteString(tr.Get(lang, "page.hint"))
	}
	return text.String()
}

// pageKeyboard offers progress steps for the current word, a head start on
// the next word, playback of completed words and page navigation
func pageKeyboard(tr domain.I18nPort, lang domain.Language, view application.PageView) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if !view.PageComplete {
		active := view.Words[view.ActiveWord]
		var steps []tgbotapi.InlineKeyboardButton
		for _, step := range progressSteps {
			label := fmt.Sprintf("%d%%", step)
			if step == 100 {
				label = "✅ " + label
			}
			steps = append(steps, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("wp:%d:%d", active.Index, step)))
		}
		rows = append(rows, steps)

		if next := view.ActiveWord + 1; next < len(view.Words) {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					tr.Get(lang, "button.next_word", view.Words[next].Text),
					fmt.Sprintf("wp:%d:%d", next, preAdvanceStep),
				),
			))
		}
	}

	var hear []tgbotapi.InlineKeyboardButton
	for _, w := range view.Words {
		if w.Status != domain.WordCompleted {
			continue
		}
		hear = append(hear, tgbotapi.NewInlineKeyboardButtonData("🔊 "+w.Text, fmt.Sprintf("say:%d", w.Index)))
		if len(hear) == hearButtonsInRow {
			rows = append(rows, hear)
			hear = nil
		}
	}
	if len(hear) > 0 {
		rows = append(rows, hear)
	}

	var navRow []tgbotapi.InlineKeyboardButton
	if view.PageIndex > 0 {
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData("⬅️ "+tr.Get(lang, "nav.prev"), "nav:prev"))
	}
	switch {
	case view.Finished:
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData("🎉 "+tr.Get(lang, "nav.finish"), "dash"))
	case view.PageComplete && !view.LastPage:
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(tr.Get(lang, "nav.next")+" ➡️", "nav:next"))
	}
	if len(navRow) > 0 {
		rows = append(rows, navRow)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📚 "+tr.Get(lang, "nav.stories"), "spage:0"),
		tgbotapi.NewInlineKeyboardButtonData("📊 "+tr.Get(lang, "nav.progress"), "dash"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// storyKeyboard lists stories with their completion, filtered by category
// and paginated. An empty category shows every story.
func storyKeyboard(tr domain.I18nPort, lang domain.Language, stories []stats.StoryStats, categories []string, category string, page int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var filterRow []tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		label := c
		if c == category {
			label = "• " + c
		}
		filterRow = append(filterRow, tgbotapi.NewInlineKeyboardButtonData(label, "cat:"+c))
		if len(filterRow) == categoriesInRow {
			rows = append(rows, filterRow)
			filterRow = nil
		}
	}
	if len(filterRow) > 0 {
		rows = append(rows, filterRow)
	}

	totalPages := (len(stories) + storiesPerPage - 1) / storiesPerPage

	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}

	start := page * storiesPerPage
	end := min(start+storiesPerPage, len(stories))

	for i := start; i < end; i++ {
		s := stories[i]
		label := s.Story.Title
		switch {
		case s.Completed:
			label += " ✅"
		case s.Percent > 0:
			label += fmt.Sprintf(" · %d%%", s.Percent)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "story:"+s.Story.ID),
		))
	}

	if totalPages > 1 {
		var navRow []tgbotapi.InlineKeyboardButton
		if page > 0 {
			navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData("⬅️ "+tr.Get(lang, "nav.prev"), storyPageData(page-1, category)))
		}
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", page+1, totalPages), "noop"))
		if page < totalPages-1 {
			navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(tr.Get(lang, "nav.next")+" ➡️", storyPageData(page+1, category)))
		}
		rows = append(rows, navRow)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func storyPageData(page int, category string) string {
	if category == "" {
		return fmt.Sprintf("spage:%d", page)
	}
	return fmt.Sprintf("spage:%d:%s", page, category)
}

// parseStoryPage reads "spage:<page>[:<category>]"
func parseStoryPage(data string) (page int, category string) {
	num, category, _ := strings.Cut(strings.TrimPrefix(data, "spage:"), ":")
	page, _ = strconv.Atoi(num)
	return page, category
}

// renderDashboard formats the progress overview
func renderDashboard(tr domain.I18nPort, lang domain.Language, d application.Dashboard) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("<b>%s</b>\n\n", tr.Get(lang, "dashboard.title")))
	text.WriteString(tr.Get(lang, "dashboard.summary",
		d.Summary.TotalStories,
		d.Summary.StartedStories,
		d.Summary.CompletedStories,
		d.Summary.TotalPagesRead,
		d.Summary.AverageProgress,
	))
	text.WriteString("\n")

	started := 0
	for _, s := range d.Stories {
		if !s.Started {
			continue
		}
		if started == 0 {
			text.WriteString("\n")
		}
		started++
		text.WriteString(tr.Get(lang, "dashboard.story_line",
			escape(s.Story.Title),
			s.Percent,
			formatRecency(tr, lang, stats.RecencyOf(s.LastReadAt, d.Now)),
		))
		text.WriteString("\n")
	}
	if started == 0 {
		text.WriteString("\n" + tr.Get(lang, "dashboard.empty") + "\n")
	}

	if d.Summary.LastReadStory != "" {
		title := d.Summary.LastReadStory
		for _, s := range d.Stories {
			if s.Story.ID == d.Summary.LastReadStory {
				title = s.Story.Title
				break
			}
		}
		text.WriteString("\n")
		text.WriteString(tr.Get(lang, "dashboard.last_read",
			escape(title),
			formatRecency(tr, lang, stats.RecencyOf(d.Summary.LastReadAt, d.Now)),
		))
	}
	return text.String()
}

func dashboardKeyboard(tr domain.I18nPort, lang domain.Language, d application.Dashboard) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 "+tr.Get(lang, "nav.stories"), "spage:0"),
			tgbotapi.NewInlineKeyboardButtonData("📖 "+tr.Get(lang, "nav.continue"), "read"),
		),
	}
	for _, s := range d.Stories {
		if !s.Started {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+tr.Get(lang, "clear.story_button", s.Story.Title), "clear:"+s.Story.ID),
		))
	}
	if d.Summary.StartedStories > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+tr.Get(lang, "clear.all_button"), "clearall"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(tr domain.I18nPort, lang domain.Language, action string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+tr.Get(lang, "button.yes"), action+":yes"),
			tgbotapi.NewInlineKeyboardButtonData("❌ "+tr.Get(lang, "button.no"), action+":no"),
		),
	)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", "lang:en"),
			tgbotapi.NewInlineKeyboardButtonData("🇸🇦 العربية", "lang:ar"),
			tgbotapi.NewInlineKeyboardButtonData("🇷🇺 Русский", "lang:ru"),
		),
	)
}

func formatRecency(tr domain.I18nPort, lang domain.Language, r stats.Recency) string {
	switch r.Kind {
	case stats.RecencyToday:
		return tr.Get(lang, "recency.today")
	case stats.RecencyYesterday:
		return tr.Get(lang, "recency.yesterday")
	case stats.RecencyDaysAgo:
		return tr.Get(lang, "recency.days_ago", r.Days)
	case stats.RecencyDate:
		return r.Date.Format("2006-01-02")
	default:
		return tr.Get(lang, "recency.never")
	}
}
