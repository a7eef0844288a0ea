package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/escalopa/kid-reader-bot/internal/application"
	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/engine"
	"github.com/escalopa/kid-reader-bot/internal/logger"
	"github.com/escalopa/kid-reader-bot/internal/stats"
)

var _ domain.BotPort = (*Bot)(nil)

// Translator is the locale source of the bot
type Translator interface {
	domain.I18nPort
	Supports(lang domain.Language) bool
}

type Bot struct {
	api      *tgbotapi.BotAPI
	service  *application.ReaderService
	i18n     Translator
	log      *logger.Logger
	commands map[string]CommandHandler
	cancel   context.CancelFunc
}

func NewBot(token string, service *application.ReaderService, i18n Translator, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		api:      api,
		service:  service,
		i18n:     i18n,
		log:      log,
		commands: make(map[string]CommandHandler),
	}

	bot.registerCommands()

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.log.Info("authorized", "account", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	userID := b.getUserID(update)
	if userID == "" {
		return
	}

	who := learner{id: userID, lang: b.service.GetUserLanguage(ctx, userID)}

	if update.Message != nil && update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message, who)
		return
	}

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery, who)
		return
	}

	// Typed numbers set the progress of the current word
	if update.Message != nil && update.Message.Text != "" {
		b.handleText(ctx, update.Message, who.id, who.lang)
		return
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, who learner) {
	handler, exists := b.commands[msg.Command()]
	if !exists {
		b.sendMessage(msg.Chat.ID, b.i18n.Get(who.lang, "error.unknown_command"))
		return
	}

	handler(ctx, msg, who)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, who learner) {
	if callback.Message == nil {
		return
	}

	notice := b.dispatchCallback(ctx, callback.Message, who.id, who.lang, callback.Data)
	b.answerCallback(callback.ID, notice)
}

// dispatchCallback routes a button press and returns an optional alert text
func (b *Bot) dispatchCallback(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, data string) string {
	switch {
	case data == "noop":
		return ""

	case strings.HasPrefix(data, "lang:"):
		newLang := domain.Language(strings.TrimPrefix(data, "lang:"))
		if !b.i18n.Supports(newLang) {
			return b.i18n.Get(lang, "error.generic")
		}
		if err := b.service.HandleStart(ctx, userID, newLang); err != nil {
			b.log.Error("set language", "user", userID, "error", err)
			return b.i18n.Get(lang, "error.generic")
		}
		b.editMessage(msg, b.i18n.Get(newLang, "language.changed"), nil)
		b.sendStories(ctx, msg.Chat.ID, userID, newLang)
		return ""

	case strings.HasPrefix(data, "spage:"):
		page, category := parseStoryPage(data)
		keyboard := b.storyKeyboard(ctx, userID, lang, category, page)
		b.editMessage(msg, b.i18n.Get(lang, "stories.select"), &keyboard)
		return ""

	case strings.HasPrefix(data, "cat:"):
		keyboard := b.storyKeyboard(ctx, userID, lang, strings.TrimPrefix(data, "cat:"), 0)
		b.editMessage(msg, b.i18n.Get(lang, "stories.select"), &keyboard)
		return ""

	case strings.HasPrefix(data, "story:"):
		view, err := b.service.OpenStory(ctx, userID, strings.TrimPrefix(data, "story:"))
		if err != nil {
			return b.errorText(lang, userID, err)
		}
		b.editPage(msg, lang, view)
		return ""

	case strings.HasPrefix(data, "wp:"):
		index, value, ok := parseWordProgress(data)
		if !ok {
			return b.i18n.Get(lang, "error.generic")
		}
		view, err := b.service.SetWordProgress(ctx, userID, index, value)
		if err != nil {
			return b.errorText(lang, userID, err)
		}
		b.editPage(msg, lang, view)
		return ""

	case data == "nav:next" || data == "nav:prev":
		move := b.service.NextPage
		if data == "nav:prev" {
			move = b.service.PrevPage
		}
		view, err := move(ctx, userID)
		if err != nil {
			return b.errorText(lang, userID, err)
		}
		b.editPage(msg, lang, view)
		return ""

	case data == "read":
		view, err := b.service.CurrentPage(ctx, userID)
		if err != nil {
			return b.errorText(lang, userID, err)
		}
		b.editPage(msg, lang, view)
		return ""

	case strings.HasPrefix(data, "say:"):
		index, err := strconv.Atoi(strings.TrimPrefix(data, "say:"))
		if err != nil {
			return b.i18n.Get(lang, "error.generic")
		}
		word, err := b.service.WordAt(ctx, userID, index)
		if err != nil {
			return b.errorText(lang, userID, err)
		}
		if err := b.sendSpeech(ctx, msg.Chat.ID, word); err != nil {
			return b.errorText(lang, userID, err)
		}
		return ""

	case data == "dash":
		d := b.service.Dashboard(ctx, userID)
		keyboard := dashboardKeyboard(b.i18n, lang, d)
		b.editMessage(msg, renderDashboard(b.i18n, lang, d), &keyboard)
		return ""

	case data == "clearall":
		keyboard := confirmKeyboard(b.i18n, lang, "clearall")
		b.editMessage(msg, b.i18n.Get(lang, "clear.all_confirm"), &keyboard)
		return ""

	case data == "clearall:yes":
		if err := b.service.ClearAll(ctx, userID); err != nil {
			return b.errorText(lang, userID, err)
		}
		b.editMessage(msg, b.i18n.Get(lang, "clear.all_done"), nil)
		b.sendStories(ctx, msg.Chat.ID, userID, lang)
		return ""

	case strings.HasPrefix(data, "clear:"):
		return b.handleClearStory(ctx, msg, userID, lang, strings.TrimPrefix(data, "clear:"))

	case strings.HasSuffix(data, ":no"):
		d := b.service.Dashboard(ctx, userID)
		keyboard := dashboardKeyboard(b.i18n, lang, d)
		b.editMessage(msg, b.i18n.Get(lang, "clear.cancelled")+"\n\n"+renderDashboard(b.i18n, lang, d), &keyboard)
		return ""
	}

	b.log.Debug("unhandled callback", "user", userID, "data", data)
	return ""
}

// handleClearStory asks for confirmation first, then clears on "<id>:yes"
func (b *Bot) handleClearStory(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, arg string) string {
	storyID, answer, answered := strings.Cut(arg, ":")

	story, err := b.findStory(storyID)
	if err != nil {
		return b.errorText(lang, userID, err)
	}

	if !answered {
		keyboard := confirmKeyboard(b.i18n, lang, "clear:"+storyID)
		b.editMessage(msg, b.i18n.Get(lang, "clear.story_confirm", escape(story.Title)), &keyboard)
		return ""
	}

	d := b.service.Dashboard(ctx, userID)
	text := b.i18n.Get(lang, "clear.cancelled")
	if answer == "yes" {
		if err := b.service.ClearStory(ctx, userID, storyID); err != nil {
			return b.errorText(lang, userID, err)
		}
		d = b.service.Dashboard(ctx, userID)
		text = b.i18n.Get(lang, "clear.story_done", escape(story.Title))
	}
	keyboard := dashboardKeyboard(b.i18n, lang, d)
	b.editMessage(msg, text+"\n\n"+renderDashboard(b.i18n, lang, d), &keyboard)
	return ""
}

func (b *Bot) findStory(storyID string) (domain.Story, error) {
	for _, s := range b.service.Stories() {
		if s.ID == storyID {
			return s, nil
		}
	}
	return domain.Story{}, fmt.Errorf("%s: %w", storyID, domain.ErrStoryNotFound)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	chatID := msg.Chat.ID

	state, err := b.service.GetCurrentState(ctx, userID)
	if err != nil {
		b.log.Error("get state", "user", userID, "error", err)
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	if state != domain.StateReading {
		b.sendMessage(chatID, b.i18n.Get(lang, "help.message"))
		return
	}

	value, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(msg.Text), "%"))
	if err != nil || value < engine.MinProgress || value > engine.MaxProgress {
		b.sendMessage(chatID, b.i18n.Get(lang, "error.invalid_progress"))
		return
	}

	view, err := b.service.SetActiveWordProgress(ctx, userID, value)
	if err != nil {
		b.sendMessage(chatID, b.errorText(lang, userID, err))
		return
	}
	b.sendPage(chatID, lang, view)
}

// errorText maps a service error to a learner facing message
func (b *Bot) errorText(lang domain.Language, userID string, err error) string {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return b.i18n.Get(lang, "error.no_session")
	case errors.Is(err, domain.ErrStoryNotFound):
		return b.i18n.Get(lang, "error.story_not_found")
	case errors.Is(err, application.ErrSpeechDisabled):
		return b.i18n.Get(lang, "error.speech_disabled")
	case errors.Is(err, errSpeechDelivery):
		b.log.Warn("speech failed", "user", userID, "error", err)
		return b.i18n.Get(lang, "error.speech_failed")
	}
	b.log.Error("request failed", "user", userID, "error", err)
	return b.i18n.Get(lang, "error.generic")
}

func parseWordProgress(data string) (index, value int, ok bool) {
	idx, val, found := strings.Cut(strings.TrimPrefix(data, "wp:"), ":")
	if !found {
		return 0, 0, false
	}
	index, err := strconv.Atoi(idx)
	if err != nil {
		return 0, 0, false
	}
	value, err = strconv.Atoi(val)
	if err != nil {
		return 0, 0, false
	}
	return index, value, true
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat", chatID, "error", err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat", chatID, "error", err)
	}
}

func (b *Bot) sendLanguageSelection(chatID int64, currentLang domain.Language) {
	b.sendWithKeyboard(chatID, b.i18n.Get(currentLang, "language.select"), languageKeyboard())
}

func (b *Bot) sendStories(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	b.sendWithKeyboard(chatID, b.i18n.Get(lang, "stories.select"), b.storyKeyboard(ctx, userID, lang, "", 0))
}

// storyKeyboard pairs the learner's per-story stats with the stories of category
func (b *Bot) storyKeyboard(ctx context.Context, userID string, lang domain.Language, category string, page int) tgbotapi.InlineKeyboardMarkup {
	inCategory := make(map[string]bool)
	for _, s := range b.service.StoriesIn(category) {
		inCategory[s.ID] = true
	}

	d := b.service.Dashboard(ctx, userID)
	list := make([]stats.StoryStats, 0, len(d.Stories))
	for _, s := range d.Stories {
		if inCategory[s.Story.ID] {
			list = append(list, s)
		}
	}
	return storyKeyboard(b.i18n, lang, list, b.service.Categories(), category, page)
}

func (b *Bot) sendPage(chatID int64, lang domain.Language, view application.PageView) {
	b.sendWithKeyboard(chatID, renderPage(b.i18n, lang, view), pageKeyboard(b.i18n, lang, view))
}

func (b *Bot) editPage(msg *tgbotapi.Message, lang domain.Language, view application.PageView) {
	keyboard := pageKeyboard(b.i18n, lang, view)
	b.editMessage(msg, renderPage(b.i18n, lang, view), &keyboard)
}

func (b *Bot) editMessage(msg *tgbotapi.Message, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		// Pressing the same step twice leaves the page unchanged
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.log.Error("edit message", "chat", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, "")
	if text != "" {
		callback = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := b.api.Request(callback); err != nil {
		b.log.Warn("answer callback", "error", err)
	}
}

func (b *Bot) getUserID(update tgbotapi.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return strconv.FormatInt(update.Message.From.ID, 10)
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return strconv.FormatInt(update.CallbackQuery.From.ID, 10)
	}
	return ""
}
