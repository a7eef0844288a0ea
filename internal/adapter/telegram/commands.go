package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/escalopa/kid-reader-bot/internal/application"
	"github.com/escalopa/kid-reader-bot/internal/domain"
)

// learner is the Telegram user an update came from
type learner struct {
	id   string
	lang domain.Language
}

type CommandHandler func(ctx context.Context, msg *tgbotapi.Message, who learner)

// registerCommands registers all bot commands
func (b *Bot) registerCommands() {
	b.commands = map[string]CommandHandler{
		"start":    b.commandStart,
		"help":     b.commandHelp,
		"language": b.commandLanguage,
		"stories":  b.commandStories,
		"read":     b.commandRead,
		"progress": b.commandProgress,
		"reset":    b.commandReset,
		"clearall": b.commandClearAll,
	}

	// Set bot commands for Telegram UI
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "stories", Description: "Choose a story"},
		{Command: "read", Description: "Continue reading"},
		{Command: "progress", Description: "Show reading progress"},
		{Command: "reset", Description: "Start the current story again"},
		{Command: "clearall", Description: "Delete all progress"},
		{Command: "language", Description: "Change language"},
		{Command: "help", Description: "Show help"},
	}

	cmdConfig := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cmdConfig); err != nil {
		b.log.Warn("set bot commands", "error", err)
	}
}

func (b *Bot) commandStart(ctx context.Context, msg *tgbotapi.Message, who learner) {
	if err := b.service.HandleStart(ctx, who.id, who.lang); err != nil {
		b.log.Error("handle start", "user", who.id, "error", err)
		b.sendMessage(msg.Chat.ID, b.i18n.Get(who.lang, "error.generic"))
		return
	}

	b.sendMessage(msg.Chat.ID, b.i18n.Get(who.lang, "welcome.message"))
	b.sendStories(ctx, msg.Chat.ID, who.id, who.lang)
}

func (b *Bot) commandHelp(_ context.Context, msg *tgbotapi.Message, who learner) {
	b.sendMessage(msg.Chat.ID, b.i18n.Get(who.lang, "help.message"))
}

func (b *Bot) commandLanguage(_ context.Context, msg *tgbotapi.Message, who learner) {
	b.sendLanguageSelection(msg.Chat.ID, who.lang)
}

func (b *Bot) commandStories(ctx context.Context, msg *tgbotapi.Message, who learner) {
	b.sendStories(ctx, msg.Chat.ID, who.id, who.lang)
}

// commandRead opens the story named in the arguments or resumes the open one
func (b *Bot) commandRead(ctx context.Context, msg *tgbotapi.Message, who learner) {
	var (
		view application.PageView
		err  error
	)
	if storyID := strings.TrimSpace(msg.CommandArguments()); storyID != "" {
		view, err = b.service.OpenStory(ctx, who.id, storyID)
	} else {
		view, err = b.service.CurrentPage(ctx, who.id)
	}

	if errors.Is(err, domain.ErrNoSession) {
		b.sendStories(ctx, msg.Chat.ID, who.id, who.lang)
		return
	}
	if err != nil {
		b.sendMessage(msg.Chat.ID, b.errorText(who.lang, who.id, err))
		return
	}
	b.sendPage(msg.Chat.ID, who.lang, view)
}

func (b *Bot) commandProgress(ctx context.Context, msg *tgbotapi.Message, who learner) {
	d := b.service.Dashboard(ctx, who.id)
	b.sendWithKeyboard(msg.Chat.ID, renderDashboard(b.i18n, who.lang, d), dashboardKeyboard(b.i18n, who.lang, d))
}

// commandReset starts the open story over from its first page
func (b *Bot) commandReset(ctx context.Context, msg *tgbotapi.Message, who learner) {
	view, err := b.service.RestartStory(ctx, who.id)
	if err != nil {
		b.sendMessage(msg.Chat.ID, b.errorText(who.lang, who.id, err))
		return
	}
	b.sendMessage(msg.Chat.ID, b.i18n.Get(who.lang, "reset.done"))
	b.sendPage(msg.Chat.ID, who.lang, view)
}

func (b *Bot) commandClearAll(_ context.Context, msg *tgbotapi.Message, who learner) {
	b.sendWithKeyboard(msg.Chat.ID, b.i18n.Get(who.lang, "clear.all_confirm"), confirmKeyboard(b.i18n, who.lang, "clearall"))
}
