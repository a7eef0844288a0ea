package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/escalopa/kid-reader-bot/internal/adapter/catalog"
	"github.com/escalopa/kid-reader-bot/internal/adapter/i18n"
	"github.com/escalopa/kid-reader-bot/internal/adapter/redis"
	"github.com/escalopa/kid-reader-bot/internal/adapter/speech"
	"github.com/escalopa/kid-reader-bot/internal/adapter/telegram"
	"github.com/escalopa/kid-reader-bot/internal/app"
	"github.com/escalopa/kid-reader-bot/internal/application"
	"github.com/escalopa/kid-reader-bot/internal/config"
	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	log.Info("configuration loaded", "path", configPath)

	i18nService, err := i18n.NewI18n(cfg.App.LocalesDir)
	if err != nil {
		return err
	}
	for _, lang := range i18n.Languages {
		if missing := i18nService.Missing(lang); len(missing) > 0 {
			log.Warn("locale is incomplete", "language", lang, "missing", missing)
		}
	}
	log.Info("i18n initialized", "dir", cfg.App.LocalesDir)

	stories, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "stories", len(stories.All()))

	client, err := redis.Connect(cfg.Redis.URI)
	if err != nil {
		return err
	}
	defer client.Close()
	fsm := redis.NewFSM(client)
	log.Info("redis FSM connected")

	storage, err := app.OpenStorage(log, cfg, client)
	if err != nil {
		return err
	}
	defer storage.Close()

	var speechPort domain.SpeechPort
	if cfg.Speech.BaseURL != "" {
		speechPort = speech.NewClient(cfg.Speech.BaseURL, cfg.Speech.APIKey, cfg.Speech.Voice)
		log.Info("speech client initialized", "base_url", cfg.Speech.BaseURL)
	} else {
		log.Info("speech disabled")
	}

	service := application.NewReaderService(stories, fsm, storage.Stores(), speechPort, log)
	service.SetDefaultLanguage(domain.Language(cfg.App.DefaultLanguage))

	bot, err := telegram.NewBot(cfg.Telegram.Token, service, i18nService, log)
	if err != nil {
		return err
	}
	log.Info("telegram bot initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go service.RunEviction(ctx, cfg.App.SessionIdle/2, cfg.App.SessionIdle)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting bot")
		if err := bot.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Info("received shutdown signal, stopping bot")
		cancel()
		if err := bot.Stop(); err != nil {
			log.Error("stop bot", "error", err)
		}
	case err := <-errChan:
		log.Error("bot error", "error", err)
		return err
	}

	log.Info("bot stopped")
	return nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.App.CatalogPath == "" {
		return catalog.Default(cfg.App.WordsPerPage)
	}
	return catalog.Load(cfg.App.CatalogPath, cfg.App.WordsPerPage)
}
