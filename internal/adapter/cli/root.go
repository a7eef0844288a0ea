// Package cli is the readerctl admin command line: it inspects and clears
// stored reading progress without going through the bot.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/escalopa/kid-reader-bot/internal/adapter/catalog"
	"github.com/escalopa/kid-reader-bot/internal/app"
	"github.com/escalopa/kid-reader-bot/internal/config"
	"github.com/escalopa/kid-reader-bot/internal/logger"
)

// environment is what every subcommand works against
type environment struct {
	storage *app.Storage
	stories *catalog.Catalog
	log     *logger.Logger
}

var (
	configPath string
	learnerID  string

	env             *environment
	openEnvironment = loadEnvironment
)

var rootCmd = &cobra.Command{
	Use:           "readerctl",
	Short:         "Inspect and manage kid reader progress",
	Long:          `Reads the same configuration as the bot and works directly on the stored progress collections.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnvironment(configPath)
		if err != nil {
			return err
		}
		env = e
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if env == nil {
			return nil
		}
		err := env.storage.Close()
		env = nil
		return err
	},
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&learnerID, "learner", "l", "", "Learner (Telegram user) id; empty selects the shared collection")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func loadEnvironment(path string) (*environment, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var stories *catalog.Catalog
	if cfg.App.CatalogPath == "" {
		stories, err = catalog.Default(cfg.App.WordsPerPage)
	} else {
		stories, err = catalog.Load(cfg.App.CatalogPath, cfg.App.WordsPerPage)
	}
	if err != nil {
		return nil, err
	}

	storage, err := app.OpenStorage(log, cfg, nil)
	if err != nil {
		return nil, err
	}

	return &environment{storage: storage, stories: stories, log: log}, nil
}
