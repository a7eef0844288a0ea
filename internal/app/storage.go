// Package app wires configuration into the storage stack shared by the bot
// and the admin CLI.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/escalopa/kid-reader-bot/internal/adapter/file"
	"github.com/escalopa/kid-reader-bot/internal/adapter/redis"
	"github.com/escalopa/kid-reader-bot/internal/adapter/sqlite"
	"github.com/escalopa/kid-reader-bot/internal/application"
	"github.com/escalopa/kid-reader-bot/internal/config"
	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/logger"
	"github.com/escalopa/kid-reader-bot/internal/progress"
)

var connectRedis = redis.Connect

// Storage is the medium progress collections are kept in
type Storage struct {
	Medium  domain.Medium
	Backend string
	key     string
	log     *logger.Logger
	closers []func() error
}

// OpenStorage opens the configured backend. client is reused for the redis
// backend when not nil; otherwise a connection is made from cfg.Redis.URI.
func OpenStorage(log *logger.Logger, cfg *config.Config, client *goredis.Client) (*Storage, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Storage{
		Backend: cfg.Storage.Backend,
		key:     cfg.Storage.Key,
		log:     log,
	}

	switch cfg.Storage.Backend {
	case config.BackendRedis:
		if client == nil {
			c, err := connectRedis(cfg.Redis.URI)
			if err != nil {
				return nil, err
			}
			client = c
			s.closers = append(s.closers, c.Close)
		}
		s.Medium = redis.NewMedium(client)

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		m, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.Medium = m
		s.closers = append(s.closers, m.Close)

	case config.BackendFile:
		fs := afero.NewOsFs()
		if err := fs.MkdirAll(cfg.Storage.FilePath, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		m, err := file.NewMedium(fs, cfg.Storage.FilePath)
		if err != nil {
			return nil, err
		}
		s.Medium = m

	case config.BackendMemory:
		s.Medium = file.NewMemoryMedium()

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	log.Info("progress storage opened", "backend", s.Backend, "key", s.Key(""))
	return s, nil
}

// Key is the collection key of learnerID; an empty id is the shared,
// un-namespaced collection
func (s *Storage) Key(learnerID string) string {
	if learnerID == "" {
		if s.key == "" {
			return progress.DefaultKey
		}
		return s.key
	}
	return progress.LearnerKey(s.key, learnerID)
}

// Store opens the progress store of one learner
func (s *Storage) Store(learnerID string) *progress.Store {
	return progress.NewStore(s.Medium, s.Key(learnerID), progress.WithLogger(s.log))
}

// Stores adapts Store to the service's factory
func (s *Storage) Stores() application.StoreFactory {
	return func(learnerID string) domain.ProgressStorePort {
		return s.Store(learnerID)
	}
}

func (s *Storage) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
