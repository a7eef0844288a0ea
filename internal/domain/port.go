package domain

import (
	"context"
	"errors"
	"io"
)

// ErrKeyNotFound is returned by a Medium when nothing is stored under a key
var ErrKeyNotFound = errors.New("key not found")

// Medium is a raw durable key/value medium under the progress store
type Medium interface {
	// Probe checks that the medium can be written to
	Probe(ctx context.Context) error

	// Read returns the bytes stored under key or ErrKeyNotFound
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the bytes stored under key
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// ProgressStorePort persists ReadingProgress records. Every method is fail-soft.
type ProgressStorePort interface {
	IsAvailable(ctx context.Context) bool
	Load(ctx context.Context, storyID string) *ReadingProgress
	Save(ctx context.Context, progress *ReadingProgress)
	LoadAll(ctx context.Context) UserProgress
	Clear(ctx context.Context, storyID string)
	ClearAll(ctx context.Context)
}

// FSMPort defines the interface for finite state machine storage
type FSMPort interface {
	// SetState sets the current state for a user
	SetState(ctx context.Context, userID string, state State) error

	// GetState gets the current state for a user
	GetState(ctx context.Context, userID string) (State, error)

	// DeleteState deletes the state for a user
	DeleteState(ctx context.Context, userID string) error

	// SetData sets session data for a user
	SetData(ctx context.Context, userID, key, value string) error

	// GetData gets session data for a user
	GetData(ctx context.Context, userID, key string) (string, error)

	// DeleteData deletes session data for a user
	DeleteData(ctx context.Context, userID, key string) error
}

// I18nPort defines the interface for internationalization
type I18nPort interface {
	// Get retrieves a translated message
	Get(lang Language, key string, args ...interface{}) string
}

// SpeechPort turns a word into playable audio
type SpeechPort interface {
	Synthesize(ctx context.Context, text string) (io.Reader, error)
}

// BotPort defines the interface for the bot adapter
type BotPort interface {
	// Start starts the bot
	Start(ctx context.Context) error

	// Stop stops the bot
	Stop() error
}

// State represents the FSM states
type State string

const (
	StateStart       State = "start"
	StateSelectStory State = "select_story"
	StateReading     State = "reading"
)

// SessionData keys
const (
	SessionKeyStory    = "story"
	SessionKeyLanguage = "language"
)
