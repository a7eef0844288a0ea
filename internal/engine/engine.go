// Package engine holds the word/page progress state machine for one page.
package engine

import (
	"errors"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

const (
	MinProgress = 0
	MaxProgress = 100
)

var ErrIndexOutOfRange = errors.New("word index out of range")

// Engine tracks word progress and the active word pointer of one page.
// Words before the pointer count as completed whatever their stored value.
type Engine struct {
	progress  domain.PageProgress
	active    int
	wordCount int
}

// Snapshot is the persistable state of an Engine
type Snapshot struct {
	WordProgress domain.PageProgress
	Active       int
}

type Option func(*Engine)

// WithResume restores a persisted pointer, clamped to [0, wordCount]
func WithResume(active int) Option {
	return func(e *Engine) {
		e.active = max(0, min(active, e.wordCount))
	}
}

// New creates an engine for a page of wordCount words, hydrated from saved.
// The pointer starts at 0 unless WithResume is given.
func New(wordCount int, saved domain.PageProgress, opts ...Option) *Engine {
	e := &Engine{
		progress:  make(domain.PageProgress, len(saved)),
		wordCount: max(0, wordCount),
	}
	for idx, v := range saved {
		if idx < 0 || idx >= e.wordCount {
			continue
		}
		e.progress[idx] = clamp(v)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetWordProgress records progress for one word and advances the pointer.
// Values are clamped to [0,100]; an index outside the page is rejected.
func (e *Engine) SetWordProgress(index, value int) error {
	if index < 0 || index >= e.wordCount {
		return ErrIndexOutOfRange
	}
	value = clamp(value)
	e.progress[index] = value

	if value == MaxProgress {
		if index == e.active && e.active < e.wordCount-1 {
			e.active = index + 1
		} else if index == e.wordCount-1 {
			e.active = e.wordCount
		}
		return nil
	}

	// Only the immediately next word may pull the pointer forward.
	if value > 0 && index == e.active+1 {
		e.active = index
	}
	return nil
}

// WordStatus classifies a word for highlighting
func (e *Engine) WordStatus(index int) domain.WordStatus {
	switch {
	case index < e.active:
		return domain.WordCompleted
	case index == e.active:
		if e.progress[index] > 0 {
			return domain.WordActive
		}
		return domain.WordCurrent
	default:
		return domain.WordPending
	}
}

func (e *Engine) Progress(index int) int {
	return e.progress[index]
}

func (e *Engine) Active() int {
	return e.active
}

func (e *Engine) WordCount() int {
	return e.wordCount
}

func (e *Engine) IsPageComplete() bool {
	return e.active >= e.wordCount
}

// Snapshot exports a copy of the engine state
func (e *Engine) Snapshot() Snapshot {
	progress := make(domain.PageProgress, len(e.progress))
	for k, v := range e.progress {
		progress[k] = v
	}
	return Snapshot{WordProgress: progress, Active: e.active}
}

func clamp(v int) int {
	return max(MinProgress, min(v, MaxProgress))
}
