package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/engine"
	"github.com/escalopa/kid-reader-bot/internal/logger"
)

var ErrPageOutOfRange = errors.New("page index out of range")

// Session binds one story's reading progress to the engine of the page being
// read. Every mutation folds the engine state into the record and saves it.
// A Session is not safe for concurrent use.
type Session struct {
	store  domain.ProgressStorePort
	story  domain.Story
	pages  []domain.Page
	record *domain.ReadingProgress
	page   int
	engine *engine.Engine
	log    *logger.Logger
}

// OpenSession loads the stored record of story, if any, and enters the page
// the learner was last on
func OpenSession(ctx context.Context, store domain.ProgressStorePort, story domain.Story, log *logger.Logger) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Session{
		store: store,
		story: story,
		pages: story.BuildPages(),
		log:   log.With("story", story.ID),
	}

	s.record = store.Load(ctx, story.ID)
	if s.record == nil {
		s.record = domain.NewReadingProgress(story.ID)
	} else {
		s.log.Debug("resuming reading progress",
			"page", s.record.CurrentPageIndex,
			"word", s.record.CurrentWordIndex,
		)
	}

	page := s.record.CurrentPageIndex
	if page < 0 || page >= len(s.pages) {
		page = 0
	}
	s.enter(page)
	return s
}

// enter builds the engine for page from the stored record. The pointer is
// restored on the page the record was saved on and on completed pages.
func (s *Session) enter(page int) {
	wordCount := 0
	if page < len(s.pages) {
		wordCount = s.pages[page].WordCount()
	}

	var opts []engine.Option
	switch {
	case s.record.IsPageCompleted(page):
		opts = append(opts, engine.WithResume(wordCount))
	case page == s.record.CurrentPageIndex:
		opts = append(opts, engine.WithResume(s.record.CurrentWordIndex))
	}

	s.page = page
	s.engine = engine.New(wordCount, s.record.WordProgress[page], opts...)
}

// foldInto copies the engine state of the current page into record. Stored
// values of words the page no longer has are kept.
func (s *Session) foldInto(record *domain.ReadingProgress) {
	snap := s.engine.Snapshot()
	if len(snap.WordProgress) > 0 {
		if record.WordProgress == nil {
			record.WordProgress = domain.WordProgress{}
		}
		page := record.WordProgress[s.page]
		if page == nil {
			page = make(domain.PageProgress, len(snap.WordProgress))
			record.WordProgress[s.page] = page
		}
		for word, value := range snap.WordProgress {
			page[word] = value
		}
	}
	record.CurrentPageIndex = s.page
	record.CurrentWordIndex = snap.Active
	if s.engine.IsPageComplete() && len(s.pages) > 0 {
		record.MarkPageCompleted(s.page)
	}
}

func (s *Session) persist(ctx context.Context) {
	s.foldInto(s.record)
	s.store.Save(ctx, s.record)
}

// SetWordProgress applies one progress update on the current page
func (s *Session) SetWordProgress(ctx context.Context, index, value int) error {
	if err := s.engine.SetWordProgress(index, value); err != nil {
		return fmt.Errorf("set word %d on page %d: %w", index, s.page, err)
	}
	s.persist(ctx)
	return nil
}

// SetActiveWordProgress applies value to the word under the pointer. It is
// a no-op on a complete page.
func (s *Session) SetActiveWordProgress(ctx context.Context, value int) error {
	if s.engine.IsPageComplete() {
		return nil
	}
	return s.SetWordProgress(ctx, s.engine.Active(), value)
}

// GoToPage saves the current page and enters page
func (s *Session) GoToPage(ctx context.Context, page int) error {
	if page < 0 || page >= len(s.pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, len(s.pages))
	}
	s.foldInto(s.record)
	s.enter(page)
	s.persist(ctx)
	return nil
}

func (s *Session) NextPage(ctx context.Context) error {
	return s.GoToPage(ctx, s.page+1)
}

func (s *Session) PrevPage(ctx context.Context) error {
	return s.GoToPage(ctx, s.page-1)
}

// Restart clears the stored record and starts the story from its first page
func (s *Session) Restart(ctx context.Context) {
	s.store.Clear(ctx, s.story.ID)
	s.record = domain.NewReadingProgress(s.story.ID)
	s.enter(0)
}

func (s *Session) Story() domain.Story {
	return s.story
}

func (s *Session) PageIndex() int {
	return s.page
}

func (s *Session) PageCount() int {
	return len(s.pages)
}

// Page returns the page being read; an empty story yields an empty page
func (s *Session) Page() domain.Page {
	if s.page < len(s.pages) {
		return s.pages[s.page]
	}
	return domain.Page{}
}

func (s *Session) WordStatus(index int) domain.WordStatus {
	return s.engine.WordStatus(index)
}

func (s *Session) WordProgress(index int) int {
	return s.engine.Progress(index)
}

func (s *Session) ActiveWord() int {
	return s.engine.Active()
}

func (s *Session) IsPageComplete() bool {
	return s.engine.IsPageComplete()
}

func (s *Session) IsLastPage() bool {
	return s.page >= len(s.pages)-1
}

// IsFinished reports the last page being complete
func (s *Session) IsFinished() bool {
	return s.IsLastPage() && s.IsPageComplete()
}

// Record returns a copy of the in-memory record including unsaved state
func (s *Session) Record() *domain.ReadingProgress {
	record := s.record.Clone()
	s.foldInto(record)
	return record
}
