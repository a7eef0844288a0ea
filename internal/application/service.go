package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/logger"
	"github.com/escalopa/kid-reader-bot/internal/stats"
)

var ErrSpeechDisabled = errors.New("speech is not configured")

// StoryCatalog is the read side of the story catalog
type StoryCatalog interface {
	All() []domain.Story
	Get(id string) (domain.Story, error)
	Categories() []string
	ByCategory(category string) []domain.Story
}

// StoreFactory returns the progress store of one learner
type StoreFactory func(learnerID string) domain.ProgressStorePort

// ReaderService handles the business logic for the bot
type ReaderService struct {
	catalog StoryCatalog
	fsm     domain.FSMPort
	stores  StoreFactory
	speech  domain.SpeechPort
	log     *logger.Logger
	now     func() time.Time
	lang    domain.Language

	mu       sync.Mutex
	learners map[string]*learner
}

// learner serializes every transition of one learner
type learner struct {
	mu       sync.Mutex
	store    domain.ProgressStorePort
	session  *Session
	lastSeen time.Time // guarded by ReaderService.mu
}

// WordView is one rendered word of a page
type WordView struct {
	Index    int
	Text     string
	Status   domain.WordStatus
	Progress int
}

// PageView is a consistent snapshot of a session taken under the learner lock
type PageView struct {
	Story        domain.Story
	PageIndex    int
	PageCount    int
	Words        []WordView
	ActiveWord   int
	PageComplete bool
	LastPage     bool
	Finished     bool
}

// Dashboard is the learner's progress overview
type Dashboard struct {
	Summary stats.Summary
	Stories []stats.StoryStats
	Now     time.Time
}

func NewReaderService(catalog StoryCatalog, fsm domain.FSMPort, stores StoreFactory, speech domain.SpeechPort, log *logger.Logger) *ReaderService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReaderService{
		catalog:  catalog,
		fsm:      fsm,
		stores:   stores,
		speech:   speech,
		log:      log,
		now:      time.Now,
		lang:     domain.LangEnglish,
		learners: make(map[string]*learner),
	}
}

// SetDefaultLanguage sets the language of learners who never picked one
func (s *ReaderService) SetDefaultLanguage(lang domain.Language) {
	if lang != "" {
		s.lang = lang
	}
}

func (s *ReaderService) learner(userID string) *learner {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.learners[userID]
	if !ok {
		l = &learner{store: s.stores(userID)}
		s.learners[userID] = l
	}
	l.lastSeen = s.now()
	return l
}

// EvictIdle drops the cached session of learners not seen for idle. A learner
// in the middle of a transition is kept. The FSM still remembers the open
// story, so the next request reopens it from the store.
func (s *ReaderService) EvictIdle(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	evicted := 0
	for id, l := range s.learners {
		if l.lastSeen.After(cutoff) || !l.mu.TryLock() {
			continue
		}
		delete(s.learners, id)
		l.mu.Unlock()
		evicted++
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done
func (s *ReaderService) RunEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(idle); n > 0 {
				s.log.Debug("evicted idle learners", "count", n)
			}
		}
	}
}

// HandleStart handles the /start command
func (s *ReaderService) HandleStart(ctx context.Context, userID string, lang domain.Language) error {
	if err := s.fsm.SetState(ctx, userID, domain.StateSelectStory); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyLanguage, string(lang)); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// GetCurrentState returns the current state for a user
func (s *ReaderService) GetCurrentState(ctx context.Context, userID string) (domain.State, error) {
	return s.fsm.GetState(ctx, userID)
}

// GetUserLanguage retrieves the user's preferred language
func (s *ReaderService) GetUserLanguage(ctx context.Context, userID string) domain.Language {
	langStr, err := s.fsm.GetData(ctx, userID, domain.SessionKeyLanguage)
	if err != nil || langStr == "" {
		return s.lang
	}
	return domain.Language(langStr)
}

func (s *ReaderService) Stories() []domain.Story {
	return s.catalog.All()
}

// Categories lists the catalog filters, the catch-all first
func (s *ReaderService) Categories() []string {
	return s.catalog.Categories()
}

// StoriesIn returns the stories of one category; an empty category is every story
func (s *ReaderService) StoriesIn(category string) []domain.Story {
	if category == "" {
		return s.catalog.All()
	}
	return s.catalog.ByCategory(category)
}

// OpenStory starts or resumes reading storyID
func (s *ReaderService) OpenStory(ctx context.Context, userID, storyID string) (PageView, error) {
	story, err := s.catalog.Get(storyID)
	if err != nil {
		return PageView{}, err
	}

	l := s.learner(userID)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.session = OpenSession(ctx, l.store, story, s.log.With("learner", userID))

	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyStory, storyID); err != nil {
		return PageView{}, fmt.Errorf("set story: %w", err)
	}
	if err := s.fsm.SetState(ctx, userID, domain.StateReading); err != nil {
		return PageView{}, fmt.Errorf("set state: %w", err)
	}
	return viewOf(l.session), nil
}

// session returns the cached session or reopens the story remembered by
// the FSM. The caller holds l.mu.
func (s *ReaderService) session(ctx context.Context, userID string, l *learner) (*Session, error) {
	if l.session != nil {
		return l.session, nil
	}
	storyID, err := s.fsm.GetData(ctx, userID, domain.SessionKeyStory)
	if err != nil || storyID == "" {
		return nil, domain.ErrNoSession
	}
	story, err := s.catalog.Get(storyID)
	if err != nil {
		return nil, err
	}
	l.session = OpenSession(ctx, l.store, story, s.log.With("learner", userID))
	return l.session, nil
}

// CurrentPage renders the page the learner is reading
func (s *ReaderService) CurrentPage(ctx context.Context, userID string) (PageView, error) {
	return s.withSession(ctx, userID, func(*Session) error { return nil })
}

// SetActiveWordProgress applies value to the word under the pointer of the
// current page, reading the pointer under the same lock
func (s *ReaderService) SetActiveWordProgress(ctx context.Context, userID string, value int) (PageView, error) {
	return s.withSession(ctx, userID, func(sess *Session) error {
		return sess.SetActiveWordProgress(ctx, value)
	})
}

// SetWordProgress applies a progress update to a word of the current page
func (s *ReaderService) SetWordProgress(ctx context.Context, userID string, index, value int) (PageView, error) {
	return s.withSession(ctx, userID, func(sess *Session) error {
		return sess.SetWordProgress(ctx, index, value)
	})
}

func (s *ReaderService) NextPage(ctx context.Context, userID string) (PageView, error) {
	return s.withSession(ctx, userID, func(sess *Session) error {
		return sess.NextPage(ctx)
	})
}

func (s *ReaderService) PrevPage(ctx context.Context, userID string) (PageView, error) {
	return s.withSession(ctx, userID, func(sess *Session) error {
		return sess.PrevPage(ctx)
	})
}

// RestartStory wipes the progress of the open story and starts over
func (s *ReaderService) RestartStory(ctx context.Context, userID string) (PageView, error) {
	return s.withSession(ctx, userID, func(sess *Session) error {
		sess.Restart(ctx)
		return nil
	})
}

func (s *ReaderService) withSession(ctx context.Context, userID string, fn func(*Session) error) (PageView, error) {
	l := s.learner(userID)
	l.mu.Lock()
	defer l.mu.Unlock()

	sess, err := s.session(ctx, userID, l)
	if err != nil {
		return PageView{}, err
	}
	if err := fn(sess); err != nil {
		return viewOf(sess), err
	}
	return viewOf(sess), nil
}

// WordAt returns the text of a word on the current page
func (s *ReaderService) WordAt(ctx context.Context, userID string, index int) (string, error) {
	view, err := s.CurrentPage(ctx, userID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(view.Words) {
		return "", fmt.Errorf("word %d: %w", index, ErrPageOutOfRange)
	}
	return view.Words[index].Text, nil
}

// Dashboard computes the learner's stats over the whole catalog
func (s *ReaderService) Dashboard(ctx context.Context, userID string) Dashboard {
	l := s.learner(userID)
	l.mu.Lock()
	defer l.mu.Unlock()

	all := l.store.LoadAll(ctx)
	catalog := s.catalog.All()

	d := Dashboard{
		Summary: stats.Summarize(catalog, all),
		Now:     s.now(),
	}
	for _, story := range catalog {
		d.Stories = append(d.Stories, stats.ForStory(story, all))
	}
	return d
}

// ClearStory removes the stored progress of one story
func (s *ReaderService) ClearStory(ctx context.Context, userID, storyID string) error {
	if _, err := s.catalog.Get(storyID); err != nil {
		return err
	}
	l := s.learner(userID)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil && l.session.Story().ID == storyID {
		l.session.Restart(ctx)
		return nil
	}
	l.store.Clear(ctx, storyID)
	return nil
}

// ClearAll removes every stored record of the learner and closes the session
func (s *ReaderService) ClearAll(ctx context.Context, userID string) error {
	l := s.learner(userID)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.ClearAll(ctx)
	l.session = nil
	if err := s.fsm.DeleteData(ctx, userID, domain.SessionKeyStory); err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if err := s.fsm.SetState(ctx, userID, domain.StateSelectStory); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// Speak synthesizes a word with surrounding punctuation removed
func (s *ReaderService) Speak(ctx context.Context, word string) (io.Reader, error) {
	if s.speech == nil {
		return nil, ErrSpeechDisabled
	}
	clean := CleanWord(word)
	if clean == "" {
		return nil, fmt.Errorf("nothing to speak in %q", word)
	}
	audio, err := s.speech.Synthesize(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return audio, nil
}

// CleanWord drops sentence punctuation from a word token
func CleanWord(word string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':':
			return -1
		}
		return r
	}, word)
}

func viewOf(sess *Session) PageView {
	page := sess.Page()
	words := make([]WordView, 0, page.WordCount())
	for i, w := range page.Words {
		words = append(words, WordView{
			Index:    i,
			Text:     w,
			Status:   sess.WordStatus(i),
			Progress: sess.WordProgress(i),
		})
	}
	return PageView{
		Story:        sess.Story(),
		PageIndex:    sess.PageIndex(),
		PageCount:    sess.PageCount(),
		Words:        words,
		ActiveWord:   sess.ActiveWord(),
		PageComplete: sess.IsPageComplete(),
		LastPage:     sess.IsLastPage(),
		Finished:     sess.IsFinished(),
	}
}
