package domain

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrStoryNotFound     = errors.New("story not found")
	ErrNoSession         = errors.New("no reading session")
	ErrInvalidPageNumber = errors.New("page number must not be negative")
)

// Difficulty is the reading level of a story
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Story represents one readable story in the catalog
type Story struct {
	ID          string
	Title       string
	Description string
	Emoji       string
	Difficulty  Difficulty
	Category    string
	Pages       []StoryPage
}

// StoryPage holds the raw text of one page of a story
type StoryPage struct {
	Text string
}

// BuildPages tokenizes every story page into a Page
func (s Story) BuildPages() []Page {
	pages := make([]Page, 0, len(s.Pages))
	for i, sp := range s.Pages {
		pages = append(pages, Page{Number: i, Words: Tokenize(sp.Text)})
	}
	return pages
}

// WordCount returns the total number of word tokens across all pages
func (s Story) WordCount() int {
	total := 0
	for _, sp := range s.Pages {
		total += len(Tokenize(sp.Text))
	}
	return total
}

// PageProgress maps a word index to its progress value (0..100)
type PageProgress map[int]int

// WordProgress maps a page index to the progress of its words.
// Absent entries read as 0.
type WordProgress map[int]PageProgress

// Get returns the stored value for a word, 0 when absent
func (w WordProgress) Get(page, word int) int {
	return w[page][word]
}

// ReadingProgress is the durable whole-story snapshot of a learner's progress
type ReadingProgress struct {
	StoryID          string       `json:"storyId"`
	CurrentPageIndex int          `json:"currentPageIndex"`
	CurrentWordIndex int          `json:"currentWordIndex"`
	CompletedPages   []int        `json:"completedPages"`
	WordProgress     WordProgress `json:"wordProgress"`
	LastReadAt       time.Time    `json:"lastReadAt"`
}

// NewReadingProgress returns an empty record for a story
func NewReadingProgress(storyID string) *ReadingProgress {
	return &ReadingProgress{
		StoryID:        storyID,
		CompletedPages: []int{},
		WordProgress:   WordProgress{},
	}
}

// IsPageCompleted reports whether page is listed in CompletedPages
func (p *ReadingProgress) IsPageCompleted(page int) bool {
	i := sort.SearchInts(p.CompletedPages, page)
	return i < len(p.CompletedPages) && p.CompletedPages[i] == page
}

// MarkPageCompleted adds page to CompletedPages keeping it sorted and unique
func (p *ReadingProgress) MarkPageCompleted(page int) {
	i := sort.SearchInts(p.CompletedPages, page)
	if i < len(p.CompletedPages) && p.CompletedPages[i] == page {
		return
	}
	p.CompletedPages = append(p.CompletedPages, 0)
	copy(p.CompletedPages[i+1:], p.CompletedPages[i:])
	p.CompletedPages[i] = page
}

// Clone returns a deep copy of the record
func (p *ReadingProgress) Clone() *ReadingProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.CompletedPages = append([]int{}, p.CompletedPages...)
	c.WordProgress = make(WordProgress, len(p.WordProgress))
	for page, words := range p.WordProgress {
		pp := make(PageProgress, len(words))
		for w, v := range words {
			pp[w] = v
		}
		c.WordProgress[page] = pp
	}
	return &c
}

// Normalize fills nil collections and restores the CompletedPages ordering
// after decoding a record written by an older client
func (p *ReadingProgress) Normalize() {
	if p.WordProgress == nil {
		p.WordProgress = WordProgress{}
	}
	pages := p.CompletedPages
	p.CompletedPages = make([]int, 0, len(pages))
	for _, page := range pages {
		p.MarkPageCompleted(page)
	}
}

// UserProgress is the persisted collection of records keyed by story ID
type UserProgress map[string]*ReadingProgress

// WordStatus drives word highlighting
type WordStatus string

const (
	WordCompleted WordStatus = "completed"
	WordActive    WordStatus = "active"
	WordCurrent   WordStatus = "current"
	WordPending   WordStatus = "pending"
)

// Language represents supported languages
type Language string

const (
	LangEnglish Language = "en"
	LangArabic  Language = "ar"
	LangRussian Language = "ru"
)
