// Package stats derives completion figures from stored reading progress.
// Everything here is pure; it never touches a live engine or a store.
package stats

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

const completedValue = 100

// PercentComplete is the rounded share of the story's words whose stored
// progress is exactly 100. A story without words is 0% complete.
func PercentComplete(story domain.Story, progress *domain.ReadingProgress) int {
	if progress == nil {
		return 0
	}
	totalWords, completedWords := 0, 0
	for pageIndex, page := range story.BuildPages() {
		totalWords += page.WordCount()
		pageProgress := progress.WordProgress[pageIndex]
		for wordIndex := range page.Words {
			if pageProgress[wordIndex] == completedValue {
				completedWords++
			}
		}
	}
	if totalWords == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completedWords) / float64(totalWords)))
}

// IsStarted reports a stored entry with some completed words
func IsStarted(story domain.Story, progress *domain.ReadingProgress) bool {
	return progress != nil && PercentComplete(story, progress) > 0
}

func IsCompleted(story domain.Story, progress *domain.ReadingProgress) bool {
	return PercentComplete(story, progress) == 100
}

// StoryStats is the per-story line of the dashboard
type StoryStats struct {
	Story      domain.Story
	Percent    int
	Started    bool
	Completed  bool
	PagesRead  int
	LastReadAt time.Time
}

// Summary aggregates progress across the whole catalog
type Summary struct {
	TotalStories     int
	StartedStories   int
	CompletedStories int
	TotalPagesRead   int
	AverageProgress  int
	LastReadStory    string
	LastReadAt       time.Time
}

// ForStory computes the dashboard line of one story
func ForStory(story domain.Story, all domain.UserProgress) StoryStats {
	progress := all[story.ID]
	s := StoryStats{
		Story:     story,
		Percent:   PercentComplete(story, progress),
		Started:   IsStarted(story, progress),
		Completed: IsCompleted(story, progress),
	}
	if progress != nil {
		s.PagesRead = len(progress.CompletedPages)
		s.LastReadAt = progress.LastReadAt
	}
	return s
}

// Summarize computes the cross-story summary. Unstarted stories count as 0
// towards the average.
func Summarize(catalog []domain.Story, all domain.UserProgress) Summary {
	summary := Summary{
		TotalStories:   len(catalog),
		StartedStories: len(all),
	}

	// Sorted so ties on lastReadAt resolve to the same story every time.
	for _, id := range slices.Sorted(maps.Keys(all)) {
		progress := all[id]
		if progress == nil {
			continue
		}
		summary.TotalPagesRead += len(progress.CompletedPages)
		if progress.LastReadAt.After(summary.LastReadAt) {
			summary.LastReadAt = progress.LastReadAt
			summary.LastReadStory = id
		}
	}

	totalPercent := 0
	for _, story := range catalog {
		percent := PercentComplete(story, all[story.ID])
		totalPercent += percent
		if percent == 100 {
			summary.CompletedStories++
		}
	}
	if len(catalog) > 0 {
		summary.AverageProgress = int(math.Round(float64(totalPercent) / float64(len(catalog))))
	}
	return summary
}

// LegacyCompletedStories counts records with at least one completed page.
// Older dashboards used this as "completed"; it overcounts and is kept for comparison.
func LegacyCompletedStories(all domain.UserProgress) int {
	n := 0
	for _, progress := range all {
		if progress != nil && len(progress.CompletedPages) > 0 {
			n++
		}
	}
	return n
}

// RecencyKind classifies how long ago a story was read
type RecencyKind string

const (
	RecencyNever     RecencyKind = "never"
	RecencyToday     RecencyKind = "today"
	RecencyYesterday RecencyKind = "yesterday"
	RecencyDaysAgo   RecencyKind = "days_ago"
	RecencyDate      RecencyKind = "date"
)

type Recency struct {
	Kind RecencyKind
	Days int
	Date time.Time
}

// RecencyOf labels lastReadAt relative to now. Elapsed time is rounded up
// to whole days, so anything within the last 24 hours is "today".
func RecencyOf(lastReadAt, now time.Time) Recency {
	if lastReadAt.IsZero() {
		return Recency{Kind: RecencyNever}
	}
	diff := now.Sub(lastReadAt)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	switch {
	case days <= 1:
		return Recency{Kind: RecencyToday}
	case days == 2:
		return Recency{Kind: RecencyYesterday}
	case days <= 7:
		return Recency{Kind: RecencyDaysAgo, Days: days - 1}
	default:
		return Recency{Kind: RecencyDate, Date: lastReadAt}
	}
}
