package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

// AllCategories selects every story in ByCategory
const AllCategories = "All"

type Catalog struct {
	stories []domain.Story
	byID    map[string]int
}

type catalogFile struct {
	Stories []storyEntry `yaml:"stories"`
}

type storyEntry struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Emoji       string   `yaml:"emoji"`
	Difficulty  string   `yaml:"difficulty"`
	Category    string   `yaml:"category"`
	Text        string   `yaml:"text"`
	Pages       []string `yaml:"pages"`
}

// New builds a catalog, rejecting empty or duplicate story IDs
func New(stories []domain.Story) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(stories))}
	for _, s := range stories {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("story %q has no id", s.Title)
		}
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("duplicate story id %q", s.ID)
		}
		c.byID[s.ID] = len(c.stories)
		c.stories = append(c.stories, s)
	}
	return c, nil
}

// Load reads a YAML catalog file. Stories given as one text are split
// into pages of wordsPerPage words; explicit pages are kept as written.
func Load(filename string, wordsPerPage int) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(data, wordsPerPage)
}

func Parse(data []byte, wordsPerPage int) (*Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	stories := make([]domain.Story, 0, len(cf.Stories))
	for _, e := range cf.Stories {
		s := domain.Story{
			ID:          strings.TrimSpace(e.ID),
			Title:       e.Title,
			Description: e.Description,
			Emoji:       e.Emoji,
			Difficulty:  domain.Difficulty(e.Difficulty),
			Category:    e.Category,
		}
		if len(e.Pages) > 0 {
			for _, text := range e.Pages {
				s.Pages = append(s.Pages, domain.StoryPage{Text: text})
			}
		} else {
			s.Pages = domain.SplitText(e.Text, wordsPerPage)
		}
		stories = append(stories, s)
	}
	return New(stories)
}

func (c *Catalog) All() []domain.Story {
	return append([]domain.Story(nil), c.stories...)
}

func (c *Catalog) Get(id string) (domain.Story, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Story{}, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, id)
	}
	return c.stories[i], nil
}

// ByCategory filters stories by category; AllCategories returns everything
func (c *Catalog) ByCategory(category string) []domain.Story {
	if category == AllCategories {
		return c.All()
	}
	var out []domain.Story
	for _, s := range c.stories {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Categories lists AllCategories followed by each category in catalog order
func (c *Catalog) Categories() []string {
	out := []string{AllCategories}
	seen := map[string]bool{}
	for _, s := range c.stories {
		if s.Category == "" || seen[s.Category] {
			continue
		}
		seen[s.Category] = true
		out = append(out, s.Category)
	}
	return out
}
