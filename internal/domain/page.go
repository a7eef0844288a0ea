package domain

import "strings"

// DefaultWordsPerPage is used when no positive page size is configured
const DefaultWordsPerPage = 8

// Page is an immutable ordered sequence of word tokens
type Page struct {
	Number int
	Words  []string
}

// MakePage builds a page from word tokens. An empty page is legal and
// counts as completed as soon as it is entered.
func MakePage(words []string, number int) (Page, error) {
	if number < 0 {
		return Page{}, ErrInvalidPageNumber
	}
	return Page{Number: number, Words: append([]string(nil), words...)}, nil
}

// WordCount returns the number of tokens on the page
func (p Page) WordCount() int {
	return len(p.Words)
}

// Word returns the token at index, or "" when out of range
func (p Page) Word(index int) string {
	if index < 0 || index >= len(p.Words) {
		return ""
	}
	return p.Words[index]
}

// Tokenize splits prose on whitespace, keeping punctuation attached to words
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Paginate chunks word tokens into pages of wordsPerPage words
func Paginate(words []string, wordsPerPage int) []Page {
	if wordsPerPage <= 0 {
		wordsPerPage = DefaultWordsPerPage
	}
	pages := make([]Page, 0, (len(words)+wordsPerPage-1)/wordsPerPage)
	for i := 0; i < len(words); i += wordsPerPage {
		end := min(i+wordsPerPage, len(words))
		pages = append(pages, Page{Number: len(pages), Words: append([]string(nil), words[i:end]...)})
	}
	return pages
}

// SplitText paginates raw prose into story pages of wordsPerPage words
func SplitText(text string, wordsPerPage int) []StoryPage {
	pages := Paginate(Tokenize(text), wordsPerPage)
	out := make([]StoryPage, 0, len(pages))
	for _, p := range pages {
		out = append(out, StoryPage{Text: strings.Join(p.Words, " ")})
	}
	return out
}
