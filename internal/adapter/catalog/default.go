package catalog

import _ "embed"

//go:embed stories.yaml
var defaultStories []byte

// Default returns the built-in story catalog
func Default(wordsPerPage int) (*Catalog, error) {
	return Parse(defaultStories, wordsPerPage)
}
