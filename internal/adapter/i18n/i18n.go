// Package i18n serves the bot texts from one YAML file per language.
package i18n

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

// Languages lists every locale file that must be present
var Languages = []domain.Language{domain.LangEnglish, domain.LangArabic, domain.LangRussian}

type I18n struct {
	translations map[domain.Language]map[string]string
}

type localeFile struct {
	Messages map[string]string `yaml:"messages"`
}

// NewI18n loads the locales from a directory on disk
func NewI18n(localesDir string) (*I18n, error) {
	return NewI18nFs(afero.NewOsFs(), localesDir)
}

func NewI18nFs(fs afero.Fs, localesDir string) (*I18n, error) {
	i := &I18n{translations: make(map[domain.Language]map[string]string, len(Languages))}

	for _, lang := range Languages {
		data, err := afero.ReadFile(fs, filepath.Join(localesDir, string(lang)+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read %s locale: %w", lang, err)
		}

		var lf localeFile
		if err := yaml.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("parse %s locale: %w", lang, err)
		}
		i.translations[lang] = lf.Messages
	}

	return i, nil
}

// Supports reports whether lang has a loaded locale
func (i *I18n) Supports(lang domain.Language) bool {
	return slices.Contains(Languages, lang)
}

// Missing lists the English keys lang has no text for
func (i *I18n) Missing(lang domain.Language) []string {
	var missing []string
	for key := range i.translations[domain.LangEnglish] {
		if _, ok := i.translations[lang][key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Get retrieves a translated message, falling back to English and then to the key
func (i *I18n) Get(lang domain.Language, key string, args ...interface{}) string {
	msg, ok := i.translations[lang][key]
	if !ok {
		msg, ok = i.translations[domain.LangEnglish][key]
	}
	if !ok {
		return key
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	return msg
}
