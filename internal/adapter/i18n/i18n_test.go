package i18n

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

func memLocales(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for lang, body := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("locales", lang+".yaml"), []byte(body), 0o644))
	}
	return fs
}

func TestNewI18nFs_Fallbacks(t *testing.T) {
	fs := memLocales(t, map[string]string{
		"en": "messages:\n  hello: \"Hello %s\"\n  bye: Bye\n",
		"ar": "messages:\n  hello: \"مرحبا %s\"\n",
		"ru": "messages: {}\n",
	})

	tr, err := NewI18nFs(fs, "locales")
	require.NoError(t, err)

	assert.Equal(t, "مرحبا Sam", tr.Get(domain.LangArabic, "hello", "Sam"))
	assert.Equal(t, "Bye", tr.Get(domain.LangArabic, "bye"))
	assert.Equal(t, "Hello Sam", tr.Get(domain.Language("fr"), "hello", "Sam"))
	assert.Equal(t, "missing.key", tr.Get(domain.LangRussian, "missing.key"))

	assert.Equal(t, []string{"bye"}, tr.Missing(domain.LangArabic))
	assert.Equal(t, []string{"bye", "hello"}, tr.Missing(domain.LangRussian))
	assert.True(t, tr.Supports(domain.LangRussian))
	assert.False(t, tr.Supports(domain.Language("fr")))
}

func TestNewI18nFs_Errors(t *testing.T) {
	_, err := NewI18nFs(memLocales(t, map[string]string{"en": "messages: {}\n"}), "locales")
	assert.ErrorContains(t, err, "read ar locale")

	_, err = NewI18nFs(memLocales(t, map[string]string{
		"en": "messages: {}\n",
		"ar": "messages: [\n",
		"ru": "messages: {}\n",
	}), "locales")
	assert.ErrorContains(t, err, "parse ar locale")
}

func TestShippedLocalesHaveSameKeys(t *testing.T) {
	tr, err := NewI18n(filepath.Join("..", "..", "..", "locales"))
	require.NoError(t, err)

	require.NotEmpty(t, tr.translations[domain.LangEnglish])
	for _, lang := range Languages {
		assert.Empty(t, tr.Missing(lang), "%s locale is incomplete", lang)
	}
}
