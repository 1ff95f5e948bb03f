package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocale(t *testing.T, dir, lang, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, lang+".json"), []byte(content), 0o600)
	require.NoError(t, err)
}

func testTranslator(t *testing.T) *Translator {
	t.Helper()
	dir := t.TempDir()
	writeLocale(t, dir, "en", `{"greeting": "Hello {name}", "only_en": "English only"}`)
	writeLocale(t, dir, "zh", `{"greeting": "你好 {name}"}`)
	tr, err := Load(dir)
	require.NoError(t, err)
	return tr
}

func TestLoadRequiresEnglish(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "zh", `{"greeting": "你好"}`)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing en locale")
}

func TestLoadRejectsBrokenJSON(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en", `{"greeting": `)
	_, err := Load(dir)
	require.Error(t, err)
}

func TestText(t *testing.T) {
	tr := testTranslator(t)

	assert.Equal(t, "Hello Mary", tr.Text("en", "greeting", map[string]string{"name": "Mary"}))
	assert.Equal(t, "你好 Mary", tr.Text("zh", "greeting", map[string]string{"name": "Mary"}))

	// zh has no only_en, fall back to English
	assert.Equal(t, "English only", tr.Text("zh", "only_en", nil))
	// unknown key falls back to the key itself
	assert.Equal(t, "no_such_key", tr.Text("en", "no_such_key", nil))
	// unknown language behaves as English
	assert.Equal(t, "Hello X", tr.Text("fr", "greeting", map[string]string{"name": "X"}))
}

func TestLanguages(t *testing.T) {
	tr := testTranslator(t)
	assert.Equal(t, []string{"en", "zh"}, tr.Languages())
}

func TestNegotiate(t *testing.T) {
	tr := testTranslator(t)

	tests := []struct {
		name   string
		query  string
		accept string
		want   string
	}{
		{"QueryWins", "zh", "en", "zh"},
		{"UnknownQueryIgnored", "fr", "zh-CN", "zh"},
		{"AcceptPrimarySubtag", "", "zh-CN,en;q=0.9", "zh"},
		{"UnknownAcceptFallsBack", "", "fr-FR,de;q=0.8", "en"},
		{"EmptyEverything", "", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Negotiate(tt.query, tt.accept))
		})
	}
}
