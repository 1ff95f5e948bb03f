package i18n

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const defaultLang = "en"

// Translator holds the locale tables loaded at startup. Lookups fall back to
// English, then to the key itself, so a missing translation never errors.
type Translator struct {
	translations map[string]map[string]string
}

// Load reads every <lang>.json file in dir.
func Load(dir string) (*Translator, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "Failed read locales dir")
	}
	t := &Translator{translations: make(map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ".json")
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "Failed read locale %s", lang)
		}
		table := make(map[string]string)
		if err := json.Unmarshal(b, &table); err != nil {
			return nil, errors.Wrapf(err, "Failed parse locale %s", lang)
		}
		t.translations[lang] = table
	}
	if _, ok := t.translations[defaultLang]; !ok {
		return nil, errors.New("missing en locale")
	}
	return t, nil
}

// Text returns the translation for key in lang with {placeholder} values
// substituted.
func (t *Translator) Text(lang, key string, args map[string]string) string {
	s, ok := t.translations[lang][key]
	if !ok {
		s, ok = t.translations[defaultLang][key]
	}
	if !ok {
		s = key
	}
	for k, v := range args {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(t.translations))
	for lang := range t.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Negotiate picks the response language: the explicit query value wins, then
// the first Accept-Language entry's primary subtag, then English.
func (t *Translator) Negotiate(queryLang, acceptHeader string) string {
	if _, ok := t.translations[queryLang]; ok {
		return queryLang
	}
	if acceptHeader != "" {
		first := strings.Split(acceptHeader, ",")[0]
		primary := strings.Split(strings.TrimSpace(first), "-")[0]
		if _, ok := t.translations[primary]; ok {
			return primary
		}
	}
	return defaultLang
}
