// Package lang holds the bot's user-facing strings. Tables live in embedded
// YAML files named after their base language ("en.yaml") and are grouped by
// category ("Sauce", "Misc", "Errors").
package lang

import (
	"embed"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Missing is returned for keys absent from the table.
const Missing = "<Missing language string>"

//go:embed *.yaml
var tables embed.FS

// supported lists the tables shipped with the binary; the first entry is the fallback.
var supported = []language.Tag{language.English}

var matcher = language.NewMatcher(supported)

// Params are "{name}" placeholder replacements.
type Params map[string]any

// Translator resolves category/key pairs against one loaded table.
type Translator struct {
	tag     language.Tag
	strings map[string]map[string]string
}

// Load picks the closest shipped table for requested (a BCP 47 tag such as
// "en" or "en-GB"). Unparseable or unsupported tags fall back to English.
func Load(requested string) (*Translator, error) {
	want, err := language.Parse(strings.TrimSpace(requested))
	if err != nil {
		want = supported[0]
	}
	_, idx, _ := matcher.Match(want)
	tag := supported[idx]
	base, _ := tag.Base()

	raw, err := tables.ReadFile(base.String() + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("lang: read %s table: %w", base, err)
	}
	var m map[string]map[string]string
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("lang: parse %s table: %w", base, err)
	}
	return &Translator{tag: tag, strings: m}, nil
}

// MustLoad is Load that panics on error.
func MustLoad(requested string) *Translator {
	t, err := Load(requested)
	if err != nil {
		panic(err)
	}
	return t
}

// Tag reports which table was loaded.
func (t *Translator) Tag() language.Tag { return t.tag }

// T returns the string for category/key with every "{name}" in params
// replaced. Missing keys log a warning and return Missing.
func (t *Translator) T(category, key string, params Params) string {
	s, ok := t.strings[category][key]
	if !ok || s == "" {
		log.Warn().Str("lang", t.tag.String()).Str("category", category).Str("key", key).Msg("missing language string")
		return Missing
	}
	for name, v := range params {
		s = strings.ReplaceAll(s, "{"+name+"}", fmt.Sprint(v))
	}
	return s
}
