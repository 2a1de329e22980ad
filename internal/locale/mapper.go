// Package locale maps city names between their canonical (English) spelling
// and localized spellings. Lookups consult a small static translations table
// first, then the gazetteer's alternate-names data; when neither has an
// entry the input is returned unchanged.
package locale

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/relata-hq/location-cli/internal/geo"
)

// AlternateSource supplies per-city alternate names, typically the gazetteer.
type AlternateSource interface {
	AlternateName(name, lang string) (string, bool)
	CanonicalName(localized, lang string) (string, bool)
}

// translations maps ISO language code → canonical name → localized spelling,
// for well-known city translations.
var translations = map[string]map[string]string{
	"it": {
		"Florence": "Firenze",
		"Venice":   "Venezia",
		"Milan":    "Milano",
		"Naples":   "Napoli",
		"Rome":     "Roma",
		"Turin":    "Torino",
		"London":   "Londra",
		"Munich":   "Monaco di Baviera",
	},
	"de": {
		"Munich":   "München",
		"Cologne":  "Köln",
		"Vienna":   "Wien",
		"Zurich":   "Zürich",
		"Florence": "Florenz",
	},
	"fr": {
		"London": "Londres",
		"Geneva": "Genève",
	},
	"es": {
		"London":      "Londres",
		"Seville":     "Sevilla",
		"Mexico City": "Ciudad de México",
	},
	"nl": {
		"The Hague": "Den Haag",
		"Brussels":  "Brussel",
	},
	"pl": {
		"Warsaw": "Warszawa",
	},
	"pt": {
		"Lisbon": "Lisboa",
	},
	"cs": {
		"Prague": "Praha",
	},
	"da": {
		"Copenhagen": "København",
	},
	"ru": {
		"Moscow": "Москва",
	},
	"ja": {
		"Tokyo": "東京",
		"Osaka": "大阪",
	},
}

// reverse maps lowercase localized spelling → canonical name, across all
// languages, so a localized query resolves under any session language.
var reverse = func() map[string]string {
	m := make(map[string]string)
	for _, byName := range translations {
		for canonical, localized := range byName {
			m[strings.ToLower(localized)] = canonical
		}
	}
	return m
}()

// Mapper performs bidirectional canonical↔localized name lookups.
type Mapper struct {
	alt AlternateSource
}

// NewMapper creates a Mapper backed by the given alternate-name source,
// which may be nil (static table only).
func NewMapper(alt AlternateSource) *Mapper {
	return &Mapper{alt: alt}
}

// BaseLang normalizes a language tag to its base code: "pt-BR" → "pt".
// Unparseable tags are lowercased and returned as-is.
func BaseLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}

// ToLocalized returns the localized spelling of a canonical name for lang,
// or the input unchanged.
func (m *Mapper) ToLocalized(name, lang string) string {
	lang = BaseLang(lang)
	if name == "" || lang == "" || lang == "en" {
		return name
	}

	if byName, ok := translations[lang]; ok {
		for canonical, localized := range byName {
			if strings.EqualFold(canonical, name) {
				return localized
			}
		}
	}
	if m.alt != nil {
		if localized, ok := m.alt.AlternateName(name, lang); ok {
			return localized
		}
	}
	return name
}

// ToCanonical returns the canonical (English) name for a localized spelling.
// The language hint narrows the lookup but is not required: a localized
// spelling from any known language resolves. Unknown input is returned
// unchanged.
func (m *Mapper) ToCanonical(localized, lang string) string {
	if localized == "" {
		return localized
	}
	lang = BaseLang(lang)

	if canonical, ok := reverse[strings.ToLower(localized)]; ok {
		return canonical
	}
	if m.alt != nil {
		if canonical, ok := m.alt.CanonicalName(localized, lang); ok {
			return canonical
		}
		if lang != "" {
			if canonical, ok := m.alt.CanonicalName(localized, ""); ok {
				return canonical
			}
		}
	}
	return localized
}

// Annotate fills in a candidate's LocalizedName for lang. The field is set
// only when the localized spelling is non-empty and differs from the
// canonical name case-insensitively.
func (m *Mapper) Annotate(c geo.Candidate, lang string) geo.Candidate {
	base := BaseLang(lang)
	if base == "" || base == "en" {
		return c
	}
	localized := m.ToLocalized(c.Name, base)
	if localized != "" && !strings.EqualFold(localized, c.Name) {
		c.LocalizedName = localized
	}
	return c
}

// AnnotateAll applies Annotate across a result set.
func (m *Mapper) AnnotateAll(cs []geo.Candidate, lang string) []geo.Candidate {
	out := make([]geo.Candidate, len(cs))
	for i, c := range cs {
		out[i] = m.Annotate(c, lang)
	}
	return out
}
