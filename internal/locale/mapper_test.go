package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relata-hq/location-cli/internal/geo"
)

// stubAlt is a minimal AlternateSource for tests.
type stubAlt struct {
	byLang map[string]map[string]string // lang → canonical → localized
}

func (s *stubAlt) AlternateName(name, lang string) (string, bool) {
	if alt, ok := s.byLang[lang][name]; ok {
		return alt, true
	}
	return "", false
}

func (s *stubAlt) CanonicalName(localized, lang string) (string, bool) {
	for l, byName := range s.byLang {
		if lang != "" && l != lang {
			continue
		}
		for canonical, alt := range byName {
			if alt == localized {
				return canonical, true
			}
		}
	}
	return "", false
}

func TestToLocalized_StaticTable(t *testing.T) {
	m := NewMapper(nil)

	assert.Equal(t, "Firenze", m.ToLocalized("Florence", "it"))
	assert.Equal(t, "München", m.ToLocalized("Munich", "de"))
	assert.Equal(t, "Firenze", m.ToLocalized("florence", "it"), "canonical lookup is case-insensitive")
}

func TestToLocalized_IdentityFallback(t *testing.T) {
	m := NewMapper(nil)

	assert.Equal(t, "Springfield", m.ToLocalized("Springfield", "it"))
	assert.Equal(t, "Florence", m.ToLocalized("Florence", "en"))
	assert.Equal(t, "Florence", m.ToLocalized("Florence", ""))
}

func TestToLocalized_AlternateSourceSecond(t *testing.T) {
	alt := &stubAlt{byLang: map[string]map[string]string{
		"sv": {"Helsinki": "Helsingfors"},
	}}
	m := NewMapper(alt)

	assert.Equal(t, "Helsingfors", m.ToLocalized("Helsinki", "sv"))
}

func TestToLocalized_RegionTagsCollapseToBase(t *testing.T) {
	m := NewMapper(nil)

	assert.Equal(t, "Lisboa", m.ToLocalized("Lisbon", "pt-BR"))
}

func TestToCanonical(t *testing.T) {
	m := NewMapper(nil)

	assert.Equal(t, "Florence", m.ToCanonical("Firenze", "it"))
	assert.Equal(t, "Florence", m.ToCanonical("firenze", "en"), "reverse lookup ignores the session language")
	assert.Equal(t, "Vienna", m.ToCanonical("Wien", ""))
	assert.Equal(t, "Atlantis", m.ToCanonical("Atlantis", "it"), "unknown input returned unchanged")
}

func TestToCanonical_AlternateSource(t *testing.T) {
	alt := &stubAlt{byLang: map[string]map[string]string{
		"fi": {"Helsinki": "Helsingissä"},
	}}
	m := NewMapper(alt)

	assert.Equal(t, "Helsinki", m.ToCanonical("Helsingissä", "fi"))
	assert.Equal(t, "Helsinki", m.ToCanonical("Helsingissä", "de"), "falls back to an all-language scan")
}

func TestAnnotate(t *testing.T) {
	m := NewMapper(nil)
	c := geo.Candidate{Name: "Florence", Country: "Italy"}

	got := m.Annotate(c, "it")
	assert.Equal(t, "Firenze", got.LocalizedName)

	got = m.Annotate(c, "en")
	assert.Empty(t, got.LocalizedName, "English sessions carry no localized name")

	// A localized spelling equal to the canonical name is suppressed.
	got = m.Annotate(geo.Candidate{Name: "Berlin"}, "de")
	assert.Empty(t, got.LocalizedName)
}

func TestAnnotateAll(t *testing.T) {
	m := NewMapper(nil)
	in := []geo.Candidate{{Name: "Florence"}, {Name: "Berlin"}}

	out := m.AnnotateAll(in, "it")
	assert.Equal(t, "Firenze", out[0].LocalizedName)
	assert.Empty(t, out[1].LocalizedName)
}

func TestBaseLang(t *testing.T) {
	assert.Equal(t, "pt", BaseLang("pt-BR"))
	assert.Equal(t, "en", BaseLang("en-US"))
	assert.Equal(t, "it", BaseLang("IT"))
	assert.Equal(t, "", BaseLang(""))
}
