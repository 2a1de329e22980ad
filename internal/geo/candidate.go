// Package geo defines the normalized place candidate shape shared by every
// resolution tier. Provider adapters convert their wire formats into
// Candidate at the boundary; nothing downstream sees a provider-specific shape.
package geo

import (
	"fmt"
	"strings"
)

// Candidate is a single resolved place returned by any tier.
type Candidate struct {
	// ID is provider-qualified and unique within a result set,
	// e.g. "nominatim-240109189" or "local-tokyo-jp".
	ID string `json:"id"`

	// Name is the canonical (English) place name.
	Name string `json:"name"`

	// LocalizedName is set only when it differs case-insensitively from Name
	// and the active language is non-English.
	LocalizedName string `json:"localized_name,omitempty"`

	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Region      string `json:"region,omitempty"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Population is used only for ranking; zero means unknown.
	Population int64 `json:"population,omitempty"`

	// Label is the display string "{Name}, {Country}".
	Label string `json:"label"`
}

// Valid reports whether the candidate can be surfaced to callers.
// Candidates with out-of-range coordinates or an empty name are discarded.
func (c Candidate) Valid() bool {
	if strings.TrimSpace(c.Name) == "" {
		return false
	}
	return ValidCoordinates(c.Latitude, c.Longitude)
}

// ValidCoordinates reports whether lat/lon fall inside WGS84 ranges.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// MakeLabel builds the display label for a name/country pair.
func MakeLabel(name, country string) string {
	if country == "" {
		return name
	}
	return fmt.Sprintf("%s, %s", name, country)
}

// Slug lowercases a name for use in local candidate IDs.
func Slug(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		p = strings.ReplaceAll(p, " ", "-")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "-")
}

// Sanitize filters out invalid candidates and fills in missing labels.
func Sanitize(in []Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if !c.Valid() {
			continue
		}
		if c.Label == "" {
			c.Label = MakeLabel(c.Name, c.Country)
		}
		out = append(out, c)
	}
	return out
}

// DedupeByID keeps the first occurrence of each candidate ID, preserving order.
func DedupeByID(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
