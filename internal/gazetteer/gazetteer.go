// Package gazetteer provides an in-memory fuzzy-search index over a bundled
// static city dataset. It is the guaranteed-available resolution tier: no
// network dependency, built lazily on first use, and degrading to an empty
// index if the bundled data cannot be parsed.
package gazetteer

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/relata-hq/location-cli/internal/geo"
)

//go:embed data/cities.yaml
var citiesYAML []byte

const (
	// MinQueryLen is the minimum query length for fuzzy search.
	MinQueryLen = 2

	// matchThreshold is the precision-tuned cutoff on the 0–1 match scale,
	// where 0 is an exact match.
	matchThreshold = 0.3

	// maxInputLen caps query length before any distance computation.
	maxInputLen = 100

	// s2CellLevel is the storage level of the proximity index. Level 7
	// cells are ~80km across, a reasonable bucket for city centroids.
	s2CellLevel = 7

	earthRadiusMeters = 6371008.8
)

// City is one bundled dataset entry.
type City struct {
	Name        string  `yaml:"name"`
	Country     string  `yaml:"country"`
	CountryCode string  `yaml:"country_code"`
	Region      string  `yaml:"region,omitempty"`
	Latitude    float64 `yaml:"lat"`
	Longitude   float64 `yaml:"lon"`
	Population  int64   `yaml:"population"`

	// AlternateNames maps ISO language codes to localized spellings.
	AlternateNames map[string]string `yaml:"alternate_names,omitempty"`
}

type dataset struct {
	Cities []City `yaml:"cities"`
}

// Index is the lazily-built gazetteer. The zero value is not usable; create
// one with New. All methods are safe for concurrent use after construction.
type Index struct {
	buildOnce sync.Once
	buildErr  error

	cities    []City
	cellIndex map[s2.CellID][]int

	// raw overrides the embedded dataset; tests use it.
	raw []byte
}

// New creates an Index over the embedded dataset. The index is built on
// first use; call Warm to build it eagerly.
func New() *Index {
	return &Index{raw: citiesYAML}
}

// newFromBytes builds an index over caller-supplied YAML. Test seam.
func newFromBytes(raw []byte) *Index {
	return &Index{raw: raw}
}

// Warm builds the index if it has not been built yet. Safe to call from a
// background goroutine at startup so the first search never pays the build.
func (ix *Index) Warm() error {
	ix.ensureBuilt()
	return ix.buildErr
}

// Ready reports whether the index has been built and holds entries.
func (ix *Index) Ready() bool {
	ix.ensureBuilt()
	return len(ix.cities) > 0
}

func (ix *Index) ensureBuilt() {
	ix.buildOnce.Do(func() {
		var ds dataset
		if err := yaml.Unmarshal(ix.raw, &ds); err != nil {
			// Degrade to an empty index; callers treat "empty" and
			// "unavailable" identically and fall through to the
			// static list.
			ix.buildErr = err
			zap.L().Warn("gazetteer: dataset failed to load", zap.Error(err))
			return
		}

		cities := make([]City, 0, len(ds.Cities))
		for _, c := range ds.Cities {
			if c.Name == "" || !geo.ValidCoordinates(c.Latitude, c.Longitude) {
				continue
			}
			cities = append(cities, c)
		}
		ix.cities = cities

		ix.cellIndex = make(map[s2.CellID][]int, len(cities))
		for i, c := range cities {
			cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Latitude, c.Longitude)).Parent(s2CellLevel)
			ix.cellIndex[cell] = append(ix.cellIndex[cell], i)
		}

		zap.L().Debug("gazetteer: index built", zap.Int("cities", len(cities)))
	})
}

// Candidate converts a dataset entry into the normalized candidate shape.
func (c City) Candidate() geo.Candidate {
	return geo.Candidate{
		ID:          "local-" + geo.Slug(c.Name, c.CountryCode),
		Name:        c.Name,
		Country:     c.Country,
		CountryCode: c.CountryCode,
		Region:      c.Region,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Population:  c.Population,
		Label:       geo.MakeLabel(c.Name, c.Country),
	}
}

// Search fuzzy-matches query against city names, countries, regions and
// alternate-language names. Results are ordered by match quality, then
// population. Queries shorter than MinQueryLen return nil.
func (ix *Index) Search(query string, limit int) []geo.Candidate {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLen {
		return nil
	}
	if runes := []rune(query); len(runes) > maxInputLen {
		query = string(runes[:maxInputLen])
	}
	if limit <= 0 {
		limit = 10
	}

	ix.ensureBuilt()

	type scored struct {
		idx   int
		score float64
	}
	matches := make([]scored, 0, 16)
	for i := range ix.cities {
		if s, ok := ix.score(query, &ix.cities[i]); ok {
			matches = append(matches, scored{idx: i, score: s})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].score != matches[b].score {
			return matches[a].score < matches[b].score
		}
		return ix.cities[matches[a].idx].Population > ix.cities[matches[b].idx].Population
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]geo.Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, ix.cities[m.idx].Candidate())
	}
	return out
}

// PopularCities returns the top-n entries by population descending. If the
// index is unavailable a small hard-coded list is returned instead.
func (ix *Index) PopularCities(n int) []geo.Candidate {
	if n <= 0 {
		n = 8
	}

	ix.ensureBuilt()
	if len(ix.cities) == 0 {
		if n > len(popularFallback) {
			n = len(popularFallback)
		}
		return append([]geo.Candidate(nil), popularFallback[:n]...)
	}

	idx := make([]int, len(ix.cities))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ix.cities[idx[a]].Population > ix.cities[idx[b]].Population
	})

	if n > len(idx) {
		n = len(idx)
	}
	out := make([]geo.Candidate, 0, n)
	for _, i := range idx[:n] {
		out = append(out, ix.cities[i].Candidate())
	}
	return out
}

// CitiesByCountry returns up to n entries for an ISO country code, ordered
// by population descending.
func (ix *Index) CitiesByCountry(code string, n int) []geo.Candidate {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if n <= 0 {
		n = 10
	}

	ix.ensureBuilt()

	var idx []int
	for i := range ix.cities {
		if strings.EqualFold(ix.cities[i].CountryCode, code) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ix.cities[idx[a]].Population > ix.cities[idx[b]].Population
	})

	if n < len(idx) {
		idx = idx[:n]
	}
	out := make([]geo.Candidate, 0, len(idx))
	for _, i := range idx {
		out = append(out, ix.cities[i].Candidate())
	}
	return out
}

// Nearby returns cities within radiusMeters of the given point, nearest
// first, using the s2 cell index to bound the scan.
func (ix *Index) Nearby(lat, lon, radiusMeters float64, limit int) []geo.Candidate {
	if !geo.ValidCoordinates(lat, lon) || radiusMeters <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	ix.ensureBuilt()
	if len(ix.cities) == 0 {
		return nil
	}

	center := s2.LatLngFromDegrees(lat, lon)
	region := s2.CapFromCenterAngle(s2.PointFromLatLng(center), s1.Angle(radiusMeters/earthRadiusMeters))

	coverer := &s2.RegionCoverer{MinLevel: s2CellLevel, MaxLevel: s2CellLevel, MaxCells: 256}
	covering := coverer.Covering(region)

	type scored struct {
		idx  int
		dist float64
	}
	var found []scored
	seen := make(map[int]bool)
	for _, cell := range covering {
		for _, i := range ix.cellIndex[cell] {
			if seen[i] {
				continue
			}
			seen[i] = true
			c := ix.cities[i]
			d := center.Distance(s2.LatLngFromDegrees(c.Latitude, c.Longitude)).Radians() * earthRadiusMeters
			if d <= radiusMeters {
				found = append(found, scored{idx: i, dist: d})
			}
		}
	}

	sort.SliceStable(found, func(a, b int) bool { return found[a].dist < found[b].dist })
	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]geo.Candidate, 0, len(found))
	for _, f := range found {
		out = append(out, ix.cities[f.idx].Candidate())
	}
	return out
}

// AlternateName returns the localized spelling of a canonical city name for
// a language, if the dataset has one.
func (ix *Index) AlternateName(name, lang string) (string, bool) {
	ix.ensureBuilt()
	for i := range ix.cities {
		c := &ix.cities[i]
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if alt, ok := c.AlternateNames[lang]; ok && alt != "" {
			return alt, true
		}
	}
	return "", false
}

// CanonicalName maps a localized spelling back to the canonical name. The
// language hint narrows the lookup when set; otherwise all languages are
// scanned so that e.g. "Firenze" resolves even under an English session.
func (ix *Index) CanonicalName(localized, lang string) (string, bool) {
	ix.ensureBuilt()
	for i := range ix.cities {
		c := &ix.cities[i]
		if lang != "" {
			if alt, ok := c.AlternateNames[lang]; ok && strings.EqualFold(alt, localized) {
				return c.Name, true
			}
			continue
		}
		for _, alt := range c.AlternateNames {
			if strings.EqualFold(alt, localized) {
				return c.Name, true
			}
		}
	}
	return "", false
}
