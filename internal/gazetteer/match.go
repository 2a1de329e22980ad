package gazetteer

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/relata-hq/location-cli/internal/geo"
)

// score rates how well query matches a city across its name, country, region
// and alternate names. The scale is 0–1 with 0 exact; matches are location-
// agnostic within a field (a token may match anywhere, not just at position
// 0). Returns false when the city does not clear the match threshold.
func (ix *Index) score(query string, c *City) (float64, bool) {
	fields := make([]string, 0, 4+len(c.AlternateNames))
	fields = append(fields, c.Name, c.Country, c.Region, c.CountryCode)
	for _, alt := range c.AlternateNames {
		fields = append(fields, alt)
	}

	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0, false
	}

	// Every query token must match some field; the city's score is the
	// mean of per-token best scores.
	var total float64
	for _, qt := range qTokens {
		best := 1.0
		for _, f := range fields {
			if f == "" {
				continue
			}
			if s := fieldScore(qt, f); s < best {
				best = s
			}
		}
		if best > matchThreshold {
			return 0, false
		}
		total += best
	}
	return total / float64(len(qTokens)), true
}

// fieldScore rates one query token against one field. 0 is an exact
// case-insensitive match on the field or one of its tokens; substring
// matches score slightly worse; everything else is normalized edit distance.
func fieldScore(token, field string) float64 {
	lt := strings.ToLower(token)
	lf := strings.ToLower(field)

	if lt == lf {
		return 0
	}

	best := 1.0
	for _, ft := range tokenize(lf) {
		switch {
		case ft == lt:
			return 0
		case strings.Contains(ft, lt) || strings.Contains(lt, ft):
			if s := 0.1; s < best {
				best = s
			}
		default:
			longer := len([]rune(ft))
			if l := len([]rune(lt)); l > longer {
				longer = l
			}
			if longer == 0 {
				continue
			}
			d := levenshtein.ComputeDistance(lt, ft)
			if s := float64(d) / float64(longer); s < best {
				best = s
			}
		}
	}

	// Whole-field substring match handles multi-word prefixes like
	// "rio de" against "Rio de Janeiro".
	if strings.Contains(lf, lt) && 0.1 < best {
		best = 0.1
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '_' || r == '/'
	})
}

// popularFallback is returned by PopularCities when the bundled dataset has
// not loaded. Mirrors the highest-population dataset entries.
var popularFallback = []geo.Candidate{
	{ID: "local-tokyo-jp", Name: "Tokyo", Country: "Japan", CountryCode: "JP", Region: "Tokyo", Latitude: 35.6762, Longitude: 139.6503, Population: 13960000, Label: "Tokyo, Japan"},
	{ID: "local-shanghai-cn", Name: "Shanghai", Country: "China", CountryCode: "CN", Region: "Shanghai", Latitude: 31.2304, Longitude: 121.4737, Population: 24870895, Label: "Shanghai, China"},
	{ID: "local-delhi-in", Name: "Delhi", Country: "India", CountryCode: "IN", Region: "Delhi", Latitude: 28.7041, Longitude: 77.1025, Population: 16787941, Label: "Delhi, India"},
	{ID: "local-new-york-us", Name: "New York", Country: "United States", CountryCode: "US", Region: "New York", Latitude: 40.7128, Longitude: -74.006, Population: 8336817, Label: "New York, United States"},
	{ID: "local-london-gb", Name: "London", Country: "United Kingdom", CountryCode: "GB", Region: "England", Latitude: 51.5074, Longitude: -0.1278, Population: 8982000, Label: "London, United Kingdom"},
	{ID: "local-paris-fr", Name: "Paris", Country: "France", CountryCode: "FR", Region: "Île-de-France", Latitude: 48.8566, Longitude: 2.3522, Population: 2148271, Label: "Paris, France"},
	{ID: "local-istanbul-tr", Name: "Istanbul", Country: "Turkey", CountryCode: "TR", Region: "Istanbul", Latitude: 41.0082, Longitude: 28.9784, Population: 15462452, Label: "Istanbul, Turkey"},
	{ID: "local-moscow-ru", Name: "Moscow", Country: "Russia", CountryCode: "RU", Region: "Moscow", Latitude: 55.7558, Longitude: 37.6173, Population: 12506468, Label: "Moscow, Russia"},
	{ID: "local-seoul-kr", Name: "Seoul", Country: "South Korea", CountryCode: "KR", Region: "Seoul", Latitude: 37.5665, Longitude: 126.978, Population: 9733509, Label: "Seoul, South Korea"},
	{ID: "local-mexico-city-mx", Name: "Mexico City", Country: "Mexico", CountryCode: "MX", Region: "Ciudad de México", Latitude: 19.4326, Longitude: -99.1332, Population: 9209944, Label: "Mexico City, Mexico"},
}
