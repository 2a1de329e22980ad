package resolve

import (
	"strings"

	"github.com/relata-hq/location-cli/internal/geo"
)

// staticCities is the hard floor of the chain: a fixed list of major
// cities that answers even when every other tier is broken.
var staticCities = []geo.Candidate{
	{ID: "static-london-gb", Name: "London", Country: "United Kingdom", CountryCode: "GB", Latitude: 51.5074, Longitude: -0.1278, Population: 8982000},
	{ID: "static-new-york-us", Name: "New York", Country: "United States", CountryCode: "US", Region: "New York", Latitude: 40.7128, Longitude: -74.0060, Population: 8336817},
	{ID: "static-paris-fr", Name: "Paris", Country: "France", CountryCode: "FR", Latitude: 48.8566, Longitude: 2.3522, Population: 2161000},
	{ID: "static-tokyo-jp", Name: "Tokyo", Country: "Japan", CountryCode: "JP", Latitude: 35.6762, Longitude: 139.6503, Population: 13960000},
	{ID: "static-berlin-de", Name: "Berlin", Country: "Germany", CountryCode: "DE", Latitude: 52.5200, Longitude: 13.4050, Population: 3769000},
	{ID: "static-madrid-es", Name: "Madrid", Country: "Spain", CountryCode: "ES", Latitude: 40.4168, Longitude: -3.7038, Population: 3223000},
	{ID: "static-rome-it", Name: "Rome", Country: "Italy", CountryCode: "IT", Latitude: 41.9028, Longitude: 12.4964, Population: 2873000},
	{ID: "static-amsterdam-nl", Name: "Amsterdam", Country: "Netherlands", CountryCode: "NL", Latitude: 52.3676, Longitude: 4.9041, Population: 872680},
	{ID: "static-sydney-au", Name: "Sydney", Country: "Australia", CountryCode: "AU", Latitude: -33.8688, Longitude: 151.2093, Population: 5312000},
	{ID: "static-toronto-ca", Name: "Toronto", Country: "Canada", CountryCode: "CA", Region: "Ontario", Latitude: 43.6532, Longitude: -79.3832, Population: 2930000},
	{ID: "static-singapore-sg", Name: "Singapore", Country: "Singapore", CountryCode: "SG", Latitude: 1.3521, Longitude: 103.8198, Population: 5686000},
	{ID: "static-dubai-ae", Name: "Dubai", Country: "United Arab Emirates", CountryCode: "AE", Latitude: 25.2048, Longitude: 55.2708, Population: 3331000},
	{ID: "static-sao-paulo-br", Name: "São Paulo", Country: "Brazil", CountryCode: "BR", Latitude: -23.5505, Longitude: -46.6333, Population: 12325000},
	{ID: "static-mexico-city-mx", Name: "Mexico City", Country: "Mexico", CountryCode: "MX", Latitude: 19.4326, Longitude: -99.1332, Population: 9209944},
	{ID: "static-mumbai-in", Name: "Mumbai", Country: "India", CountryCode: "IN", Latitude: 19.0760, Longitude: 72.8777, Population: 20411000},
	{ID: "static-shanghai-cn", Name: "Shanghai", Country: "China", CountryCode: "CN", Latitude: 31.2304, Longitude: 121.4737, Population: 26320000},
	{ID: "static-seoul-kr", Name: "Seoul", Country: "South Korea", CountryCode: "KR", Latitude: 37.5665, Longitude: 126.9780, Population: 9776000},
	{ID: "static-cairo-eg", Name: "Cairo", Country: "Egypt", CountryCode: "EG", Latitude: 30.0444, Longitude: 31.2357, Population: 9540000},
	{ID: "static-lagos-ng", Name: "Lagos", Country: "Nigeria", CountryCode: "NG", Latitude: 6.5244, Longitude: 3.3792, Population: 14862000},
	{ID: "static-buenos-aires-ar", Name: "Buenos Aires", Country: "Argentina", CountryCode: "AR", Latitude: -34.6037, Longitude: -58.3816, Population: 3075646},
}

func staticMatches(query string) []geo.Candidate {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	var out []geo.Candidate
	for _, c := range staticCities {
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Country), needle) {
			out = append(out, c)
		}
	}
	return out
}
