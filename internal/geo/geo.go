// Package geo assigns coarse reporter locations from a fixed city table.
package geo

import (
	"hash/fnv"
	"strings"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

// Cities is the table reporters are mapped onto.
var Cities = []domain.Location{
	{City: "San Francisco", Country: "US", Latitude: 37.7749, Longitude: -122.4194},
	{City: "New York", Country: "US", Latitude: 40.7128, Longitude: -74.0060},
	{City: "London", Country: "UK", Latitude: 51.5074, Longitude: -0.1278},
	{City: "Berlin", Country: "Germany", Latitude: 52.5200, Longitude: 13.4050},
	{City: "Tokyo", Country: "Japan", Latitude: 35.6762, Longitude: 139.6503},
	{City: "Sydney", Country: "Australia", Latitude: -33.8688, Longitude: 151.2093},
	{City: "Toronto", Country: "Canada", Latitude: 43.6532, Longitude: -79.3832},
	{City: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522},
}

// Locator maps an IP address to a city.
type Locator interface {
	Locate(ip string) domain.Location
}

// HashLocator picks a city deterministically from the IP's FNV hash.
type HashLocator struct{}

func (HashLocator) Locate(ip string) domain.Location {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ip))
	return Cities[h.Sum32()%uint32(len(Cities))]
}

// Lookup returns the table entry for a city name, case-insensitively.
func Lookup(city string) (domain.Location, bool) {
	for _, c := range Cities {
		if strings.EqualFold(c.City, city) {
			return c, true
		}
	}
	return domain.Location{}, false
}

// WithCoordinates fills in missing coordinates from the city table.
func WithCoordinates(loc *domain.Location) *domain.Location {
	if loc == nil {
		return nil
	}
	out := *loc
	if out.Latitude == 0 && out.Longitude == 0 {
		if c, ok := Lookup(out.City); ok {
			out.Latitude, out.Longitude = c.Latitude, c.Longitude
		}
	}
	return &out
}
