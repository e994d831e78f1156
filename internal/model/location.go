package model

import "math"

// Coordinate represents a sensor-observed position
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatDelta returns the absolute latitude difference between two coordinates
func (c Coordinate) LatDelta(other Coordinate) float64 {
	return math.Abs(c.Lat - other.Lat)
}

// Placeholder values shown before the first successful reverse-geocode
const (
	DetectingCity    = "Detecting"
	DetectingCountry = "Location"

	LocationAccessDenied = "Location Access Denied"
)

// LocationContext is the resolved human-readable place of the device
type LocationContext struct {
	City       string `json:"city"`
	Country    string `json:"country"`
	IsLocating bool   `json:"is_locating"`
	Error      string `json:"error,omitempty"`
}

// NewLocationContext returns the initial locating context
func NewLocationContext() LocationContext {
	return LocationContext{
		City:       DetectingCity,
		Country:    DetectingCountry,
		IsLocating: true,
	}
}

// Label returns the "city, country" form used in prompts
func (l LocationContext) Label() string {
	return l.City + ", " + l.Country
}

// Resolved returns a context for a successful reverse-geocode
func Resolved(city, country string) LocationContext {
	return LocationContext{City: city, Country: country}
}

// Place is the result of a reverse-geocode
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}
