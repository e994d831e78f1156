// Package gateway is the façade over the hosted generative model: reverse
// geocoding, landmark identification, quick suggestions and chat completion.
// Every operation is a single request/response exchange without retries.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/alexivanou/roamai/internal/model"
)

// ErrInvalidResponse is returned when the model output does not decode into
// the expected shape or misses a required field
var ErrInvalidResponse = errors.New("gateway: invalid model response")

// Gateway defines the AI operations the session core depends on
type Gateway interface {
	ReverseGeocode(ctx context.Context, at model.Coordinate) (model.Place, error)
	IdentifyPOI(ctx context.Context, probe model.POICandidate, near model.LocationContext) (model.POIEnrichment, error)
	QuickSuggestions(ctx context.Context, city, country string) ([]model.Suggestion, error)
	ChatComplete(ctx context.Context, history []model.ChatMessage, systemContext string) (Reply, error)
}

// Reply is a cleaned assistant answer with its grounding citations
type Reply struct {
	Text  string
	Links []model.Link
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func reverseGeocodePrompt(at model.Coordinate) string {
	return fmt.Sprintf(
		"You are a high-accuracy geolocation service. Given latitude: %s, longitude: %s, identify the city and country. Return valid JSON.",
		formatDegrees(at.Lat), formatDegrees(at.Lng),
	)
}

func identifyPOIPrompt(probe model.POICandidate, near model.LocationContext) string {
	return fmt.Sprintf(
		"Identify the specific point of interest or major landmark at exactly latitude %s, longitude %s in %s. "+
			"Provide high-quality details including rating, opening status, and descriptive images.",
		formatDegrees(probe.Lat), formatDegrees(probe.Lng), near.Label(),
	)
}

func quickSuggestionsPrompt(city, country string) string {
	return fmt.Sprintf(
		"Provide 2 short, diverse travel suggestions for things to do or places to visit near %s, %s. Include an emoji icon for each.",
		city, country,
	)
}
