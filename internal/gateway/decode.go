package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexivanou/roamai/internal/model"
)

type placeResponse struct {
	City    *string `json:"city"`
	Country *string `json:"country"`
}

type poiResponse struct {
	Name             *string  `json:"name"`
	Type             *string  `json:"type"`
	Description      *string  `json:"description"`
	Address          *string  `json:"address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	OpeningHours     *string  `json:"opening_hours"`
	ImageURLs        []string `json:"imageUrls"`
}

type suggestionItem struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
}

type suggestionsResponse struct {
	Suggestions []suggestionItem `json:"suggestions"`
}

// missing collects the names of absent required fields
type missing []string

func (m *missing) str(name string, v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		*m = append(*m, name)
		return ""
	}
	return strings.TrimSpace(*v)
}

func (m missing) err() error {
	if len(m) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", ErrInvalidResponse, strings.Join(m, ", "))
}

func decodeJSON(text string, v any) error {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// stripFence removes a ```json ... ``` wrapper
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

// DecodePlace parses a reverse-geocode answer; city and country are required
func DecodePlace(text string) (model.Place, error) {
	var resp placeResponse
	if err := decodeJSON(text, &resp); err != nil {
		return model.Place{}, err
	}

	var m missing
	place := model.Place{
		City:    m.str("city", resp.City),
		Country: m.str("country", resp.Country),
	}
	if err := m.err(); err != nil {
		return model.Place{}, err
	}
	return place, nil
}

// DecodePOI parses a landmark answer. name, type, description, address,
// rating and imageUrls are required.
func DecodePOI(text string) (model.POIEnrichment, error) {
	var resp poiResponse
	if err := decodeJSON(text, &resp); err != nil {
		return model.POIEnrichment{}, err
	}

	var m missing
	e := model.POIEnrichment{
		Name:             m.str("name", resp.Name),
		Type:             m.str("type", resp.Type),
		Description:      m.str("description", resp.Description),
		Address:          m.str("address", resp.Address),
		Rating:           resp.Rating,
		UserRatingsTotal: resp.UserRatingsTotal,
		ImageURLs:        resp.ImageURLs,
	}
	if resp.Rating == nil {
		m = append(m, "rating")
	}
	if resp.ImageURLs == nil {
		m = append(m, "imageUrls")
	}
	if resp.OpeningHours != nil {
		e.OpeningHours = strings.TrimSpace(*resp.OpeningHours)
	}
	if err := m.err(); err != nil {
		return model.POIEnrichment{}, err
	}
	return e, nil
}

// DecodeSuggestions parses a quick-suggestions answer; every item needs all four fields
func DecodeSuggestions(text string) ([]model.Suggestion, error) {
	var resp suggestionsResponse
	if err := decodeJSON(text, &resp); err != nil {
		return nil, err
	}
	if resp.Suggestions == nil {
		return nil, fmt.Errorf("%w: missing suggestions", ErrInvalidResponse)
	}

	out := make([]model.Suggestion, 0, len(resp.Suggestions))
	for i, item := range resp.Suggestions {
		var m missing
		s := model.Suggestion{
			Title:       m.str("title", item.Title),
			Category:    m.str("category", item.Category),
			Icon:        m.str("icon", item.Icon),
			Description: m.str("description", item.Description),
		}
		if err := m.err(); err != nil {
			return nil, fmt.Errorf("suggestion %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
