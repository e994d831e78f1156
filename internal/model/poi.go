package model

// Pending and fallback values of a POI candidate
const (
	PendingPOIName = "Identifying Place..."
	PendingPOIType = "searching"

	FallbackPOIName        = "Nearby Landmark"
	FallbackPOIType        = "Unknown"
	FallbackPOIDescription = "Information temporarily unavailable."
)

// POICandidate is a point the user probed on the map
type POICandidate struct {
	Name             string   `json:"name"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	Type             string   `json:"type"`
	Description      string   `json:"description,omitempty"`
	Address          string   `json:"address,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	OpeningHours     string   `json:"opening_hours,omitempty"`
	ImageURLs        []string `json:"imageUrls,omitempty"`
}

// NewProbe creates a candidate in its pending shape
func NewProbe(at Coordinate) POICandidate {
	return POICandidate{
		Name: PendingPOIName,
		Lat:  at.Lat,
		Lng:  at.Lng,
		Type: PendingPOIType,
	}
}

// IsPending reports whether the candidate is still waiting for enrichment
func (p POICandidate) IsPending() bool {
	return p.Type == PendingPOIType && p.Name == PendingPOIName
}

// POIEnrichment holds the fields returned by landmark identification
type POIEnrichment struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Description      string   `json:"description"`
	Address          string   `json:"address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	OpeningHours     string   `json:"opening_hours,omitempty"`
	ImageURLs        []string `json:"imageUrls"`
}

// FallbackEnrichment is merged onto a probe when identification fails
func FallbackEnrichment() POIEnrichment {
	return POIEnrichment{
		Name:        FallbackPOIName,
		Type:        FallbackPOIType,
		Description: FallbackPOIDescription,
	}
}

// Merge returns the candidate with the enrichment fields applied in place.
// Coordinates always come from the probe.
func (p POICandidate) Merge(e POIEnrichment) POICandidate {
	merged := p
	merged.Name = e.Name
	merged.Type = e.Type
	merged.Description = e.Description
	if e.Address != "" {
		merged.Address = e.Address
	}
	if e.Rating != nil {
		merged.Rating = e.Rating
	}
	if e.UserRatingsTotal != nil {
		merged.UserRatingsTotal = e.UserRatingsTotal
	}
	if e.OpeningHours != "" {
		merged.OpeningHours = e.OpeningHours
	}
	if len(e.ImageURLs) > 0 {
		merged.ImageURLs = append([]string(nil), e.ImageURLs...)
	}
	return merged
}
