package model

// Suggestion is a quick-pick travel idea for the current city
type Suggestion struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Interest is a preset filter the chat assistant can take into account
type Interest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// PresetInterests lists the interest tags offered in chat
var PresetInterests = []Interest{
	{ID: "history", Label: "History", Icon: "🏛️"},
	{ID: "food", Label: "Food", Icon: "🍔"},
	{ID: "family", Label: "Family", Icon: "👨‍👩‍👧‍👦"},
	{ID: "nature", Label: "Nature", Icon: "🌳"},
	{ID: "art", Label: "Art", Icon: "🎨"},
	{ID: "nightlife", Label: "Nightlife", Icon: "🍸"},
}

// LookupInterest finds a preset by id
func LookupInterest(id string) (Interest, bool) {
	for _, in := range PresetInterests {
		if in.ID == id {
			return in, true
		}
	}
	return Interest{}, false
}
