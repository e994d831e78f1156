package model

// UserStatus is the presence shown next to the avatar
type UserStatus string

const (
	StatusOnline    UserStatus = "online"
	StatusBusy      UserStatus = "busy"
	StatusExploring UserStatus = "exploring"
)

// UserProfile represents the device owner
type UserProfile struct {
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Status    UserStatus `json:"status"`
}

// Settings holds the toggles of the settings overlay
type Settings struct {
	ProximityAlerts bool `json:"proximity_alerts"`
	EnhancedAI      bool `json:"enhanced_ai"`
}

// DefaultSettings returns the settings a new session starts with
func DefaultSettings() Settings {
	return Settings{ProximityAlerts: true}
}
