package coordinator

import (
	"fmt"
	"strconv"

	"github.com/alexivanou/roamai/internal/chat"
	"github.com/alexivanou/roamai/internal/model"
)

// MapView describes the opaque map renderer
type MapView struct {
	Center   *model.Coordinate `json:"center,omitempty"`
	EmbedURL string            `json:"embed_url,omitempty"`
}

// ChatView is the chat overlay state
type ChatView struct {
	Open     bool                `json:"open"`
	Messages []model.ChatMessage `json:"messages"`
	State    *chat.State         `json:"state,omitempty"`
}

// VoiceView is the voice overlay state
type VoiceView struct {
	Active     bool   `json:"active"`
	Status     string `json:"status,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Snapshot is a consistent copy of the session state
type Snapshot struct {
	ID                 string                `json:"id"`
	Online             bool                  `json:"online"`
	BackOnline         bool                  `json:"back_online"`
	Location           model.LocationContext `json:"location"`
	Coords             *model.Coordinate     `json:"coords,omitempty"`
	Map                MapView               `json:"map"`
	Suggestions        []model.Suggestion    `json:"suggestions"`
	SuggestionsLoading bool                  `json:"suggestions_loading"`
	Discovery          bool                  `json:"discovery"`
	POI                *model.POICandidate   `json:"poi,omitempty"`
	IdentifyingPOI     bool                  `json:"identifying_poi"`
	Chat               ChatView              `json:"chat"`
	Voice              VoiceView             `json:"voice"`
	ProfileOpen        bool                  `json:"profile_open"`
	SettingsOpen       bool                  `json:"settings_open"`
	Profile            model.UserProfile     `json:"profile"`
	Settings           model.Settings        `json:"settings"`
	Interests          []model.Interest      `json:"interests"`
}

// EmbedURL returns the map embed address centred on at
func EmbedURL(at model.Coordinate) string {
	return fmt.Sprintf("https://maps.google.com/maps?q=%s,%s&z=15&ie=UTF8&iwloc=&output=embed",
		strconv.FormatFloat(at.Lat, 'f', -1, 64), strconv.FormatFloat(at.Lng, 'f', -1, 64))
}

// Snapshot returns the current state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ID:                 c.id,
		Online:             c.online,
		BackOnline:         c.backOnline,
		Location:           c.location,
		Coords:             copyCoord(c.coords),
		Suggestions:        append([]model.Suggestion{}, c.suggestions...),
		SuggestionsLoading: c.suggestionsLoading,
		Discovery:          c.discovery,
		IdentifyingPOI:     c.identifying,
		ProfileOpen:        c.profileOpen,
		SettingsOpen:       c.settingsOpen,
		Profile:            c.profile,
		Settings:           c.settings,
		Interests:          model.PresetInterests,
	}
	if c.center != nil {
		snap.Map = MapView{Center: copyCoord(c.center), EmbedURL: EmbedURL(*c.center)}
	}
	if c.poi != nil {
		poi := *c.poi
		poi.ImageURLs = append([]string(nil), c.poi.ImageURLs...)
		snap.POI = &poi
	}

	snap.Chat = ChatView{Open: c.chatOpen, Messages: c.messages.Messages()}
	if snap.Chat.Messages == nil {
		snap.Chat.Messages = []model.ChatMessage{}
	}
	if c.chatOpen && c.chat != nil {
		state := c.chat.State()
		snap.Chat.State = &state
	}

	if c.voice != nil {
		snap.Voice = VoiceView{Active: true, Status: c.voiceStatus.String(), Transcript: c.voiceTranscript}
	}
	return snap
}

func copyCoord(at *model.Coordinate) *model.Coordinate {
	if at == nil {
		return nil
	}
	v := *at
	return &v
}
