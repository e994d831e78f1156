package model

// OpenSessionRequest is the body of POST /api/v1/sessions
type OpenSessionRequest struct {
	// Online is the device connectivity at mount; nil means online
	Online *bool `json:"online"`
}

// PositionRequest carries one geolocation update
type PositionRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// PositionErrorRequest reports a geolocation failure
type PositionErrorRequest struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConnectivityRequest reports a network state change
type ConnectivityRequest struct {
	Online *bool `json:"online"`
}

// DiscoveryRequest toggles discovery mode
type DiscoveryRequest struct {
	Active bool `json:"active"`
}

// MapTapRequest is a tap on the map surface, relative to the viewport (0..1)
type MapTapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChatMessageRequest is a user chat turn
type ChatMessageRequest struct {
	Text string `json:"text"`
}

// PreferenceRequest sets the free-text chat preference
type PreferenceRequest struct {
	Text string `json:"text"`
}

// LocationLabelRequest overrides the chat location label
type LocationLabelRequest struct {
	Label string `json:"label"`
}

// OverlayRequest opens or closes an overlay
type OverlayRequest struct {
	Open bool `json:"open"`
}

// HistoryResponse lists saved conversations
type HistoryResponse struct {
	Sessions []ChatSession `json:"sessions"`
	Count    int           `json:"count"`
}

// VoiceControl is a JSON control frame on the voice websocket
type VoiceControl struct {
	Type string `json:"type"`
}

// VoiceUpdate is pushed to the device on the voice websocket
type VoiceUpdate struct {
	Type       string `json:"type"`
	Status     string `json:"status,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Voice websocket frame types
const (
	VoiceFinish = "finish"
	VoiceCancel = "cancel"
	VoiceStatus = "status"
	VoiceError  = "error"
)
