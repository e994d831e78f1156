package voice

// Status represents the lifecycle stage of a voice session
type Status int

const (
	// StatusConnecting is the initial state while the streaming channel opens.
	StatusConnecting Status = iota
	// StatusListening is when audio is forwarded and transcript fragments arrive.
	StatusListening
	// StatusProcessing is the grace delay before the transcript is delivered.
	StatusProcessing
	// StatusTerminated is final; every resource has been released.
	StatusTerminated
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusListening:
		return "listening"
	case StatusProcessing:
		return "processing"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
