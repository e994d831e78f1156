// Package chat dispatches conversational turns to the AI gateway and merges
// the replies into a caller-owned message sequence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexivanou/roamai/internal/gateway"
	"github.com/alexivanou/roamai/internal/model"
	"go.uber.org/zap"
)

// Fixed assistant texts
const (
	OfflineReply = "RoamAi is momentarily offline. Please check your data connection."
	EmptyReply   = "I'm having a bit of trouble connecting to my travel database."
)

// ErrUnknownInterest is returned when toggling an interest that is not a preset
var ErrUnknownInterest = errors.New("chat: unknown interest")

// Completer is the gateway operation the manager needs
type Completer interface {
	ChatComplete(ctx context.Context, history []model.ChatMessage, systemContext string) (gateway.Reply, error)
}

// Options configure a Manager
type Options struct {
	Completer Completer
	// Online reports connectivity; nil means always online
	Online func() bool
	// Location is the initial location label, usually "city, country"
	Location string
	// Seed is sent once by SendSeed
	Seed string
	// OnChange is called after every observable change, outside any lock
	OnChange func()
	Logger   *zap.Logger
}

// State is the observable part of a Manager
type State struct {
	Loading    bool     `json:"loading"`
	Interests  []string `json:"interests"`
	Preference string   `json:"preference,omitempty"`
	Location   string   `json:"location"`
}

// Manager handles one mount of the chat view
type Manager struct {
	log       Log
	completer Completer
	online    func() bool
	onChange  func()
	logger    *zap.Logger

	seed     string
	seedOnce sync.Once

	mu         sync.Mutex
	inflight   int
	interests  []string
	preference string
	location   string
}

// NewManager creates a manager writing to log
func NewManager(log Log, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		log:       log,
		completer: opts.Completer,
		online:    opts.Online,
		onChange:  opts.OnChange,
		logger:    logger,
		seed:      strings.TrimSpace(opts.Seed),
		location:  opts.Location,
	}
}

// Send appends a user turn and merges the assistant reply. It blocks until
// the reply is merged and reports whether anything was sent.
func (m *Manager) Send(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	history, epoch := m.log.Push(model.ChatMessage{Role: model.RoleUser, Text: text})
	m.setLoading(1)
	defer m.setLoading(-1)

	reply := m.complete(ctx, history)
	if !m.log.Append(epoch, reply) {
		m.logger.Debug("Dropping reply for a reset conversation")
	}
	return true
}

func (m *Manager) complete(ctx context.Context, history []model.ChatMessage) model.ChatMessage {
	fallback := model.ChatMessage{Role: model.RoleAssistant, Text: OfflineReply}
	if m.online != nil && !m.online() {
		return fallback
	}
	if m.completer == nil {
		return fallback
	}

	reply, err := m.completer.ChatComplete(ctx, history, m.SystemContext())
	if err != nil {
		m.logger.Warn("Chat completion failed", zap.Error(err))
		return fallback
	}

	text := reply.Text
	if strings.TrimSpace(text) == "" {
		text = EmptyReply
	}
	return model.ChatMessage{Role: model.RoleAssistant, Text: text, Links: reply.Links}
}

// SendSeed sends the seed prompt; only the first call per manager does anything
func (m *Manager) SendSeed(ctx context.Context) bool {
	sent := false
	m.seedOnce.Do(func() {
		if m.seed != "" {
			sent = m.Send(ctx, m.seed)
		}
	})
	return sent
}

// SuggestSpots asks for must-see spots matching the active interests
func (m *Manager) SuggestSpots(ctx context.Context) bool {
	m.mu.Lock()
	prompt := fmt.Sprintf("Quickly suggest 3 must-see spots in %s", m.location)
	if len(m.interests) > 0 {
		prompt += " that match my interest in " + strings.Join(m.interests, " and ")
	}
	m.mu.Unlock()
	return m.Send(ctx, prompt+".")
}

// ToggleInterest adds the preset if absent and removes it if present
func (m *Manager) ToggleInterest(id string) error {
	if _, ok := model.LookupInterest(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInterest, id)
	}

	m.mu.Lock()
	idx := -1
	for i, in := range m.interests {
		if in == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		m.interests = append(m.interests[:idx:idx], m.interests[idx+1:]...)
	} else {
		m.interests = append(m.interests, id)
	}
	m.mu.Unlock()

	m.changed()
	return nil
}

// SetPreference sets the free-text preference; blank clears it
func (m *Manager) SetPreference(text string) {
	m.mu.Lock()
	m.preference = strings.TrimSpace(text)
	m.mu.Unlock()
	m.changed()
}

// SetLocation overrides the location label. Blank labels are ignored.
func (m *Manager) SetLocation(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	m.mu.Lock()
	m.location = label
	m.mu.Unlock()
	m.changed()
	return true
}

// ClearHistory empties the sequence; it does nothing without confirmation
func (m *Manager) ClearHistory(confirmed bool) bool {
	if !confirmed {
		return false
	}
	m.log.Reset(nil)
	m.changed()
	return true
}

// SystemContext builds the framing instruction sent with every completion
func (m *Manager) SystemContext() string {
	m.mu.Lock()
	location := m.location
	var prefs []string
	for _, id := range m.interests {
		if in, ok := model.LookupInterest(id); ok {
			prefs = append(prefs, in.Label)
		}
	}
	if m.preference != "" {
		prefs = append(prefs, "User custom preference: "+m.preference)
	}
	m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "You are RoamAi, a professional and extremely concise digital travel guide in %s.\n", location)
	if len(prefs) > 0 {
		fmt.Fprintf(&b, "User interests: %s.\n", strings.Join(prefs, ", "))
	}
	b.WriteString("\nRULES:\n" +
		"1. BE CONCISE. Keep responses to 1-3 short sentences maximum.\n" +
		"2. NO URLs. Never include links in text.\n" +
		"3. NO WEIRD SYMBOLS. Avoid asterisks or bullet points. Use clean text.\n" +
		"4. Use Google Search for current data, but remember our previous conversation.\n" +
		"5. Just provide the facts or suggestions directly.")
	return b.String()
}

// State returns the observable state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Loading:    m.inflight > 0,
		Interests:  append([]string{}, m.interests...),
		Preference: m.preference,
		Location:   m.location,
	}
}

func (m *Manager) setLoading(delta int) {
	m.mu.Lock()
	m.inflight += delta
	m.mu.Unlock()
	m.changed()
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}
