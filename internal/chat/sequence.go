package chat

import (
	"sync"

	"github.com/alexivanou/roamai/internal/model"
)

// Log is the shared message sequence a Manager writes to. The sequence is
// owned by the caller; the manager only appends and clears.
type Log interface {
	// Push appends a message and returns the resulting sequence with its epoch
	Push(msg model.ChatMessage) ([]model.ChatMessage, uint64)
	// Append adds a message only if the sequence has not been reset since epoch
	Append(epoch uint64, msg model.ChatMessage) bool
	// Reset replaces the whole sequence and starts a new epoch
	Reset(messages []model.ChatMessage)
}

// Sequence is the canonical in-memory message sequence
type Sequence struct {
	mu       sync.Mutex
	messages []model.ChatMessage
	epoch    uint64
}

// NewSequence returns an empty sequence
func NewSequence() *Sequence {
	return &Sequence{}
}

// Push implements Log
func (s *Sequence) Push(msg model.ChatMessage) ([]model.ChatMessage, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return model.CloneMessages(s.messages), s.epoch
}

// Append implements Log
func (s *Sequence) Append(epoch uint64, msg model.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

// Reset implements Log
func (s *Sequence) Reset(messages []model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = model.CloneMessages(messages)
	s.epoch++
}

// Messages returns a copy of the current sequence
func (s *Sequence) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMessages(s.messages)
}

// Len returns the number of messages
func (s *Sequence) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
