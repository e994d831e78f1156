package coordinator

import (
	"context"
	"fmt"

	"github.com/alexivanou/roamai/internal/chat"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/google/uuid"
)

// openChatLocked resets the sequence to messages and mounts a new chat view.
// A non-empty seed is sent once in the background.
func (c *Coordinator) openChatLocked(seed string, messages []model.ChatMessage) {
	c.messages.Reset(messages)
	c.mountChatLocked(seed)
}

func (c *Coordinator) mountChatLocked(seed string) {
	mgr := chat.NewManager(c.messages, chat.Options{
		Completer: c.gw,
		Online:    c.isOnline,
		Location:  c.location.Label(),
		Seed:      seed,
		OnChange:  func() { c.publish(events.TypeChat) },
		Logger:    c.logger,
	})
	c.chat = mgr
	c.chatOpen = true
	if seed != "" {
		c.spawnLocked(func(ctx context.Context) {
			mgr.SendSeed(ctx)
		})
	}
}

// OpenChat is the chat action button: it opens chat keeping the current
// conversation
func (c *Coordinator) OpenChat() {
	c.mu.Lock()
	if !c.chatOpen {
		c.mountChatLocked("")
	}
	c.mu.Unlock()
	c.publish(events.TypeChat)
}

// CloseChat hides the chat view; the conversation is kept
func (c *Coordinator) CloseChat() {
	c.mu.Lock()
	c.chatOpen = false
	c.chat = nil
	c.mu.Unlock()
	c.publish(events.TypeChat)
}

// SelectSuggestion opens a fresh chat about a quick suggestion
func (c *Coordinator) SelectSuggestion(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.suggestions) {
		c.mu.Unlock()
		return ErrUnknownSuggestion
	}
	seed := fmt.Sprintf("Tell me about %s in %s.", c.suggestions[index].Title, c.location.City)
	c.openChatLocked(seed, nil)
	c.mu.Unlock()

	c.publish(events.TypeChat)
	return nil
}

// LoadHistory replaces the conversation with a saved one and shows it
func (c *Coordinator) LoadHistory(session model.ChatSession) {
	c.mu.Lock()
	c.profileOpen = false
	c.openChatLocked("", session.Messages)
	c.mu.Unlock()
	c.publish(events.TypeChat)
}

// ArchiveChat returns the active conversation as a new history entry
func (c *Coordinator) ArchiveChat() (model.ChatSession, error) {
	messages := c.messages.Messages()
	if len(messages) == 0 {
		return model.ChatSession{}, ErrEmptyChat
	}
	return model.NewChatSession(uuid.NewString(), messages, c.now().UTC()), nil
}

// Messages returns the active conversation
func (c *Coordinator) Messages() []model.ChatMessage {
	return c.messages.Messages()
}

func (c *Coordinator) chatManager() (*chat.Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if !c.chatOpen || c.chat == nil {
		return nil, ErrChatClosed
	}
	return c.chat, nil
}

// SendChat sends a user turn and blocks until the reply is merged. Blank
// input is ignored.
func (c *Coordinator) SendChat(text string) error {
	mgr, err := c.chatManager()
	if err != nil {
		return err
	}
	c.mgrCall(func(ctx context.Context) { mgr.Send(ctx, text) })
	return nil
}

// SuggestSpots asks the assistant for must-see spots
func (c *Coordinator) SuggestSpots() error {
	mgr, err := c.chatManager()
	if err != nil {
		return err
	}
	c.mgrCall(func(ctx context.Context) { mgr.SuggestSpots(ctx) })
	return nil
}

// mgrCall runs a blocking chat call as a tracked task of the session
func (c *Coordinator) mgrCall(fn func(ctx context.Context)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.tasks.Add(1)
	c.mu.Unlock()

	defer c.tasks.Done()
	fn(c.ctx)
}

// ToggleInterest adds or removes an interest filter
func (c *Coordinator) ToggleInterest(id string) error {
	mgr, err := c.chatManager()
	if err != nil {
		return err
	}
	return mgr.ToggleInterest(id)
}

// SetPreference sets the free-text chat preference
func (c *Coordinator) SetPreference(text string) error {
	mgr, err := c.chatManager()
	if err != nil {
		return err
	}
	mgr.SetPreference(text)
	return nil
}

// SetChatLocation overrides the location label used by the assistant
func (c *Coordinator) SetChatLocation(label string) error {
	mgr, err := c.chatManager()
	if err != nil {
		return err
	}
	mgr.SetLocation(label)
	return nil
}

// ClearChat empties the conversation; it requires confirmation
func (c *Coordinator) ClearChat(confirmed bool) error {
	mgr, err := c.chatManager()
	if err != nil {
		return err
	}
	if !mgr.ClearHistory(confirmed) {
		return ErrConfirmationRequired
	}
	return nil
}
