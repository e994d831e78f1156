package model

import (
	"strings"
	"time"
)

// Role is the author of a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Link is a grounding citation attached to an assistant message
type Link struct {
	Title string `json:"title" db:"title"`
	URL   string `json:"url" db:"url"`
}

// ChatMessage is one conversational turn
type ChatMessage struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Links []Link `json:"links,omitempty"`
}

// ChatSession is a saved past conversation
type ChatSession struct {
	ID       string        `json:"id" db:"id"`
	Title    string        `json:"title" db:"title"`
	Snippet  string        `json:"snippet" db:"snippet"`
	Date     string        `json:"date" db:"date"`
	Messages []ChatMessage `json:"messages" db:"-"`

	CreatedAt time.Time `json:"-" db:"created_at"`
}

// HistoryDateLayout is the display format of ChatSession.Date
const HistoryDateLayout = "Jan 2, 2006"

// CloneMessages returns a deep copy of a message sequence
func CloneMessages(messages []ChatMessage) []ChatMessage {
	if messages == nil {
		return nil
	}
	out := make([]ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = m
		if m.Links != nil {
			out[i].Links = append([]Link(nil), m.Links...)
		}
	}
	return out
}

// NewChatSession builds a history entry from an active sequence.
// Title and snippet come from the first user message.
func NewChatSession(id string, messages []ChatMessage, at time.Time) ChatSession {
	var first string
	for _, m := range messages {
		if m.Role == RoleUser {
			first = strings.TrimSpace(m.Text)
			break
		}
	}
	return ChatSession{
		ID:       id,
		Title:    truncate(first, 48),
		Snippet:  truncate(first, 96),
		Date:     at.Format(HistoryDateLayout),
		Messages: CloneMessages(messages),

		CreatedAt: at,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
