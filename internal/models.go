package internal

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Canned strings carried over from the hosted frontend; the backend
// answers in Portuguese by default.
const (
	DefaultChatTitle = "Novo Chat"
	GreetingMessage  = "Olá! Como posso ajudar hoje?"
	DefaultLanguage  = "pt-BR"
)

// Message is one entry in a chat history
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
	// Degraded marks an assistant reply that was committed from a stream
	// that ended with a transport error
	Degraded bool `json:"degraded,omitempty"`
}

// Chat is one conversation thread owned by a single identity
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"` // unix milliseconds
}

// SessionState is the full per-identity state: every chat plus which one
// is current. It is persisted as a single record.
type SessionState struct {
	CurrentChatID string           `json:"currentChatId"`
	Chats         map[string]*Chat `json:"chats"`
}

// FileContext references previously ingested files that ground the next
// turn only. It is never persisted as part of message history.
type FileContext struct {
	ID        string
	Filenames []string
}

// NewChat creates a fresh chat with the canned greeting
func NewChat() *Chat {
	return &Chat{
		ID:    uuid.NewString(),
		Title: DefaultChatTitle,
		Messages: []Message{
			{Role: RoleAssistant, Content: GreetingMessage},
		},
		CreatedAt: time.Now().UnixMilli(),
	}
}

// NewSessionState creates a state containing one fresh chat marked current
func NewSessionState() *SessionState {
	chat := NewChat()
	return &SessionState{
		CurrentChatID: chat.ID,
		Chats:         map[string]*Chat{chat.ID: chat},
	}
}

// CurrentChat returns the current chat, or nil if the state is empty
func (s *SessionState) CurrentChat() *Chat {
	if s == nil {
		return nil
	}
	return s.Chats[s.CurrentChatID]
}

// SortedChats returns all chats ordered most-recently-created first
func (s *SessionState) SortedChats() []*Chat {
	chats := make([]*Chat, 0, len(s.Chats))
	for _, chat := range s.Chats {
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].CreatedAt != chats[j].CreatedAt {
			return chats[i].CreatedAt > chats[j].CreatedAt
		}
		return chats[i].ID < chats[j].ID
	})
	return chats
}

// RemoveChat deletes a chat from the state. If the deleted chat was
// current, the most-recently-created survivor becomes current; if none
// remain, a fresh chat is synthesized.
func (s *SessionState) RemoveChat(chatID string) {
	delete(s.Chats, chatID)
	if s.CurrentChatID != chatID {
		return
	}
	remaining := s.SortedChats()
	if len(remaining) > 0 {
		s.CurrentChatID = remaining[0].ID
		return
	}
	chat := NewChat()
	s.Chats[chat.ID] = chat
	s.CurrentChatID = chat.ID
}

// GetTimestamp returns the chat creation time
func (c *Chat) GetTimestamp() time.Time {
	return time.Unix(0, c.CreatedAt*int64(time.Millisecond))
}
