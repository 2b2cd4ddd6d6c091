package internal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChatStore persists the full SessionState of one identity. Every store is
// explicitly scoped to the Identity it was constructed with; chats are
// never visible across identities.
type ChatStore struct {
	db       *sql.DB
	identity Identity
}

// NewChatStore creates a store scoped to the given identity
func NewChatStore(db *sql.DB, identity Identity) *ChatStore {
	return &ChatStore{db: db, identity: identity}
}

// Identity returns the identity this store is scoped to
func (s *ChatStore) Identity() Identity {
	return s.identity
}

// Load reads the durable record for this identity. If none exists, a
// fresh SessionState with one greeted chat is synthesized (and not yet
// persisted; the first Save writes it).
func (s *ChatStore) Load() (*SessionState, error) {
	var raw string
	row := s.db.QueryRow("SELECT state FROM chat_state WHERE subject = ?", s.identity.Subject)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewSessionState(), nil
		}
		return nil, &StoreError{Subject: s.identity.Subject, Op: "load", Err: err}
	}

	var state SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, &StoreError{Subject: s.identity.Subject, Op: "load", Err: fmt.Errorf("corrupt state record: %w", err)}
	}
	if state.Chats == nil {
		state.Chats = map[string]*Chat{}
	}
	return &state, nil
}

// Save serializes the entire SessionState for this identity. Last write
// wins; the record is durable before Save returns.
func (s *ChatStore) Save(state *SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return &StoreError{Subject: s.identity.Subject, Op: "save", Err: err}
	}

	_, err = s.db.Exec(
		`INSERT INTO chat_state (subject, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(subject) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		s.identity.Subject, string(raw), time.Now().UnixMilli(),
	)
	if err != nil {
		return &StoreError{Subject: s.identity.Subject, Op: "save", Err: err}
	}
	return nil
}

// Purge removes the persisted record for this identity (logout)
func (s *ChatStore) Purge() error {
	if _, err := s.db.Exec("DELETE FROM chat_state WHERE subject = ?", s.identity.Subject); err != nil {
		return &StoreError{Subject: s.identity.Subject, Op: "purge", Err: err}
	}
	return nil
}
