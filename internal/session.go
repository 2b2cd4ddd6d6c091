package internal

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Phase tracks where a submission cycle is
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseSettled
)

// SessionOptions configures the optional collaborators of a session
type SessionOptions struct {
	// Speaker enables speech output when non-nil
	Speaker *Speaker
	// Recognizer enables speech input when non-nil
	Recognizer Recognizer
	// Publish receives the live partial reply after every text-delta frame
	Publish func(partial string)
	// Confirm gates destructive operations (delete, edit-truncation).
	// Nil approves everything; interactive callers pass a prompter.
	Confirm func(prompt string) bool
}

// SessionManager orchestrates turn submission, streaming-frame ingestion,
// and edit-and-replay over one identity's chat store. It is driven by a
// single caller; persistence is synchronous, so every state-affecting
// operation is durable before the method returns.
type SessionManager struct {
	store   *ChatStore
	backend *BackendClient
	opts    SessionOptions

	state   *SessionState
	phase   Phase
	pending *FileContext
	// one open stream per chat, even if the UI already disables input
	streaming map[string]bool
}

// NewSessionManager loads (or synthesizes) the identity's session state
// and returns a manager over it
func NewSessionManager(store *ChatStore, backend *BackendClient, opts SessionOptions) (*SessionManager, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	if opts.Publish == nil {
		opts.Publish = func(string) {}
	}
	if opts.Confirm == nil {
		opts.Confirm = func(string) bool { return true }
	}
	return &SessionManager{
		store:     store,
		backend:   backend,
		opts:      opts,
		state:     state,
		streaming: make(map[string]bool),
	}, nil
}

// State returns the in-memory session state
func (m *SessionManager) State() *SessionState {
	return m.state
}

// CurrentChat returns the chat that submissions go to
func (m *SessionManager) CurrentChat() *Chat {
	return m.state.CurrentChat()
}

// Phase returns the current submission phase
func (m *SessionManager) Phase() Phase {
	return m.phase
}

// NewChatThread creates a fresh chat, makes it current, and clears any
// pending file context
func (m *SessionManager) NewChatThread() (*Chat, error) {
	chat := NewChat()
	m.state.Chats[chat.ID] = chat
	m.state.CurrentChatID = chat.ID
	m.pending = nil
	if err := m.store.Save(m.state); err != nil {
		return nil, err
	}
	return chat, nil
}

// SwitchChat makes another chat current. Switching to the chat that is
// already current is a no-op.
func (m *SessionManager) SwitchChat(chatID string) error {
	if m.state.CurrentChatID == chatID {
		return nil
	}
	if _, ok := m.state.Chats[chatID]; !ok {
		return fmt.Errorf("chat not found: %s", chatID)
	}
	m.state.CurrentChatID = chatID
	return m.store.Save(m.state)
}

// DeleteChat removes a chat after confirmation. Deleting the current chat
// promotes the most-recently-created survivor; deleting the last chat
// synthesizes a fresh one.
func (m *SessionManager) DeleteChat(chatID string) error {
	chat, ok := m.state.Chats[chatID]
	if !ok {
		return fmt.Errorf("chat not found: %s", chatID)
	}
	if !m.opts.Confirm(fmt.Sprintf("Tem certeza que deseja apagar o chat %q?", chat.Title)) {
		return nil
	}
	m.state.RemoveChat(chatID)
	return m.store.Save(m.state)
}

// RenameChat sets a chat title manually
func (m *SessionManager) RenameChat(chatID, title string) error {
	chat, ok := m.state.Chats[chatID]
	if !ok {
		return fmt.Errorf("chat not found: %s", chatID)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	chat.Title = title
	return m.store.Save(m.state)
}

// AttachFiles ingests files on the backend and holds the returned context
// for the next turn only
func (m *SessionManager) AttachFiles(ctx context.Context, paths []string) (*FileContext, error) {
	fc, err := m.backend.IngestFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	m.pending = fc
	return fc, nil
}

// PendingFiles returns the file context attached to the next turn, if any
func (m *SessionManager) PendingFiles() *FileContext {
	return m.pending
}

// SubmitTurn sends one user message to the backend and streams the reply
// into the current chat. Blank text is a no-op.
func (m *SessionManager) SubmitTurn(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	chat := m.CurrentChat()
	if chat == nil {
		return fmt.Errorf("no current chat")
	}
	if m.streaming[chat.ID] {
		return ErrStreamInFlight
	}

	if m.opts.Speaker != nil {
		m.opts.Speaker.Cancel()
	}

	// Prior history excludes the message being sent
	prior := append([]Message(nil), chat.Messages...)
	chat.Messages = append(chat.Messages, Message{Role: RoleUser, Content: text})
	if err := m.store.Save(m.state); err != nil {
		return err
	}

	contextID := ""
	if m.pending != nil {
		contextID = m.pending.ID
		m.pending = nil // grounds this turn only
	}

	return m.runCycle(ctx, chat, text, prior, contextID)
}

// ListenAndSubmit captures one utterance and submits the transcript as a
// turn. Recognition errors surface to the caller; there is no retry.
func (m *SessionManager) ListenAndSubmit(ctx context.Context) error {
	if m.opts.Recognizer == nil {
		return fmt.Errorf("speech input is not available")
	}
	if m.opts.Speaker != nil {
		m.opts.Speaker.Cancel()
	}
	transcript, err := m.opts.Recognizer.Recognize(ctx)
	if err != nil {
		return err
	}
	return m.SubmitTurn(ctx, transcript)
}

// EditMessage replaces the user message at index and replays the
// conversation from there. Everything after the edited message is
// discarded for good; history[0,index) becomes the prior context of the
// resubmission.
func (m *SessionManager) EditMessage(ctx context.Context, index int, newContent string) error {
	chat := m.CurrentChat()
	if chat == nil {
		return fmt.Errorf("no current chat")
	}
	if m.streaming[chat.ID] {
		return ErrStreamInFlight
	}
	if index < 0 || index >= len(chat.Messages) {
		return fmt.Errorf("message index out of range: %d", index)
	}
	if chat.Messages[index].Role != RoleUser {
		return fmt.Errorf("only user messages can be edited")
	}
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil
	}

	discarded := len(chat.Messages) - index - 1
	if !m.opts.Confirm(fmt.Sprintf("Editar a mensagem %d descarta as %d mensagens seguintes. Continuar?", index, discarded)) {
		return nil
	}

	// Destructive truncation: the discarded suffix is not recoverable
	chat.Messages = chat.Messages[:index+1]
	chat.Messages[index] = Message{Role: RoleUser, Content: newContent}
	if err := m.store.Save(m.state); err != nil {
		return err
	}

	prior := append([]Message(nil), chat.Messages[:index]...)
	return m.runCycle(ctx, chat, newContent, prior, "")
}

// runCycle drives one submission through Sending → Streaming → Settled.
// The accumulated reply is committed whatever happens mid-stream; a
// transport error only marks it degraded. No automatic retry.
func (m *SessionManager) runCycle(ctx context.Context, chat *Chat, text string, prior []Message, contextID string) error {
	m.streaming[chat.ID] = true
	m.phase = PhaseSending
	defer func() {
		delete(m.streaming, chat.ID)
		m.phase = PhaseSettled
	}()

	body, err := m.backend.OpenStream(ctx, StreamRequest{
		Message:   text,
		History:   prior,
		ContextID: contextID,
	})
	if err != nil {
		// Nothing streamed yet, so nothing to commit
		return err
	}

	m.phase = PhaseStreaming
	reply, lang, streamErr := m.consumeStream(body)

	assistant := Message{Role: RoleAssistant, Content: reply}
	if streamErr != nil {
		assistant.Degraded = true
		LogWarn("Stream ended with transport error, committing partial reply: %v", streamErr)
	}
	chat.Messages = append(chat.Messages, assistant)
	if err := m.store.Save(m.state); err != nil {
		return err
	}

	if m.opts.Speaker != nil && reply != "" {
		if err := m.opts.Speaker.Say(ctx, reply, lang); err != nil {
			LogWarn("Speech output failed: %v", err)
		}
	}

	m.maybeGenerateTitle(ctx, chat)
	return nil
}

// consumeStream feeds transport chunks through a frame decoder until an
// end frame, EOF, or transport error. Text deltas are applied strictly in
// arrival order; each one republishes the live partial reply.
func (m *SessionManager) consumeStream(body io.ReadCloser) (string, string, error) {
	defer body.Close()

	decoder := NewFrameDecoder()
	var reply strings.Builder
	lang := DefaultLanguage
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Feed(buf[:n]) {
				switch frame.Kind {
				case FrameTextDelta:
					reply.WriteString(frame.Text)
					m.opts.Publish(reply.String())
				case FrameMetadata:
					if frame.Language != "" {
						lang = frame.Language
					}
				case FrameEnd:
					// Consumer stops reading; any buffered remainder is dropped
					return reply.String(), lang, nil
				default:
					LogDebug("Discarding unrecognized frame")
				}
			}
		}
		if err == io.EOF {
			return reply.String(), lang, nil
		}
		if err != nil {
			return reply.String(), lang, &TransportError{Op: "stream", Err: err}
		}
	}
}

// maybeGenerateTitle asks the backend for a title once the first exchange
// has completed. Runs at most once per chat; failure keeps the
// placeholder and is not fatal.
func (m *SessionManager) maybeGenerateTitle(ctx context.Context, chat *Chat) {
	if chat.Title != DefaultChatTitle || len(chat.Messages) < 2 {
		return
	}
	title, err := m.backend.SuggestTitle(ctx, chat.Messages)
	if err != nil {
		LogWarn("Title suggestion failed, keeping placeholder: %v", err)
		return
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	chat.Title = title
	if err := m.store.Save(m.state); err != nil {
		LogWarn("Failed to persist generated title: %v", err)
	}
}
