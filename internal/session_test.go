package internal

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/israel2640/JARVIS-IA-LIGHT/testutil"
)

func newTestManager(t *testing.T, fb *testutil.FakeBackend, opts SessionOptions) (*SessionManager, *ChatStore) {
	t.Helper()
	db := testutil.CreateInMemoryDB(t)
	t.Cleanup(func() { _ = db.Close() })

	store := NewChatStore(db, Identity{Subject: "ana@example.com"})
	backend := NewBackendClient(fb.URL(), "test-token")
	manager, err := NewSessionManager(store, backend, opts)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return manager, store
}

func TestSubmitTurn_Concatenation(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{
		testutil.DeltaFrame("Hel"),
		testutil.DeltaFrame("lo"),
		testutil.EndFrame,
	}
	fb.Title = "Saudações"

	var partials []string
	manager, _ := newTestManager(t, fb, SessionOptions{
		Publish: func(p string) { partials = append(partials, p) },
	})

	if err := manager.SubmitTurn(context.Background(), "oi"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	chat := manager.CurrentChat()
	last := chat.Messages[len(chat.Messages)-1]
	if last.Role != RoleAssistant || last.Content != "Hello" {
		t.Errorf("final message = %+v, want assistant %q", last, "Hello")
	}
	if last.Degraded {
		t.Error("clean stream committed as degraded")
	}

	// Partials republish in strict append order
	wantPartials := []string{"Hel", "Hello"}
	if len(partials) != len(wantPartials) {
		t.Fatalf("published %d partials, want %d", len(partials), len(wantPartials))
	}
	for i, want := range wantPartials {
		if partials[i] != want {
			t.Errorf("partial %d = %q, want %q", i, partials[i], want)
		}
	}
}

func TestSubmitTurn_BlankTextIsNoOp(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{})

	before := len(manager.CurrentChat().Messages)
	if err := manager.SubmitTurn(context.Background(), "   \n\t"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if len(manager.CurrentChat().Messages) != before {
		t.Error("blank submission appended a message")
	}
	if fb.StreamRequests != 0 {
		t.Error("blank submission opened a stream")
	}
}

func TestSubmitTurn_HistoryExcludesJustAddedMessage(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("ok"), testutil.EndFrame}
	fb.Title = "t"
	manager, _ := newTestManager(t, fb, SessionOptions{})

	if err := manager.SubmitTurn(context.Background(), "primeira pergunta"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	var history []Message
	testutil.JSONUnmarshal(t, []byte(fb.LastStreamQuery["history"]), &history)

	// Prior history is just the greeting; the submitted message travels in
	// the message param instead
	if len(history) != 1 || history[0].Content != GreetingMessage {
		t.Errorf("serialized history = %+v, want greeting only", history)
	}
	if fb.LastStreamQuery["message"] != "primeira pergunta" {
		t.Errorf("message param = %q", fb.LastStreamQuery["message"])
	}
	if fb.LastStreamQuery["token"] != "test-token" {
		t.Errorf("token param = %q", fb.LastStreamQuery["token"])
	}
}

func TestSubmitTurn_InFlightGuard(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("resposta"), testutil.EndFrame}
	fb.Title = "t"

	var manager *SessionManager
	var reentrantErr error
	manager, _ = newTestManager(t, fb, SessionOptions{
		Publish: func(string) {
			// Re-entrant submission while the stream is still open
			reentrantErr = manager.SubmitTurn(context.Background(), "segunda")
		},
	})

	if err := manager.SubmitTurn(context.Background(), "primeira"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if !errors.Is(reentrantErr, ErrStreamInFlight) {
		t.Errorf("re-entrant submission error = %v, want ErrStreamInFlight", reentrantErr)
	}
}

func TestSubmitTurn_DegradedCommitOnTransportError(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{
		testutil.DeltaFrame("resposta par"),
	}
	fb.CutMidStream = true

	manager, store := newTestManager(t, fb, SessionOptions{})

	if err := manager.SubmitTurn(context.Background(), "oi"); err != nil {
		t.Fatalf("SubmitTurn() should degrade gracefully, got error %v", err)
	}

	chat := manager.CurrentChat()
	last := chat.Messages[len(chat.Messages)-1]
	if last.Role != RoleAssistant {
		t.Fatalf("last message role = %q, want assistant", last.Role)
	}
	if last.Content != "resposta par" {
		t.Errorf("partial content = %q, want %q", last.Content, "resposta par")
	}
	if !last.Degraded {
		t.Error("partial reply not annotated as degraded")
	}
	if fb.StreamRequests != 1 {
		t.Errorf("stream opened %d times, want 1 (no retry)", fb.StreamRequests)
	}

	// The degraded commit is durable
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	persisted := loaded.CurrentChat().Messages
	if !persisted[len(persisted)-1].Degraded {
		t.Error("degraded annotation did not persist")
	}
}

func TestConsumeStream_EndMarkerStopsReading(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{})

	// Frames after the end marker must never reach the accumulator
	body := io.NopCloser(newScriptReader(
		"data: {\"text\":\"antes\"}\n\n",
		"end\n\n",
		"data: {\"text\":\"depois\"}\n\n",
	))
	reply, lang, err := manager.consumeStream(body)
	if err != nil {
		t.Fatalf("consumeStream() error = %v", err)
	}
	if reply != "antes" {
		t.Errorf("reply = %q, want %q", reply, "antes")
	}
	if lang != DefaultLanguage {
		t.Errorf("lang = %q, want default %q", lang, DefaultLanguage)
	}
}

func TestConsumeStream_MetadataLanguage(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{})

	body := io.NopCloser(newScriptReader(
		"meta: {\"lang\":\"en-GB\"}\n\n",
		"data: {\"text\":\"hi\"}\n\n",
		"end\n\n",
	))
	_, lang, err := manager.consumeStream(body)
	if err != nil {
		t.Fatalf("consumeStream() error = %v", err)
	}
	if lang != "en-GB" {
		t.Errorf("lang = %q, want en-GB", lang)
	}
}

func TestConsumeStream_PartialRemainderDroppedOnError(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{})

	body := io.NopCloser(&erroringReader{
		chunks: []string{"data: {\"text\":\"ok\"}\n\n", "data: {\"te"},
	})
	reply, _, err := manager.consumeStream(body)
	if err == nil {
		t.Fatal("consumeStream() should surface the transport error")
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("error type = %T, want *TransportError", err)
	}
	if reply != "ok" {
		t.Errorf("reply = %q, want %q (partial frame dropped)", reply, "ok")
	}
}

func TestEditMessage_TruncationAndReplay(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("nova resposta"), testutil.EndFrame}
	fb.Title = "t"
	manager, store := newTestManager(t, fb, SessionOptions{})

	chat := manager.CurrentChat()
	chat.Messages = []Message{
		{Role: RoleAssistant, Content: GreetingMessage},
		{Role: RoleUser, Content: "pergunta um"},
		{Role: RoleAssistant, Content: "resposta um"},
		{Role: RoleUser, Content: "pergunta dois"},
		{Role: RoleAssistant, Content: "resposta dois"},
	}
	chat.Title = "Conversa"

	if err := manager.EditMessage(context.Background(), 1, "pergunta editada"); err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}

	// History is exactly k+1 messages plus the new assistant reply
	msgs := manager.CurrentChat().Messages
	if len(msgs) != 3 {
		t.Fatalf("history has %d messages, want 3 (greeting, edited, reply)", len(msgs))
	}
	if msgs[1].Content != "pergunta editada" {
		t.Errorf("edited content = %q", msgs[1].Content)
	}
	if msgs[2].Content != "nova resposta" {
		t.Errorf("replayed reply = %q", msgs[2].Content)
	}

	// The discarded suffix is unrecoverable, including from storage
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, msg := range loaded.CurrentChat().Messages {
		if msg.Content == "resposta um" || msg.Content == "pergunta dois" || msg.Content == "resposta dois" {
			t.Errorf("discarded message %q survived the edit", msg.Content)
		}
	}

	// Replay sent history[0,k) as prior context
	var history []Message
	testutil.JSONUnmarshal(t, []byte(fb.LastStreamQuery["history"]), &history)
	if len(history) != 1 || history[0].Content != GreetingMessage {
		t.Errorf("replay history = %+v, want greeting only", history)
	}
	if fb.LastStreamQuery["message"] != "pergunta editada" {
		t.Errorf("replay message = %q", fb.LastStreamQuery["message"])
	}
}

func TestEditMessage_OnlyUserMessages(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{})

	// Index 0 is the assistant greeting
	if err := manager.EditMessage(context.Background(), 0, "novo"); err == nil {
		t.Error("EditMessage() on an assistant message should fail")
	}
	if err := manager.EditMessage(context.Background(), 99, "novo"); err == nil {
		t.Error("EditMessage() out of range should fail")
	}
}

func TestEditMessage_DeclinedConfirmation(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{
		Confirm: func(string) bool { return false },
	})

	chat := manager.CurrentChat()
	chat.Messages = append(chat.Messages,
		Message{Role: RoleUser, Content: "original"},
		Message{Role: RoleAssistant, Content: "resposta"},
	)

	if err := manager.EditMessage(context.Background(), 1, "editado"); err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	msgs := manager.CurrentChat().Messages
	if len(msgs) != 3 || msgs[1].Content != "original" {
		t.Error("declined edit mutated history")
	}
	if fb.StreamRequests != 0 {
		t.Error("declined edit opened a stream")
	}
}

func TestTitleGeneration(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("olá"), testutil.EndFrame}
	fb.Title = "Cumprimentos"
	manager, _ := newTestManager(t, fb, SessionOptions{})

	if err := manager.SubmitTurn(context.Background(), "oi"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if manager.CurrentChat().Title != "Cumprimentos" {
		t.Errorf("title = %q, want generated title", manager.CurrentChat().Title)
	}

	// Once set, a later turn must not regenerate it
	if err := manager.SubmitTurn(context.Background(), "mais uma"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if fb.TitleRequests != 1 {
		t.Errorf("title requested %d times, want 1", fb.TitleRequests)
	}
}

func TestTitleGeneration_FailureKeepsPlaceholder(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("olá"), testutil.EndFrame}
	fb.Title = "" // backend returns 500
	manager, _ := newTestManager(t, fb, SessionOptions{})

	if err := manager.SubmitTurn(context.Background(), "oi"); err != nil {
		t.Fatalf("SubmitTurn() should not fail on title errors, got %v", err)
	}
	if manager.CurrentChat().Title != DefaultChatTitle {
		t.Errorf("title = %q, want placeholder after title failure", manager.CurrentChat().Title)
	}
}

func TestDeleteChat_SoleSurvivor(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, store := newTestManager(t, fb, SessionOptions{})

	onlyID := manager.State().CurrentChatID
	if err := manager.DeleteChat(onlyID); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Chats) != 1 {
		t.Fatalf("%d chats remain, want exactly 1", len(loaded.Chats))
	}
	fresh := loaded.CurrentChat()
	if fresh.ID == onlyID {
		t.Error("deleted chat survived")
	}
	if len(fresh.Messages) != 1 || fresh.Messages[0].Content != GreetingMessage {
		t.Errorf("fresh chat messages = %+v, want single greeting", fresh.Messages)
	}
}

func TestDeleteChat_DeclinedConfirmation(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{
		Confirm: func(string) bool { return false },
	})

	onlyID := manager.State().CurrentChatID
	if err := manager.DeleteChat(onlyID); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}
	if _, ok := manager.State().Chats[onlyID]; !ok {
		t.Error("declined delete removed the chat")
	}
}

func TestSwitchChat(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{})

	first := manager.State().CurrentChatID
	second, err := manager.NewChatThread()
	if err != nil {
		t.Fatalf("NewChatThread() error = %v", err)
	}
	if manager.State().CurrentChatID != second.ID {
		t.Error("new chat did not become current")
	}

	if err := manager.SwitchChat(first); err != nil {
		t.Fatalf("SwitchChat() error = %v", err)
	}
	if manager.State().CurrentChatID != first {
		t.Error("SwitchChat() did not update current chat")
	}

	// Switching to the current chat is a no-op
	if err := manager.SwitchChat(first); err != nil {
		t.Fatalf("SwitchChat() to current error = %v", err)
	}

	if err := manager.SwitchChat("missing-id"); err == nil {
		t.Error("SwitchChat() to missing chat should fail")
	}
}

func TestAttachFiles_ContextAppliesToNextTurnOnly(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("ok"), testutil.EndFrame}
	fb.Title = "t"
	fb.ContextID = "ctx-42"
	manager, _ := newTestManager(t, fb, SessionOptions{})

	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "notas.txt")
	if err := os.WriteFile(path, []byte("conteúdo"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	fc, err := manager.AttachFiles(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("AttachFiles() error = %v", err)
	}
	if fc.ID != "ctx-42" {
		t.Errorf("context id = %q, want ctx-42", fc.ID)
	}
	if len(fc.Filenames) != 1 || fc.Filenames[0] != "notas.txt" {
		t.Errorf("filenames = %v", fc.Filenames)
	}

	if err := manager.SubmitTurn(context.Background(), "sobre o arquivo"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if fb.LastStreamQuery["context_id"] != "ctx-42" {
		t.Errorf("context_id param = %q, want ctx-42", fb.LastStreamQuery["context_id"])
	}

	// Consumed: the next turn carries no context
	if err := manager.SubmitTurn(context.Background(), "outra pergunta"); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if _, ok := fb.LastStreamQuery["context_id"]; ok {
		t.Error("file context leaked into a later turn")
	}
}

func TestAttachFiles_FailureLeavesSessionUsable(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.FailUploads = true
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("ok"), testutil.EndFrame}
	fb.Title = "t"
	manager, _ := newTestManager(t, fb, SessionOptions{})

	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := manager.AttachFiles(context.Background(), []string{path}); err == nil {
		t.Fatal("AttachFiles() should surface the upload failure")
	}
	if manager.PendingFiles() != nil {
		t.Error("failed upload left a pending context")
	}

	// Session continues without file context
	if err := manager.SubmitTurn(context.Background(), "segue o jogo"); err != nil {
		t.Fatalf("SubmitTurn() after failed upload error = %v", err)
	}
}

func TestListenAndSubmit(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Script = testutil.StreamScript{testutil.DeltaFrame("entendi"), testutil.EndFrame}
	fb.Title = "t"
	manager, _ := newTestManager(t, fb, SessionOptions{
		Recognizer: fakeRecognizer{transcript: "pergunta falada"},
	})

	if err := manager.ListenAndSubmit(context.Background()); err != nil {
		t.Fatalf("ListenAndSubmit() error = %v", err)
	}
	if fb.LastStreamQuery["message"] != "pergunta falada" {
		t.Errorf("message param = %q, want the transcript", fb.LastStreamQuery["message"])
	}
}

func TestListenAndSubmit_RecognitionError(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	manager, _ := newTestManager(t, fb, SessionOptions{
		Recognizer: fakeRecognizer{err: errors.New("no microphone")},
	})

	if err := manager.ListenAndSubmit(context.Background()); err == nil {
		t.Fatal("ListenAndSubmit() should surface recognition errors")
	}
	if fb.StreamRequests != 0 {
		t.Error("failed recognition opened a stream (no retry expected)")
	}
}

type fakeRecognizer struct {
	transcript string
	err        error
}

func (r fakeRecognizer) Recognize(ctx context.Context) (string, error) {
	return r.transcript, r.err
}

// scriptReader returns one scripted chunk per Read call, then EOF
type scriptReader struct {
	chunks []string
}

func newScriptReader(chunks ...string) *scriptReader {
	return &scriptReader{chunks: chunks}
}

func (r *scriptReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// erroringReader plays its chunks then fails with a transport error
type erroringReader struct {
	chunks []string
}

func (r *erroringReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, errors.New("connection reset")
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}
