package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// StreamScript is the frame sequence a fake backend plays back for one
// turn. Each entry is written verbatim followed by the blank-line frame
// boundary.
type StreamScript []string

// DeltaFrame builds a text-delta frame for a fragment
func DeltaFrame(text string) string {
	return fmt.Sprintf(`data: {"text":%q}`, text)
}

// MetaFrame builds a metadata frame carrying a language tag
func MetaFrame(lang string) string {
	return fmt.Sprintf(`meta: {"lang":%q}`, lang)
}

// EndFrame is the bare end marker
const EndFrame = "end"

// FakeBackend is an httptest server that speaks the chat backend protocol
type FakeBackend struct {
	Server *httptest.Server

	// Script is played for every /chat/stream request
	Script StreamScript
	// Title is returned by /chat/generate-title; empty → 500
	Title string
	// ContextID is returned by /chat/upload-files
	ContextID string
	// FailUploads makes /chat/upload-files return 500
	FailUploads bool
	// CutMidStream severs the connection after the script instead of
	// ending the response cleanly, so the client sees a transport error
	CutMidStream bool

	// LastStreamQuery records the query of the most recent stream request
	LastStreamQuery map[string]string
	// StreamRequests counts stream opens
	StreamRequests int
	// TitleRequests counts title calls
	TitleRequests int
}

// NewFakeBackend starts a fake backend and registers its shutdown
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{ContextID: "ctx-test"}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		fb.StreamRequests++
		fb.LastStreamQuery = map[string]string{}
		for key := range r.URL.Query() {
			fb.LastStreamQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range fb.Script {
			fmt.Fprintf(w, "%s\n\n", frame)
		}
		if fb.CutMidStream {
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					conn.Close()
				}
			}
		}
	})
	mux.HandleFunc("/chat/generate-title", func(w http.ResponseWriter, r *http.Request) {
		fb.TitleRequests++
		if fb.Title == "" {
			http.Error(w, "no title", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"title":%q}`, fb.Title)
	})
	mux.HandleFunc("/chat/upload-files", func(w http.ResponseWriter, r *http.Request) {
		if fb.FailUploads {
			http.Error(w, "upload failed", http.StatusInternalServerError)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		names := "["
		for i, fh := range r.MultipartForm.File["files"] {
			if i > 0 {
				names += ","
			}
			names += fmt.Sprintf("%q", fh.Filename)
		}
		names += "]"
		fmt.Fprintf(w, `{"context_id":%q,"filenames":%s}`, fb.ContextID, names)
	})

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the fake backend base URL
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}
