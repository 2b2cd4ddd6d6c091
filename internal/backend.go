package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// BackendClient talks to the remote model backend. It exposes the three
// operations the session engine consumes: stream a turn, suggest a title,
// ingest files.
type BackendClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewBackendClient creates a client for the given backend URL and bearer token
func NewBackendClient(baseURL, token string) *BackendClient {
	return &BackendClient{
		baseURL: baseURL,
		token:   token,
		// No overall timeout: streams stay open as long as the model talks.
		http: &http.Client{},
	}
}

// StreamRequest carries one turn submission
type StreamRequest struct {
	Message string
	// History is the prior conversation, excluding the message being sent
	History []Message
	// ContextID optionally grounds this turn in previously ingested files
	ContextID string
}

// OpenStream opens the streaming endpoint for one turn and returns the
// raw transport body. The caller owns the body and feeds it through a
// FrameDecoder until an end frame, EOF, or error.
func (c *BackendClient) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	history, err := json.Marshal(req.History)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}

	params := url.Values{}
	params.Set("message", req.Message)
	params.Set("history", string(history))
	params.Set("token", c.token)
	if req.ContextID != "" {
		params.Set("context_id", req.ContextID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/chat/stream?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &TransportError{Op: "stream", Err: fmt.Errorf("backend returned %s", resp.Status)}
	}
	return resp.Body, nil
}

type titleRequest struct {
	History []Message `json:"history"`
}

type titleResponse struct {
	Title string `json:"title"`
}

// SuggestTitle asks the backend for a short conversation title
func (c *BackendClient) SuggestTitle(ctx context.Context, history []Message) (string, error) {
	body, err := json.Marshal(titleRequest{History: history})
	if err != nil {
		return "", &TransportError{Op: "title", Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		c.baseURL+"/chat/generate-title", bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: "title", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &TransportError{Op: "title", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "title", Err: fmt.Errorf("backend returned %s", resp.Status)}
	}

	var out titleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "title", Err: err}
	}
	return out.Title, nil
}

type uploadResponse struct {
	ContextID string   `json:"context_id"`
	Filenames []string `json:"filenames"`
}

// IngestFiles uploads files and returns the context handle that grounds
// the next turn
func (c *BackendClient) IngestFiles(ctx context.Context, paths []string) (*FileContext, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, &TransportError{Op: "upload", Err: err}
		}
		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, &TransportError{Op: "upload", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/upload-files", &buf)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "upload", Err: fmt.Errorf("backend returned %s", resp.Status)}
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	return &FileContext{ID: out.ContextID, Filenames: out.Filenames}, nil
}
