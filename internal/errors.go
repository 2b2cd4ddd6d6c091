package internal

import (
	"errors"
	"fmt"
)

// ErrLoginRequired is returned when no usable credential is available.
// The caller is expected to send the user back to the login boundary.
var ErrLoginRequired = errors.New("login required: no valid credential")

// ErrStreamInFlight is returned when a submission is attempted while a
// stream is already open for the same chat.
var ErrStreamInFlight = errors.New("a reply is already streaming for this chat")

// AuthError represents a failure loading or decoding the bearer credential
type AuthError struct {
	Op  string // "load", "decode"
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StoreError represents errors accessing the persistent chat store
type StoreError struct {
	Subject string
	Op      string // "open", "load", "save"
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s [%s]: %v", e.Op, e.Subject, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TransportError represents a backend call that failed at the transport
// level, including a stream that broke mid-reply
type TransportError struct {
	Op  string // "stream", "title", "upload"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
