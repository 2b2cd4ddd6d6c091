package internal

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Recognizer captures one spoken utterance and returns its transcript
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// NewRecognizer builds a recognizer from the configured listen command.
// Returns false when the capability is absent; callers hide the trigger
// in that case so no error path is reachable.
func NewRecognizer(cfg SpeechConfig) (Recognizer, bool) {
	if cfg.ListenCommand == "" {
		return nil, false
	}
	return &commandRecognizer{command: cfg.ListenCommand}, true
}

// commandRecognizer runs an external program that records a single
// utterance and prints the transcript on stdout
type commandRecognizer struct {
	command string
}

func (r *commandRecognizer) Recognize(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}
	transcript := strings.TrimSpace(string(out))
	if transcript == "" {
		return "", fmt.Errorf("speech recognition produced no transcript")
	}
	return transcript, nil
}
