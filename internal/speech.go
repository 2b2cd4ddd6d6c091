package internal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// SpeechEngine abstracts the platform synthesis capability. The exec
// implementation shells out to whichever TTS binary the platform has; a
// fixed fake stands in during tests.
type SpeechEngine interface {
	// Voices enumerates the available voices. The speaker awaits the full
	// enumeration before binding a voice.
	Voices(ctx context.Context) ([]Voice, error)
	// Speak starts one utterance and returns a cancel function
	Speak(text string, voice Voice) (func(), error)
}

// Speaker is the speech output adapter. At most one utterance is ever
// active: a new one always cancels the previous one, never queues.
type Speaker struct {
	engine    SpeechEngine
	preferred string

	mu     sync.Mutex
	cancel func()
}

// NewSpeaker builds a speaker over an engine. Pass the preferred voice
// name from config; it wins the ranked selection when present.
func NewSpeaker(engine SpeechEngine, preferredVoice string) *Speaker {
	return &Speaker{engine: engine, preferred: preferredVoice}
}

// Say synthesizes text in the given language, cancelling any utterance
// already playing. Markup noise is stripped before synthesis.
func (s *Speaker) Say(ctx context.Context, text, lang string) error {
	s.Cancel()

	clean := CleanTextForSpeech(text)
	if clean == "" {
		return nil
	}
	if lang == "" {
		lang = DefaultLanguage
	}

	voices, err := s.engine.Voices(ctx)
	if err != nil {
		return fmt.Errorf("voice enumeration failed: %w", err)
	}
	voice, ok := SelectVoice(voices, lang, s.preferred)
	if !ok {
		// Platform default: let the engine pick by language tag alone
		voice = Voice{Lang: lang}
	}

	cancel, err := s.engine.Speak(clean, voice)
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// Cancel stops the active utterance, if any
func (s *Speaker) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

var (
	markupRunsRe   = regexp.MustCompile("###|##|#|\\*\\*|\\*|`")
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// CleanTextForSpeech strips structural markup before synthesis: heading
// and emphasis markers go away, links collapse to their text, and
// decorative symbol ranges (emoji and friends) are removed.
func CleanTextForSpeech(text string) string {
	clean := markupRunsRe.ReplaceAllString(text, "")
	clean = markdownLinkRe.ReplaceAllString(clean, "$1")

	var b strings.Builder
	for _, r := range clean {
		if isDecorativeSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isDecorativeSymbol(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoji
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	}
	return false
}

// Known synthesis binaries, probed in order
var speechBinaries = []string{"say", "espeak-ng", "espeak"}

// DetectSpeechEngine finds a usable synthesis binary. Returns false when
// the platform has none, in which case speech output is silently
// disabled and no error path is reachable.
func DetectSpeechEngine(override string) (SpeechEngine, bool) {
	candidates := speechBinaries
	if override != "" {
		candidates = []string{override}
	}
	for _, bin := range candidates {
		if path, err := exec.LookPath(bin); err == nil {
			return &execEngine{name: bin, path: path}, true
		}
	}
	return nil, false
}

// execEngine drives a platform TTS binary
type execEngine struct {
	name string
	path string
}

func (e *execEngine) Voices(ctx context.Context) ([]Voice, error) {
	var cmd *exec.Cmd
	if e.name == "say" {
		cmd = exec.CommandContext(ctx, e.path, "-v", "?")
	} else {
		cmd = exec.CommandContext(ctx, e.path, "--voices")
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	if e.name == "say" {
		return parseSayVoices(out), nil
	}
	return parseEspeakVoices(out), nil
}

func (e *execEngine) Speak(text string, voice Voice) (func(), error) {
	var cmd *exec.Cmd
	if e.name == "say" {
		if voice.Name != "" {
			cmd = exec.Command(e.path, "-v", voice.Name, text)
		} else {
			cmd = exec.Command(e.path, text)
		}
	} else {
		lang := voice.Lang
		if lang == "" {
			lang = DefaultLanguage
		}
		cmd = exec.Command(e.path, "-v", strings.ToLower(lang), text)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go func() { _ = cmd.Wait() }()
	return func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}, nil
}

// parseSayVoices parses `say -v ?` output: "Name    lang_TAG    # comment"
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		comment := ""
		if idx := strings.Index(line, "#"); idx >= 0 {
			comment = line[idx:]
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := strings.ReplaceAll(fields[len(fields)-1], "_", "-")
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, Voice{
			Name:    name,
			Lang:    lang,
			Natural: strings.Contains(comment, "(Natural)") || strings.Contains(name, "(Natural)"),
		})
	}
	return voices
}

// parseEspeakVoices parses `espeak --voices` output; column 2 is the
// language tag, column 4 the voice name.
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first { // header row
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{Name: fields[3], Lang: fields[1]})
	}
	return voices
}
