package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SpeechConfig controls the optional accessibility adapters
type SpeechConfig struct {
	Enabled bool `yaml:"enabled"`
	// Voice is the preferred voice name, matched first during selection
	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`
	// Engine overrides synthesis binary auto-detection ("say", "espeak-ng", ...)
	Engine string `yaml:"engine,omitempty"`
	// ListenCommand is a program that records one utterance and prints the
	// transcript on stdout. Empty means speech input is unavailable.
	ListenCommand string `yaml:"listen_command,omitempty"`
}

// Config holds all client settings
type Config struct {
	BackendURL string       `yaml:"backend_url"`
	TokenPath  string       `yaml:"token_path"`
	StatePath  string       `yaml:"state_path"`
	Speech     SpeechConfig `yaml:"speech"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".jarvis")
	return &Config{
		BackendURL: "https://jarvis-ia-backend.onrender.com",
		TokenPath:  filepath.Join(base, "token"),
		StatePath:  filepath.Join(base, "state.db"),
		Speech: SpeechConfig{
			Enabled:  false,
			Voice:    "Francisca",
			Language: DefaultLanguage,
		},
	}
}

// DefaultConfigPath returns the default location of the config file
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".jarvis", "config.yaml")
}

// LoadConfig reads the YAML config at path, falling back to defaults for
// anything unset. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = DefaultLanguage
	}
	return cfg, nil
}

// SaveConfig writes the config as YAML, creating parent directories
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
