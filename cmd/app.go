package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
)

// app bundles everything a command needs after session init: resolved
// identity, scoped store, and the backend client.
type app struct {
	cfg      *internal.Config
	token    string
	identity internal.Identity
	db       *sql.DB
	store    *internal.ChatStore
	backend  *internal.BackendClient
}

// loadApp resolves the credential and opens the state database. A
// missing or malformed credential is fatal here: the resolver purges it
// and the user is sent to the login boundary.
func loadApp() (*app, error) {
	cfg, err := internal.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}

	token, identity, err := internal.LoadCredential(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w\nObtenha um token no portal e rode: jarvis login <token>", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := internal.OpenDatabase(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		token:    token,
		identity: identity,
		db:       db,
		store:    internal.NewChatStore(db, identity),
		backend:  internal.NewBackendClient(cfg.BackendURL, token),
	}, nil
}

// Close releases the state database
func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return internal.DefaultConfigPath()
}
