package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subject/role pair decoded from the bearer credential.
// It is derived once per loaded credential and immutable afterwards.
type Identity struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the credential carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// DecodeIdentity decodes the payload segment of a bearer token without
// verifying its signature. This is presentation-only: the backend
// re-validates the token on every call, so nothing here is an
// authorization check.
func DecodeIdentity(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, &AuthError{Op: "decode", Err: err}
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return Identity{}, &AuthError{Op: "decode", Err: fmt.Errorf("token payload has no subject")}
	}
	role, _ := claims["role"].(string)

	return Identity{Subject: subject, Role: role}, nil
}

// LoadCredential reads the stored bearer token and resolves its identity.
// On a missing or undecodable token the stored credential is purged and
// ErrLoginRequired is returned; no session state may be initialized in
// that case.
func LoadCredential(path string) (string, Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", Identity{}, ErrLoginRequired
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		PurgeCredential(path)
		return "", Identity{}, ErrLoginRequired
	}

	identity, err := DecodeIdentity(token)
	if err != nil {
		LogWarn("Stored credential is unusable, purging: %v", err)
		PurgeCredential(path)
		return "", Identity{}, ErrLoginRequired
	}

	return token, identity, nil
}

// PurgeCredential removes the stored bearer token, if any
func PurgeCredential(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		LogWarn("Failed to remove credential file: %v", err)
	}
}
