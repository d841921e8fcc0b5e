package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no access token stored, run 'clubctl token set <token>' first")

func SaveToken(path string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("access token is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}

	b, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoToken
	}

	return &token, nil
}

// ClearToken removes the stored token. Used when the server reports the
// session as expired.
func ClearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	return nil
}

// NewTokenSource prefers an explicit token (from config or environment) and
// falls back to the token file.
func NewTokenSource(explicit, path string) (oauth2.TokenSource, error) {
	if explicit != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: explicit, TokenType: "Bearer"}), nil
	}

	token, err := LoadToken(path)
	if err != nil {
		return nil, err
	}

	return oauth2.StaticTokenSource(token), nil
}
