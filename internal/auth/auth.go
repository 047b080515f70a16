// Package auth keeps the OAuth state that decides whether the tracker is
// signed in to a Google account.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrNotSignedIn is returned by cloud operations when no token is stored.
var ErrNotSignedIn = errors.New("not signed in")

// Scopes requested at sign-in. Drive access is limited to files the app created.
var Scopes = []string{
	drive.DriveFileScope,
	sheets.SpreadsheetsScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// LoadClientConfig reads the OAuth client from inline JSON or a file,
// preferring the inline value.
func LoadClientConfig(clientFile, clientJSON string) (*oauth2.Config, error) {
	var b []byte
	switch {
	case strings.TrimSpace(clientJSON) != "":
		b = []byte(clientJSON)
	case clientFile != "":
		var err error
		b, err = os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	default:
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}

	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenStore persists one token as JSON.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

func (s *TokenStore) Path() string { return s.path }

// Load returns ErrNotSignedIn when no token has been saved.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNotSignedIn
	}
	return &tok, nil
}

func (s *TokenStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Delete removes the token. A missing file is not an error.
func (s *TokenStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Status is what GET /api/auth/status reports.
type Status struct {
	SignedIn bool   `json:"signed_in"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Session combines the OAuth client with the stored token. The client may
// be nil, in which case the session can never be signed in.
type Session struct {
	config *oauth2.Config
	tokens *TokenStore
}

func NewSession(config *oauth2.Config, tokens *TokenStore) *Session {
	return &Session{config: config, tokens: tokens}
}

func (s *Session) SignedIn() bool {
	if s == nil || s.config == nil || s.tokens == nil {
		return false
	}
	_, err := s.tokens.Load()
	return err == nil
}

// TokenSource returns a source that refreshes the stored token and writes
// refreshed tokens back to the store. Refreshes keep ctx's values but not its
// cancellation, since the source is used after the caller's scope ends.
func (s *Session) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if s == nil || s.config == nil || s.tokens == nil {
		return nil, ErrNotSignedIn
	}
	tok, err := s.tokens.Load()
	if err != nil {
		return nil, err
	}
	return &savingSource{
		base:  s.config.TokenSource(context.WithoutCancel(ctx), tok),
		store: s.tokens,
		last:  tok.AccessToken,
	}, nil
}

// Status fetches the account profile. A failing profile call still reports
// the session as signed in.
func (s *Session) Status(ctx context.Context) (Status, error) {
	ts, err := s.TokenSource(ctx)
	if errors.Is(err, ErrNotSignedIn) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	st := Status{SignedIn: true}
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return st, fmt.Errorf("userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch account profile", "error", err)
		return st, nil
	}
	st.Email, st.Name = info.Email, info.Name
	return st, nil
}

// SignOut forgets the stored token.
func (s *Session) SignOut() error {
	if s == nil || s.tokens == nil {
		return nil
	}
	return s.tokens.Delete()
}

type savingSource struct {
	base  oauth2.TokenSource
	store *TokenStore

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			slog.Warn("Failed to persist refreshed token", "error", err)
		}
	}
	return tok, nil
}
