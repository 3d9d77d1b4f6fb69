package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by the token source when no session has been established.
var ErrNoToken = errors.New("no session token")

// Session holds the bearer token used against the budget API. A Session
// without a valid token reports itself unauthenticated.
type Session struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewSession returns a session for a raw access token. An empty token
// yields an unauthenticated session.
func NewSession(accessToken string) *Session {
	s := &Session{}
	if accessToken = strings.TrimSpace(accessToken); accessToken != "" {
		s.tok = &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	}
	return s
}

// LoadSession reads an oauth2 token serialized as JSON.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &Session{tok: &tok}, nil
}

// FromSources picks the token file when set, the raw token otherwise.
func FromSources(accessToken, tokenFile string) (*Session, error) {
	if tokenFile != "" {
		return LoadSession(tokenFile)
	}
	return NewSession(accessToken), nil
}

// Authenticated reports whether the session currently holds a valid token.
func (s *Session) Authenticated(_ context.Context) bool {
	tok, err := s.Token()
	return err == nil && tok.Valid()
}

// SetToken replaces the session token, e.g. after a login.
func (s *Session) SetToken(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
}

// Clear drops the session token.
func (s *Session) Clear() {
	s.SetToken(nil)
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil || s.tok.AccessToken == "" {
		return nil, ErrNoToken
	}
	if !s.tok.Valid() {
		return nil, fmt.Errorf("session token expired at %s", s.tok.Expiry)
	}
	copied := *s.tok
	return &copied, nil
}

// TokenSource returns the session as an oauth2.TokenSource suitable for
// oauth2.Transport.
func (s *Session) TokenSource() oauth2.TokenSource {
	return s
}

var _ oauth2.TokenSource = (*Session)(nil)
