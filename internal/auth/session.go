package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// TokenFile stores the token in a file readable only by the owner.
type TokenFile string

// Load returns the stored token, or "" when there is none.
func (f TokenFile) Load() (string, error) {
	data, err := os.ReadFile(string(f))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token.
func (f TokenFile) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(string(f)), 0o755); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(string(f), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Clear removes the token file.
func (f TokenFile) Clear() error {
	err := os.Remove(string(f))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Session carries the signed-in identity for the whole process. It is
// acquired with Start, refreshed when the auth state changes elsewhere
// and torn down with SignOut. Components receive it explicitly.
type Session struct {
	svc    *Service
	tokens TokenStore

	mu        sync.RWMutex
	current   *Identity
	listeners []func(*Identity)
}

// NewSession creates an anonymous session.
func NewSession(svc *Service, tokens TokenStore) *Session {
	return &Session{svc: svc, tokens: tokens}
}

// Start restores the identity from the stored token. A missing, expired
// or revoked token leaves the session anonymous.
func (s *Session) Start(ctx context.Context) error {
	tk, err := s.tokens.Load()
	if err != nil {
		return err
	}
	if tk == "" {
		s.set(nil)
		return nil
	}

	id, err := s.svc.Resolve(ctx, tk)
	if errors.Is(err, ErrInvalidToken) {
		s.set(nil)
		return s.tokens.Clear()
	}
	if err != nil {
		return err
	}
	s.set(id)
	return nil
}

// Refresh re-reads the stored token. Use it after another process signed
// in or out.
func (s *Session) Refresh(ctx context.Context) error {
	return s.Start(ctx)
}

// SignIn logs in and persists the token.
func (s *Session) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	id, tk, err := s.svc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return id, s.adopt(id, tk)
}

// Register creates an account and signs it in.
func (s *Session) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	id, tk, err := s.svc.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	return id, s.adopt(id, tk)
}

// SignOut clears the stored token and makes the session anonymous.
func (s *Session) SignOut() error {
	if err := s.tokens.Clear(); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

// Current returns the signed-in identity, or nil when anonymous.
func (s *Session) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// UserID returns the signed-in user's id, or "" when anonymous.
func (s *Session) UserID() string {
	if id := s.Current(); id != nil {
		return id.ID
	}
	return ""
}

// OnChange registers a listener called with the new identity after every
// sign in, sign out or refresh.
func (s *Session) OnChange(fn func(*Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) adopt(id *Identity, token string) error {
	if err := s.tokens.Save(token); err != nil {
		return err
	}
	s.set(id)
	return nil
}

func (s *Session) set(id *Identity) {
	s.mu.Lock()
	s.current = id
	listeners := append([]func(*Identity){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(id)
	}
}
