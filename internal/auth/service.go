package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/simulado/internal/store"
)

// AccountStore is the slice of the account repository auth needs.
type AccountStore interface {
	Create(ctx context.Context, a *store.Account) error
	ByEmail(ctx context.Context, email string) (*store.Account, error)
	ByID(ctx context.Context, id string) (*store.Account, error)
}

// Service registers and signs in local accounts.
type Service struct {
	accounts AccountStore
	tokens   *TokenIssuer
}

// NewService creates an auth service.
func NewService(accounts AccountStore, tokens *TokenIssuer) *Service {
	return &Service{accounts: accounts, tokens: tokens}
}

// Register creates an account and returns its identity with a fresh token.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Identity, string, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, "", ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	acct := &store.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("register: %w", err)
	}
	return s.issue(acct)
}

// Login checks the credentials and returns the identity with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Identity, string, error) {
	acct, err := s.accounts.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if err := CheckPassword(acct.PasswordHash, password); err != nil {
		return nil, "", err
	}
	return s.issue(acct)
}

// Resolve validates a token and loads the account it names.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.ByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %s no longer exists", ErrInvalidToken, claims.Subject)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return identityOf(acct), nil
}

func (s *Service) issue(acct *store.Account) (*Identity, string, error) {
	id := identityOf(acct)
	tk, err := s.tokens.Issue(id)
	if err != nil {
		return nil, "", err
	}
	return id, tk, nil
}

func identityOf(acct *store.Account) *Identity {
	md := map[string]string{}
	if acct.DisplayName != "" {
		md["display_name"] = acct.DisplayName
	}
	return &Identity{ID: acct.ID, Email: acct.Email, Metadata: md}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
