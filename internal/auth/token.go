package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoToken             = errors.New("no access token configured")
	ErrTokenExpired        = errors.New("access token has expired")
	ErrRefreshNotSupported = errors.New("access tokens are issued by the CES administrator and cannot be refreshed")
)

// TokenManager supplies the access token for outgoing requests.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// expiryBuffer treats tokens about to expire as already expired.
const expiryBuffer = 30 * time.Second

// Token is an API access token. A zero ExpiresAt never expires.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Valid reports whether the token is usable now.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	return t.ExpiresAt.IsZero() || time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenStore holds the current token.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

// StaticTokenManager serves a long-lived token issued out of band.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager for token. Surrounding whitespace
// is trimmed.
func NewStaticTokenManager(token string) *StaticTokenManager {
	manager := &StaticTokenManager{store: NewTokenStore()}
	manager.SetToken(token, time.Time{})

	return manager
}

// GetToken returns the configured token.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token == nil || token.AccessToken == "" {
		return "", ErrNoToken
	}

	if !token.Valid() {
		return "", ErrTokenExpired
	}

	return token.AccessToken, nil
}

// RefreshToken always fails; a new token has to be set explicitly.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrRefreshNotSupported
}

// SetToken replaces the token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	token = strings.TrimSpace(token)
	if token == "" {
		m.store.Clear()

		return
	}

	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
}
