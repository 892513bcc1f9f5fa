package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-learn/internal/storage"
)

// TokenKey is the secure storage key holding the bearer token.
const TokenKey = "auth_token"

type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
)

// Session is the client's view of who is signed in.
type Session struct {
	Status Status
	UserID string
	Token  string
}

func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.UserID != ""
}

func Guest() Session { return Session{Status: StatusUnauthenticated} }

// SessionFromToken reads the subject of a token without verifying its
// signature; the server verifies it on every request. Expired or
// malformed tokens yield a guest session.
func SessionFromToken(tok string, now time.Time) Session {
	if tok == "" {
		return Guest()
	}
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &c); err != nil || c.Sub == "" {
		return Guest()
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return Guest()
	}
	return Session{Status: StatusAuthenticated, UserID: c.Sub, Token: tok}
}

// TokenStore keeps the bearer token in secure storage.
type TokenStore struct {
	store *storage.Adapter
	now   func() time.Time
}

func NewTokenStore(store *storage.Adapter) *TokenStore {
	return &TokenStore{store: store, now: time.Now}
}

// Token returns the stored token or "".
func (t *TokenStore) Token(ctx context.Context) string {
	var tok string
	if !t.store.GetItem(ctx, TokenKey, &tok, storage.Secure) {
		return ""
	}
	return tok
}

func (t *TokenStore) SetToken(ctx context.Context, tok string) bool {
	return t.store.SetItem(ctx, TokenKey, tok, storage.Secure)
}

func (t *TokenStore) Clear(ctx context.Context) bool {
	return t.store.RemoveItem(ctx, TokenKey, storage.Secure)
}

func (t *TokenStore) Session(ctx context.Context) Session {
	return SessionFromToken(t.Token(ctx), t.now())
}
