package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("user-1", rbac.RoleLearner)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Sub)
	assert.Equal(t, rbac.RoleLearner, c.Role)

	_, err = NewAuthService("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("user-2", rbac.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", gotSub)
	assert.Equal(t, rbac.RoleAdmin, gotRole)
}

func TestOptionalJWTLetsAnonymousThrough(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	called := false
	h := OptionalJWT(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, SubjectFromContext(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestSessionFromToken(t *testing.T) {
	now := time.Now()
	tok, err := NewAuthService("secret", time.Hour).IssueJWT("user-3", rbac.RoleLearner)
	require.NoError(t, err)

	s := SessionFromToken(tok, now)
	assert.True(t, s.Authenticated())
	assert.Equal(t, "user-3", s.UserID)

	assert.False(t, SessionFromToken(tok, now.Add(2*time.Hour)).Authenticated(), "expired")
	assert.Equal(t, Guest(), SessionFromToken("", now))
	assert.Equal(t, Guest(), SessionFromToken("not.a.jwt", now))
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	sealer, err := storage.NewSealer("test")
	require.NoError(t, err)
	ts := NewTokenStore(storage.NewMemory(storage.WithSealer(sealer)))

	assert.Equal(t, StatusUnauthenticated, ts.Session(ctx).Status)

	tok, err := NewAuthService("secret", time.Hour).IssueJWT("user-4", rbac.RoleLearner)
	require.NoError(t, err)
	require.True(t, ts.SetToken(ctx, tok))
	assert.Equal(t, tok, ts.Token(ctx))
	assert.Equal(t, "user-4", ts.Session(ctx).UserID)

	require.True(t, ts.Clear(ctx))
	assert.Empty(t, ts.Token(ctx))
}
