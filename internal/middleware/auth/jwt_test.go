package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123"

func TestIssueAndParse(t *testing.T) {
	tok, err := IssueToken(secret, 42, "ada@example.com", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := NewVerifier(secret).Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestParseRejects(t *testing.T) {
	v := NewVerifier(secret)
	now := time.Now()

	expired, err := IssueToken(secret, 1, "", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	wrongKey, err := IssueToken("another-secret-of-length", 1, "", time.Hour, now)
	require.NoError(t, err)
	noUser, err := IssueToken(secret, 0, "", time.Hour, now)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":   expired,
		"wrong key": wrongKey,
		"no user":   noUser,
		"alg none":  none,
		"garbage":   "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(tok)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(secret)
	var seen int64
	h := v.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OwnerID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	tok, err := IssueToken(secret, 7, "", time.Hour, time.Now())
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), seen)
}
