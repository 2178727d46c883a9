// Package auth verifies bearer tokens and puts the owner id in the request
// context. Tokens are HS256 JWTs carrying the owner id in the userId claim.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("access token required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the token payload.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type ContextKey string

const ownerKey ContextKey = "owner_id"

// Verifier checks tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Parse validates signature, algorithm and expiry and returns the claims.
func (v *Verifier) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken signs a token for userID valid for ttl.
func IssueToken(secret string, userID int64, email string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware rejects requests without a token with 401 and requests with a
// bad token with 403. onError writes the response body.
func (v *Verifier) Middleware(onError func(w http.ResponseWriter, r *http.Request, status int, err error)) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				onError(w, r, http.StatusUnauthorized, ErrMissingToken)
				return
			}
			claims, err := v.Parse(raw)
			if err != nil {
				onError(w, r, http.StatusForbidden, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), claims.UserID)))
		})
	}
}

func WithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerID returns the authenticated owner, if any.
func OwnerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerKey).(int64)
	return id, ok && id > 0
}
