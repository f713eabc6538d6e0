package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope distinguishes access tokens from refresh tokens
type Scope string

const (
	// ScopeAccess is the scope claim of short-lived API tokens
	ScopeAccess Scope = "access"
	// ScopeRefresh is the scope claim of tokens that may only mint new access tokens
	ScopeRefresh Scope = "refresh"
)

const (
	// DefaultAccessTTL is the default lifetime of access tokens
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the default lifetime of refresh tokens
	DefaultRefreshTTL = 5 * time.Hour
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or its
	// signature does not verify
	ErrInvalidToken = errors.New("invalid token")
	// ErrScopeMismatch is returned when a token verifies but carries the
	// wrong scope claim
	ErrScopeMismatch = errors.New("token scope mismatch")
)

// Claims is the JWT claim set carried by every token.
// Wire format: {"uid": <subject id>, "scp": "access"|"refresh", "exp": <unix>}
type Claims struct {
	UserID int64  `json:"uid"`
	Scope  string `json:"scp"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies signed claim sets. Verification is a pure
// function of the token string and the signing secret; no external state is
// consulted. The service is safe for concurrent use.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a TokenService
type Option func(*TokenService)

// WithAccessTTL overrides the access token lifetime
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *TokenService) { s.accessTTL = ttl }
}

// WithRefreshTTL overrides the refresh token lifetime
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *TokenService) { s.refreshTTL = ttl }
}

// WithClock overrides the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a token service signing with the given secret
func NewTokenService(secret []byte, opts ...Option) *TokenService {
	s := &TokenService{
		secret:     secret,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueAccess mints a signed access token for the given user
func (s *TokenService) IssueAccess(userID int64) (string, error) {
	return s.issue(userID, ScopeAccess, s.accessTTL)
}

// IssueRefresh mints a signed refresh token for the given user
func (s *TokenService) IssueRefresh(userID int64) (string, error) {
	return s.issue(userID, ScopeRefresh, s.refreshTTL)
}

func (s *TokenService) issue(userID int64, scope Scope, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Scope:  string(scope),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and that its scope claim
// matches the expected scope, returning the subject user ID. Returns
// ErrInvalidToken for malformed, forged, or expired tokens and
// ErrScopeMismatch when only the scope differs.
func (s *TokenService) Verify(tokenString string, expected Scope) (int64, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if claims.Scope != string(expected) {
		return 0, ErrScopeMismatch
	}

	return claims.UserID, nil
}
