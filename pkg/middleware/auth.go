package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/contextkeys"
	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/observability"
	"github.com/listling/listling/pkg/store"
)

// AuthFailedMessage is the one message every authentication failure carries,
// so callers cannot distinguish a missing header from a bad signature or a
// deleted user.
const AuthFailedMessage = "could not authenticate"

// UserLookup resolves a verified token subject to a user record
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*store.User, error)
}

// Guard provides authentication middleware around the token service
type Guard struct {
	tokens  *auth.TokenService
	users   UserLookup
	metrics *observability.Metrics
}

// GuardOption configures the guard
type GuardOption func(*Guard)

// WithGuardMetrics records token verification failures
func WithGuardMetrics(m *observability.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard creates a new authentication guard
func NewGuard(tokens *auth.TokenService, users UserLookup, opts ...GuardOption) *Guard {
	g := &Guard{tokens: tokens, users: users}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireAuth wraps a handler that needs a valid access token
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return g.handler(next, auth.ScopeAccess, false)
}

// OptionalAuth wraps a handler that serves both anonymous and authenticated
// callers. A missing header passes through anonymously; a present but
// invalid token still fails.
func (g *Guard) OptionalAuth(next http.Handler) http.Handler {
	return g.handler(next, auth.ScopeAccess, true)
}

// RequireRefresh wraps a handler that needs a valid refresh token
func (g *Guard) RequireRefresh(next http.Handler) http.Handler {
	return g.handler(next, auth.ScopeRefresh, false)
}

func (g *Guard) handler(next http.Handler, scope auth.Scope, optional bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, AuthFailedMessage)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			g.recordFailure("malformed_header")
			httputil.WriteUnauthorized(w, AuthFailedMessage)
			return
		}

		userID, err := g.tokens.Verify(parts[1], scope)
		if err != nil {
			g.recordFailure(verifyFailureReason(err))
			httputil.WriteUnauthorized(w, AuthFailedMessage)
			return
		}

		user, err := g.users.GetUserByID(r.Context(), userID)
		if err != nil {
			// a token for a user that no longer exists is no token at all
			g.recordFailure("unknown_user")
			httputil.WriteUnauthorized(w, AuthFailedMessage)
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) recordFailure(reason string) {
	if g.metrics != nil {
		g.metrics.TokenFailuresTotal.WithLabelValues(reason).Inc()
	}
}

func verifyFailureReason(err error) string {
	if errors.Is(err, auth.ErrScopeMismatch) {
		return "scope_mismatch"
	}
	return "invalid_token"
}

// CurrentUser extracts the authenticated user from the request, nil for
// anonymous requests
func CurrentUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(contextkeys.UserKey).(*store.User)
	if !ok {
		return nil
	}
	return user
}
