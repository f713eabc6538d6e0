package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/observability"
	"github.com/listling/listling/pkg/store"
)

type fakeUsers struct {
	users map[int64]*store.User
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func newTestGuard(t *testing.T) (*Guard, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"))
	users := &fakeUsers{users: map[int64]*store.User{
		1: {ID: 1, Username: "alice"},
	}}
	return NewGuard(tokens, users), tokens
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := CurrentUser(r); user != nil {
			w.Write([]byte(user.Username))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func assertAuthFailed(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, AuthFailedMessage, resp["message"])
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	guard, _ := newTestGuard(t)

	w := httptest.NewRecorder()
	guard.RequireAuth(echoUser()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assertAuthFailed(t, w)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	guard, tokens := newTestGuard(t)
	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)

	for _, header := range []string{
		"Bearer",
		"Basic " + token,
		token,
	} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		guard.RequireAuth(echoUser()).ServeHTTP(w, r)

		assertAuthFailed(t, w)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	guard, tokens := newTestGuard(t)
	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	guard.RequireAuth(echoUser()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	guard, tokens := newTestGuard(t)
	token, err := tokens.IssueRefresh(1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	guard.RequireAuth(echoUser()).ServeHTTP(w, r)

	assertAuthFailed(t, w)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	guard, tokens := newTestGuard(t)
	token, err := tokens.IssueAccess(99)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	guard.RequireAuth(echoUser()).ServeHTTP(w, r)

	assertAuthFailed(t, w)
}

func TestOptionalAuth_NoHeader(t *testing.T) {
	guard, _ := newTestGuard(t)

	w := httptest.NewRecorder()
	guard.OptionalAuth(echoUser()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	guard, tokens := newTestGuard(t)
	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	guard.OptionalAuth(echoUser()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestOptionalAuth_InvalidTokenStillRejected(t *testing.T) {
	guard, _ := newTestGuard(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	guard.OptionalAuth(echoUser()).ServeHTTP(w, r)

	assertAuthFailed(t, w)
}

func TestRequireRefresh(t *testing.T) {
	guard, tokens := newTestGuard(t)

	refresh, err := tokens.IssueRefresh(1)
	require.NoError(t, err)
	access, err := tokens.IssueAccess(1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
	r.Header.Set("Authorization", "Bearer "+refresh)
	guard.RequireRefresh(echoUser()).ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// access tokens cannot refresh
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
	r.Header.Set("Authorization", "Bearer "+access)
	guard.RequireRefresh(echoUser()).ServeHTTP(w, r)
	assertAuthFailed(t, w)
}

func TestCurrentUser_Absent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, CurrentUser(r))
}

func TestGuardRecordsTokenFailures(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	tokens := auth.NewTokenService([]byte("test-secret"))
	users := &fakeUsers{users: map[int64]*store.User{
		1: {ID: 1, Username: "alice"},
	}}
	guard := NewGuard(tokens, users, WithGuardMetrics(metrics))

	send := func(header string) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		guard.RequireAuth(echoUser()).ServeHTTP(w, r)
		assertAuthFailed(t, w)
	}

	send("garbage")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TokenFailuresTotal.WithLabelValues("malformed_header")))

	send("Bearer not-a-jwt")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TokenFailuresTotal.WithLabelValues("invalid_token")))

	refresh, err := tokens.IssueRefresh(1)
	require.NoError(t, err)
	send("Bearer " + refresh)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TokenFailuresTotal.WithLabelValues("scope_mismatch")))

	gone, err := tokens.IssueAccess(42)
	require.NoError(t, err)
	send("Bearer " + gone)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TokenFailuresTotal.WithLabelValues("unknown_user")))
}
