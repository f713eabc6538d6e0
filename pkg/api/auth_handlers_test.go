package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/store"
)

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	username, password := "alice", testPassword
	w := api.do(http.MethodPost, "/auth/register", "", CredentialsRequest{
		Username: &username, Password: &password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var user store.User
	api.decode(w, &user)
	assert.Equal(t, "alice", user.Username)
	assert.NotZero(t, user.ID)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", testPassword)

	username, password := "alice", otherTestPassword
	w := api.do(http.MethodPost, "/auth/register", "", CredentialsRequest{
		Username: &username, Password: &password,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username exists", api.message(w))
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	badName := "no spaces allowed"
	weakPassword := "password"
	goodName := "alice"
	goodPassword := testPassword

	cases := []struct {
		name  string
		body  CredentialsRequest
		field string
	}{
		{"missing username", CredentialsRequest{Password: &goodPassword}, "username"},
		{"missing password", CredentialsRequest{Username: &goodName}, "password"},
		{"bad username", CredentialsRequest{Username: &badName, Password: &goodPassword}, "username"},
		{"weak password", CredentialsRequest{Username: &goodName, Password: &weakPassword}, "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/auth/register", "", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "true", w.Header().Get("X-Validation-Error"))

			var resp struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation error", resp.Message)
			assert.Contains(t, resp.Errors, tc.field)
		})
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", testPassword)

	pair := api.login("alice", testPassword)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Token, pair.Refresh)
}

func TestLoginWrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", testPassword)

	username, password := "alice", otherTestPassword
	w := api.do(http.MethodPost, "/auth/token", "", CredentialsRequest{
		Username: &username, Password: &password,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.AuthFailedMessage, api.message(w))
}

func TestLoginUnknownUser(t *testing.T) {
	api := newTestAPI(t)

	username, password := "nobody", testPassword
	w := api.do(http.MethodPost, "/auth/token", "", CredentialsRequest{
		Username: &username, Password: &password,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.AuthFailedMessage, api.message(w))
}

func TestRefresh(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", testPassword)
	pair := api.login("alice", testPassword)

	w := api.do(http.MethodPost, "/auth/refresh", pair.Refresh, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var token AccessToken
	api.decode(w, &token)
	assert.NotEmpty(t, token.Token)

	// the fresh access token works against an authenticated route
	w = api.do(http.MethodGet, "/users/alice", token.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", testPassword)
	pair := api.login("alice", testPassword)

	w := api.do(http.MethodPost, "/auth/refresh", pair.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.AuthFailedMessage, api.message(w))
}

func TestAccessRouteRejectsRefreshToken(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", testPassword)
	pair := api.login("alice", testPassword)

	w := api.do(http.MethodGet, "/users/alice", pair.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.AuthFailedMessage, api.message(w))
}
