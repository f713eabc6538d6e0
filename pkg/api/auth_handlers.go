package api

import (
	"errors"
	"net/http"

	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/observability"
	"github.com/listling/listling/pkg/store"
	"github.com/listling/listling/pkg/validation"
)

// AuthHandlers handles registration and token issuance
type AuthHandlers struct {
	store   store.Store
	tokens  *auth.TokenService
	metrics *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(st store.Store, tokens *auth.TokenService, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{store: st, tokens: tokens, metrics: metrics}
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Credentials(req.Username, req.Password); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		internalError(w, r, err, "failed to hash password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), *req.Username, hash)
	if errors.Is(err, store.ErrConflict) {
		httputil.WriteConflict(w, "username exists")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to create user")
		return
	}

	httputil.WriteCreated(w, user)
}

// login handles POST /auth/token
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Credentials(req.Username, req.Password); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), *req.Username)
	if errors.Is(err, store.ErrNotFound) {
		h.loginFailed(w)
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to look up user")
		return
	}

	if err := auth.CheckPassword(user.Password, *req.Password); err != nil {
		h.loginFailed(w)
		return
	}

	access, err := h.tokens.IssueAccess(user.ID)
	if err != nil {
		internalError(w, r, err, "failed to issue access token")
		return
	}
	refresh, err := h.tokens.IssueRefresh(user.ID)
	if err != nil {
		internalError(w, r, err, "failed to issue refresh token")
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.ScopeAccess)).Inc()
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.ScopeRefresh)).Inc()
	}
	httputil.WriteCreated(w, TokenPair{Token: access, Refresh: refresh})
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter) {
	if h.metrics != nil {
		h.metrics.LoginFailuresTotal.Inc()
	}
	httputil.WriteUnauthorized(w, middleware.AuthFailedMessage)
}

// refresh handles POST /auth/refresh, guarded by RequireRefresh
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	access, err := h.tokens.IssueAccess(user.ID)
	if err != nil {
		internalError(w, r, err, "failed to issue access token")
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.ScopeAccess)).Inc()
	}
	httputil.WriteCreated(w, AccessToken{Token: access})
}
