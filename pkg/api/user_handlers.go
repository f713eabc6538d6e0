package api

import (
	"errors"
	"net/http"

	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/store"
	"github.com/listling/listling/pkg/validation"
)

// UserHandlers handles the /users/{username} routes. Accounts are only
// visible to themselves; addressing any other username is forbidden.
type UserHandlers struct {
	store store.Store
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(st store.Store) *UserHandlers {
	return &UserHandlers{store: st}
}

// self resolves the path username against the authenticated caller and
// writes the error when they differ
func (h *UserHandlers) self(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	username, err := httputil.ParsePathString(r, "username")
	if err != nil {
		httputil.WriteNotFound(w, "not found")
		return nil, false
	}

	user := middleware.CurrentUser(r)
	if user.Username != username {
		httputil.WriteForbidden(w, "not allowed")
		return nil, false
	}
	return user, true
}

// getUser handles GET /users/{username}
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.self(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateUser handles PATCH /users/{username}
func (h *UserHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.self(w, r)
	if !ok {
		return
	}

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

	err = h.store.UpdateUser(r.Context(), user.ID, *req.Username, hash)
	if errors.Is(err, store.ErrConflict) {
		httputil.WriteConflict(w, "username exists")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to update user")
		return
	}

	updated, err := h.store.GetUserByID(r.Context(), user.ID)
	if err != nil {
		internalError(w, r, err, "failed to reload user")
		return
	}
	httputil.WriteSuccess(w, updated)
}

// deleteUser handles DELETE /users/{username}; todos, items and reviews go
// with the account
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.self(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteUser(r.Context(), user.ID); err != nil {
		internalError(w, r, err, "failed to delete user")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "deleted"})
}
