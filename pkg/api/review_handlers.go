package api

import (
	"errors"
	"net/http"

	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/store"
	"github.com/listling/listling/pkg/validation"
)

// ReviewHandlers handles the /reviews routes and review creation under a
// todo
type ReviewHandlers struct {
	store store.Store
}

// NewReviewHandlers creates a new review handlers instance
func NewReviewHandlers(st store.Store) *ReviewHandlers {
	return &ReviewHandlers{store: st}
}

// listForTodo handles GET /todos/{id}/reviews
func (h *ReviewHandlers) listForTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	todo, err := h.store.GetTodoVisible(r.Context(), id, viewerID(r))
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to get todo")
		return
	}

	page := middleware.PageFrom(r)
	reviews, err := h.store.ListTodoReviews(r.Context(), todo.ID, page.Offset, page.Limit)
	if err != nil {
		internalError(w, r, err, "failed to list reviews")
		return
	}
	httputil.WriteSuccess(w, reviews)
}

// create handles POST /todos/{id}/reviews. The todo must be public, must
// not be the caller's own, and each user gets one review per todo.
func (h *ReviewHandlers) create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Review(req.Title, req.Content, req.Stars); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	todo, err := h.store.GetTodo(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to get todo")
		return
	}
	if !todo.Public {
		// private todos cannot collect reviews, their owner included
		httputil.WriteNotFound(w, "not found")
		return
	}
	if todo.UserID == user.ID {
		httputil.WriteForbidden(w, "can not review your own")
		return
	}

	_, err = h.store.GetReviewByUserTodo(r.Context(), user.ID, todo.ID)
	if err == nil {
		httputil.WriteConflict(w, "already reviewed")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		internalError(w, r, err, "failed to check for existing review")
		return
	}

	review, err := h.store.CreateReview(r.Context(), user.ID, todo.ID, *req.Title, *req.Content, *req.Stars)
	if errors.Is(err, store.ErrConflict) {
		// the unique constraint settles concurrent double-submissions too
		httputil.WriteConflict(w, "already reviewed")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to create review")
		return
	}
	httputil.WriteCreated(w, review)
}

// list handles GET /reviews: reviews whose parent todo is visible
func (h *ReviewHandlers) list(w http.ResponseWriter, r *http.Request) {
	page := middleware.PageFrom(r)

	reviews, err := h.store.ListReviewsVisible(r.Context(), viewerID(r), page.Offset, page.Limit)
	if err != nil {
		internalError(w, r, err, "failed to list reviews")
		return
	}
	httputil.WriteSuccess(w, reviews)
}

// get handles GET /reviews/{id}; visibility follows the parent todo
func (h *ReviewHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	review, err := h.store.GetReviewVisible(r.Context(), id, viewerID(r))
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to get review")
		return
	}
	httputil.WriteSuccess(w, review)
}

// authored fetches the review for a mutation; only the author may touch it,
// whatever happened to the parent todo's visibility since
func (h *ReviewHandlers) authored(w http.ResponseWriter, r *http.Request) (*store.Review, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}

	user := middleware.CurrentUser(r)
	review, err := h.store.GetReviewAuthored(r.Context(), id, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return nil, false
	}
	if err != nil {
		internalError(w, r, err, "failed to get review")
		return nil, false
	}
	return review, true
}

// update handles PATCH /reviews/{id}
func (h *ReviewHandlers) update(w http.ResponseWriter, r *http.Request) {
	review, ok := h.authored(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Review(req.Title, req.Content, req.Stars); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	if err := h.store.UpdateReview(r.Context(), review.ID, *req.Title, *req.Content, *req.Stars); err != nil {
		internalError(w, r, err, "failed to update review")
		return
	}

	updated, err := h.store.GetReviewAuthored(r.Context(), review.ID, review.UserID)
	if err != nil {
		internalError(w, r, err, "failed to reload review")
		return
	}
	httputil.WriteSuccess(w, updated)
}

// delete handles DELETE /reviews/{id}
func (h *ReviewHandlers) delete(w http.ResponseWriter, r *http.Request) {
	review, ok := h.authored(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteReview(r.Context(), review.ID); err != nil {
		internalError(w, r, err, "failed to delete review")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "deleted"})
}
