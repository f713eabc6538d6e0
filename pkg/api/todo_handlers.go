package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/store"
	"github.com/listling/listling/pkg/validation"
)

// TodoHandlers handles the /todos routes and their item subroutes
type TodoHandlers struct {
	store store.Store
}

// NewTodoHandlers creates a new todo handlers instance
func NewTodoHandlers(st store.Store) *TodoHandlers {
	return &TodoHandlers{store: st}
}

// listBest handles GET /todos/best: public todos ranked by average stars
func (h *TodoHandlers) listBest(w http.ResponseWriter, r *http.Request) {
	page := middleware.PageFrom(r)

	todos, err := h.store.ListBestTodos(r.Context(), page.Offset, page.Limit)
	if err != nil {
		internalError(w, r, err, "failed to list best todos")
		return
	}
	httputil.WriteSuccess(w, todos)
}

// list handles GET /todos: everything public plus the caller's own
func (h *TodoHandlers) list(w http.ResponseWriter, r *http.Request) {
	page := middleware.PageFrom(r)

	todos, err := h.store.ListTodosVisible(r.Context(), viewerID(r), page.Offset, page.Limit)
	if err != nil {
		internalError(w, r, err, "failed to list todos")
		return
	}
	httputil.WriteSuccess(w, todos)
}

// create handles POST /todos
func (h *TodoHandlers) create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	var req TodoRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Todo(req.Title, req.Public); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	todo, err := h.store.CreateTodo(r.Context(), user.ID, *req.Title, *req.Public)
	if err != nil {
		internalError(w, r, err, "failed to create todo")
		return
	}
	httputil.WriteCreated(w, todo)
}

// get handles GET /todos/{id}; private todos 404 for everyone but their
// owner
func (h *TodoHandlers) get(w http.ResponseWriter, r *http.Request) {
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
	httputil.WriteSuccess(w, todo)
}

// owned fetches the todo for a mutation; a miss, whether absent or someone
// else's, is a 404
func (h *TodoHandlers) owned(w http.ResponseWriter, r *http.Request) (*store.Todo, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}

	user := middleware.CurrentUser(r)
	todo, err := h.store.GetTodoOwned(r.Context(), id, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return nil, false
	}
	if err != nil {
		internalError(w, r, err, "failed to get todo")
		return nil, false
	}
	return todo, true
}

// update handles PATCH /todos/{id}
func (h *TodoHandlers) update(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req TodoRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Todo(req.Title, req.Public); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	if err := h.store.UpdateTodo(r.Context(), todo.ID, *req.Title, *req.Public); err != nil {
		internalError(w, r, err, "failed to update todo")
		return
	}

	updated, err := h.store.GetTodo(r.Context(), todo.ID)
	if err != nil {
		internalError(w, r, err, "failed to reload todo")
		return
	}
	httputil.WriteSuccess(w, updated)
}

// delete handles DELETE /todos/{id}; items and reviews go with the todo
func (h *TodoHandlers) delete(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteTodo(r.Context(), todo.ID); err != nil {
		internalError(w, r, err, "failed to delete todo")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "deleted"})
}

// visible fetches the todo for a read; visibility is public-or-owned
func (h *TodoHandlers) visible(w http.ResponseWriter, r *http.Request) (*store.Todo, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}

	todo, err := h.store.GetTodoVisible(r.Context(), id, viewerID(r))
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return nil, false
	}
	if err != nil {
		internalError(w, r, err, "failed to get todo")
		return nil, false
	}
	return todo, true
}

// listItems handles GET /todos/{id}/items
func (h *TodoHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.visible(w, r)
	if !ok {
		return
	}
	page := middleware.PageFrom(r)

	items, err := h.store.ListItems(r.Context(), todo.ID, page.Offset, page.Limit)
	if err != nil {
		internalError(w, r, err, "failed to list items")
		return
	}
	httputil.WriteSuccess(w, items)
}

// createItem handles POST /todos/{id}/items; a todo holds at most
// store.MaxItemsPerTodo items
func (h *TodoHandlers) createItem(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req ItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Item(req.Content, req.Completed); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	count, err := h.store.CountItems(r.Context(), todo.ID)
	if err != nil {
		internalError(w, r, err, "failed to count items")
		return
	}
	if count >= store.MaxItemsPerTodo {
		httputil.WriteBadRequest(w, fmt.Sprintf("todo can contain up to %d items", store.MaxItemsPerTodo))
		return
	}

	item, err := h.store.CreateItem(r.Context(), todo.ID, *req.Content, *req.Completed)
	if err != nil {
		internalError(w, r, err, "failed to create item")
		return
	}
	httputil.WriteCreated(w, item)
}

// getItem handles GET /todos/{id}/items/{iid}
func (h *TodoHandlers) getItem(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.visible(w, r)
	if !ok {
		return
	}
	itemID, ok := httputil.ParsePathInt64OrError(w, r, "iid")
	if !ok {
		return
	}

	item, err := h.store.GetItem(r.Context(), todo.ID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to get item")
		return
	}
	httputil.WriteSuccess(w, item)
}

// updateItem handles PATCH /todos/{id}/items/{iid}
func (h *TodoHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.owned(w, r)
	if !ok {
		return
	}
	itemID, ok := httputil.ParsePathInt64OrError(w, r, "iid")
	if !ok {
		return
	}

	var req ItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := validation.Item(req.Content, req.Completed); !errs.Empty() {
		httputil.WriteValidationErrors(w, errs)
		return
	}

	err := h.store.UpdateItem(r.Context(), todo.ID, itemID, *req.Content, *req.Completed)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to update item")
		return
	}

	item, err := h.store.GetItem(r.Context(), todo.ID, itemID)
	if err != nil {
		internalError(w, r, err, "failed to reload item")
		return
	}
	httputil.WriteSuccess(w, item)
}

// deleteItem handles DELETE /todos/{id}/items/{iid}
func (h *TodoHandlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.owned(w, r)
	if !ok {
		return
	}
	itemID, ok := httputil.ParsePathInt64OrError(w, r, "iid")
	if !ok {
		return
	}

	err := h.store.DeleteItem(r.Context(), todo.ID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "failed to delete item")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "deleted"})
}
