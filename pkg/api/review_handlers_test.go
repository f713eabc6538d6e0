package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listling/listling/pkg/store"
)

func (a *testAPI) createReview(token string, todoID int64, stars int) store.Review {
	a.t.Helper()

	w := a.do(http.MethodPost, fmt.Sprintf("/todos/%d/reviews", todoID), token,
		reviewBody("A review", "Some thoughts", stars))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var review store.Review
	a.decode(w, &review)
	return review
}

func TestCreateReview(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)

	review := api.createReview(bobToken, todo.ID, 4)
	assert.Equal(t, todo.ID, review.TodoID)
	assert.Equal(t, 4, review.Stars)

	// the rating shows up on the todo
	var updated store.Todo
	w := api.do(http.MethodGet, fmt.Sprintf("/todos/%d", todo.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	api.decode(w, &updated)
	assert.InDelta(t, 4.0, updated.AvgStars, 0.001)
	assert.Equal(t, 1, updated.Votes)
}

func TestCreateReviewValidation(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)

	w := api.do(http.MethodPost, fmt.Sprintf("/todos/%d/reviews", todo.ID), bobToken,
		reviewBody("r", "c", 6))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation error", api.message(w))
}

func TestReviewPrivateTodo(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Diary", false)

	// a private todo collects no reviews, not even from its owner
	for _, token := range []string{bobToken, aliceToken} {
		w := api.do(http.MethodPost, fmt.Sprintf("/todos/%d/reviews", todo.ID), token,
			reviewBody("r", "c", 3))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestReviewOwnTodo(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice", testPassword)
	todo := api.createTodo(token, "Groceries", true)

	w := api.do(http.MethodPost, fmt.Sprintf("/todos/%d/reviews", todo.ID), token,
		reviewBody("Mine", "Flawless", 5))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "can not review your own", api.message(w))
}

func TestReviewTwice(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)
	api.createReview(bobToken, todo.ID, 5)

	w := api.do(http.MethodPost, fmt.Sprintf("/todos/%d/reviews", todo.ID), bobToken,
		reviewBody("Again", "Still good", 4))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already reviewed", api.message(w))
}

func TestListReviews(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)
	api.createReview(bobToken, todo.ID, 5)

	var reviews []store.Review

	w := api.do(http.MethodGet, fmt.Sprintf("/todos/%d/reviews", todo.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	api.decode(w, &reviews)
	assert.Len(t, reviews, 1)

	w = api.do(http.MethodGet, "/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	api.decode(w, &reviews)
	assert.Len(t, reviews, 1)
}

func TestReviewFollowsTodoVisibility(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)
	review := api.createReview(bobToken, todo.ID, 5)

	// owner takes the todo private; its reviews vanish for everyone else
	title, public := "Groceries", false
	w := api.do(http.MethodPatch, fmt.Sprintf("/todos/%d", todo.ID), aliceToken,
		TodoRequest{Title: &title, Public: &public})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, fmt.Sprintf("/reviews/%d", review.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, fmt.Sprintf("/reviews/%d", review.ID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateReview(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)
	review := api.createReview(bobToken, todo.ID, 2)

	body := reviewBody("Revised", "It grew on me", 4)

	// only the author may edit
	w := api.do(http.MethodPatch, fmt.Sprintf("/reviews/%d", review.ID), aliceToken, body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPatch, fmt.Sprintf("/reviews/%d", review.ID), bobToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated store.Review
	api.decode(w, &updated)
	assert.Equal(t, 4, updated.Stars)
	assert.Equal(t, "Revised", updated.Title)
	assert.NotNil(t, updated.Updated)
}

func TestDeleteReview(t *testing.T) {
	api := newTestAPI(t)
	aliceToken := api.register("alice", testPassword)
	bobToken := api.register("bob", otherTestPassword)
	todo := api.createTodo(aliceToken, "Groceries", true)
	review := api.createReview(bobToken, todo.ID, 5)

	w := api.do(http.MethodDelete, fmt.Sprintf("/reviews/%d", review.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodDelete, fmt.Sprintf("/reviews/%d", review.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", api.message(w))

	w = api.do(http.MethodGet, fmt.Sprintf("/reviews/%d", review.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
