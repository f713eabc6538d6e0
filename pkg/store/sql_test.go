package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQL {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Driver = "sqlite3"
	cfg.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1

	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func mustUser(t *testing.T, s *SQL, username string) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), username, "hash-"+username)
	require.NoError(t, err)
	return u
}

func TestCreateUser_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "h1")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "alice", "h2")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustUser(t, s, "alice")

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = s.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "alice")
	require.NoError(t, s.UpdateUser(ctx, u.ID, "alice2", "newhash"))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, "newhash", got.Password)
	assert.NotNil(t, got.Updated)

	assert.ErrorIs(t, s.UpdateUser(ctx, 9999, "x", "y"), ErrNotFound)
}

func TestDeleteUser_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	todo, err := s.CreateTodo(ctx, alice.ID, "chores", true)
	require.NoError(t, err)
	item, err := s.CreateItem(ctx, todo.ID, "laundry", false)
	require.NoError(t, err)
	bobReview, err := s.CreateReview(ctx, bob.ID, todo.ID, "nice", "useful list", 4)
	require.NoError(t, err)

	bobTodo, err := s.CreateTodo(ctx, bob.ID, "errands", true)
	require.NoError(t, err)
	aliceReview, err := s.CreateReview(ctx, alice.ID, bobTodo.ID, "ok", "fine", 3)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))

	_, err = s.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTodo(ctx, todo.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetItem(ctx, todo.ID, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	// bob's review of alice's todo goes with the todo
	_, err = s.GetReviewAuthored(ctx, bobReview.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	// alice's review of bob's todo goes with alice
	_, err = s.GetReviewAuthored(ctx, aliceReview.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// bob's own todo survives
	_, err = s.GetTodo(ctx, bobTodo.ID)
	assert.NoError(t, err)
}

func TestTodoVisibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	private, err := s.CreateTodo(ctx, alice.ID, "secret", false)
	require.NoError(t, err)
	public, err := s.CreateTodo(ctx, alice.ID, "shared", true)
	require.NoError(t, err)

	// anonymous sees only public
	_, err = s.GetTodoVisible(ctx, private.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTodoVisible(ctx, public.ID, nil)
	assert.NoError(t, err)

	// owner sees both
	_, err = s.GetTodoVisible(ctx, private.ID, &alice.ID)
	assert.NoError(t, err)

	// another user sees only public
	_, err = s.GetTodoVisible(ctx, private.ID, &bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	anon, err := s.ListTodosVisible(ctx, nil, 0, 100)
	require.NoError(t, err)
	assert.Len(t, anon, 1)

	mine, err := s.ListTodosVisible(ctx, &alice.ID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGetTodoOwned(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	todo, err := s.CreateTodo(ctx, alice.ID, "chores", true)
	require.NoError(t, err)

	_, err = s.GetTodoOwned(ctx, todo.ID, alice.ID)
	assert.NoError(t, err)
	_, err = s.GetTodoOwned(ctx, todo.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBestTodos_RankedByStars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	carol := mustUser(t, s, "carol")

	low, err := s.CreateTodo(ctx, alice.ID, "meh", true)
	require.NoError(t, err)
	high, err := s.CreateTodo(ctx, alice.ID, "great", true)
	require.NoError(t, err)
	hidden, err := s.CreateTodo(ctx, alice.ID, "private", false)
	require.NoError(t, err)

	_, err = s.CreateReview(ctx, bob.ID, low.ID, "eh", "not much here", 2)
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, bob.ID, high.ID, "wow", "very thorough", 5)
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, carol.ID, high.ID, "good", "solid", 4)
	require.NoError(t, err)

	best, err := s.ListBestTodos(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, high.ID, best[0].ID)
	assert.InDelta(t, 4.5, best[0].AvgStars, 0.001)
	assert.Equal(t, 2, best[0].Votes)
	assert.Equal(t, low.ID, best[1].ID)

	for _, todo := range best {
		assert.NotEqual(t, hidden.ID, todo.ID)
	}
}

func TestItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	todo, err := s.CreateTodo(ctx, alice.ID, "chores", false)
	require.NoError(t, err)

	first, err := s.CreateItem(ctx, todo.ID, "laundry", false)
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, todo.ID, "dishes", false)
	require.NoError(t, err)

	n, err := s.CountItems(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.ListItems(ctx, todo.ID, 0, 100)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "laundry", items[0].Content)

	page, err := s.ListItems(ctx, todo.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "dishes", page[0].Content)

	require.NoError(t, s.UpdateItem(ctx, todo.ID, first.ID, "laundry", true))
	got, err := s.GetItem(ctx, todo.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	// item ids are scoped to their todo
	other, err := s.CreateTodo(ctx, alice.ID, "other", false)
	require.NoError(t, err)
	_, err = s.GetItem(ctx, other.ID, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteItem(ctx, todo.ID, first.ID))
	assert.ErrorIs(t, s.DeleteItem(ctx, todo.ID, first.ID), ErrNotFound)
}

func TestReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	todo, err := s.CreateTodo(ctx, alice.ID, "chores", true)
	require.NoError(t, err)

	review, err := s.CreateReview(ctx, bob.ID, todo.ID, "nice", "useful", 4)
	require.NoError(t, err)

	// one review per user per todo
	_, err = s.CreateReview(ctx, bob.ID, todo.ID, "again", "dupe", 1)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetReviewByUserTodo(ctx, bob.ID, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, review.ID, got.ID)

	_, err = s.GetReviewAuthored(ctx, review.ID, bob.ID)
	assert.NoError(t, err)
	_, err = s.GetReviewAuthored(ctx, review.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateReview(ctx, review.ID, "nice", "even better", 5))
	got, err = s.GetReviewAuthored(ctx, review.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stars)

	require.NoError(t, s.DeleteReview(ctx, review.ID))
	assert.ErrorIs(t, s.DeleteReview(ctx, review.ID), ErrNotFound)
}

func TestReviewVisibility_FollowsParentTodo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	carol := mustUser(t, s, "carol")

	todo, err := s.CreateTodo(ctx, alice.ID, "chores", true)
	require.NoError(t, err)
	review, err := s.CreateReview(ctx, bob.ID, todo.ID, "nice", "useful", 4)
	require.NoError(t, err)

	_, err = s.GetReviewVisible(ctx, review.ID, nil)
	assert.NoError(t, err)

	// hiding the todo hides its reviews from everyone but the todo's owner
	require.NoError(t, s.UpdateTodo(ctx, todo.ID, "chores", false))

	_, err = s.GetReviewVisible(ctx, review.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetReviewVisible(ctx, review.ID, &carol.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetReviewVisible(ctx, review.ID, &alice.ID)
	assert.NoError(t, err)

	visible, err := s.ListReviewsVisible(ctx, &carol.ID, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestDeleteTodo_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	todo, err := s.CreateTodo(ctx, alice.ID, "chores", true)
	require.NoError(t, err)
	item, err := s.CreateItem(ctx, todo.ID, "laundry", false)
	require.NoError(t, err)
	review, err := s.CreateReview(ctx, bob.ID, todo.ID, "nice", "useful", 4)
	require.NoError(t, err)

	require.NoError(t, s.DeleteTodo(ctx, todo.ID))

	_, err = s.GetTodo(ctx, todo.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetItem(ctx, todo.ID, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetReviewAuthored(ctx, review.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdated_SetByClock(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	u := mustUser(t, s, "alice")
	require.NoError(t, s.UpdateUser(ctx, u.ID, "alice", "h"))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Updated)
	assert.True(t, got.Updated.Equal(fixed))
}
