package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist or is not visible
	// to the caller
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	// (duplicate username, duplicate review)
	ErrConflict = errors.New("conflict")
)

// User is an account. The password field holds a bcrypt hash and is never
// serialized.
type User struct {
	ID       int64      `db:"id" json:"id"`
	Username string     `db:"username" json:"username"`
	Password string     `db:"password" json:"-"`
	Created  time.Time  `db:"created" json:"created"`
	Updated  *time.Time `db:"updated" json:"updated"`
}

// Todo is a checklist owned by a user. AvgStars and Votes are derived from
// the todo's reviews at query time.
type Todo struct {
	ID       int64      `db:"id" json:"id"`
	UserID   int64      `db:"user_id" json:"user_id"`
	Title    string     `db:"title" json:"title"`
	Public   bool       `db:"public" json:"public"`
	Created  time.Time  `db:"created" json:"created"`
	Updated  *time.Time `db:"updated" json:"updated"`
	AvgStars float64    `db:"avg_stars" json:"avg_rating"`
	Votes    int        `db:"votes" json:"votes"`
}

// Item is a single checklist entry within a todo
type Item struct {
	ID        int64      `db:"id" json:"id"`
	TodoID    int64      `db:"todo_id" json:"todo_id"`
	Content   string     `db:"content" json:"content"`
	Completed bool       `db:"completed" json:"completed"`
	Created   time.Time  `db:"created" json:"created"`
	Updated   *time.Time `db:"updated" json:"updated"`
}

// Review is a star rating left by a user on another user's public todo
type Review struct {
	ID      int64      `db:"id" json:"id"`
	UserID  int64      `db:"user_id" json:"user_id"`
	TodoID  int64      `db:"todo_id" json:"todo_id"`
	Title   string     `db:"title" json:"title"`
	Content string     `db:"content" json:"content"`
	Stars   int        `db:"stars" json:"stars"`
	Created time.Time  `db:"created" json:"created"`
	Updated *time.Time `db:"updated" json:"updated"`
}

// OwnedBy reports whether the todo belongs to the given user
func (t *Todo) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

// VisibleTo reports whether the todo is discoverable by the given caller.
// A nil viewer is an anonymous caller and sees only public todos.
func (t *Todo) VisibleTo(viewerID *int64) bool {
	if t.Public {
		return true
	}
	return viewerID != nil && *viewerID == t.UserID
}

// AuthoredBy reports whether the review was written by the given user
func (r *Review) AuthoredBy(userID int64) bool {
	return r.UserID == userID
}

// MaxItemsPerTodo is the cap on checklist entries per todo
const MaxItemsPerTodo = 100
