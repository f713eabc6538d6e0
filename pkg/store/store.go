package store

import (
	"context"
	"database/sql"
	"time"
)

// Store is the persistence contract consumed by the API layer. All list
// operations take explicit offset/limit; all lookups scoped by viewer or
// owner return ErrNotFound when the record is absent OR not visible, so
// callers cannot distinguish the two.
type Store interface {
	UserStore
	TodoStore
	ItemStore
	ReviewStore

	// DB exposes the underlying pool for health checks and stats
	DB() *sql.DB
	// Migrate applies the schema
	Migrate(ctx context.Context) error
	Close() error
}

// UserStore persists accounts
type UserStore interface {
	// CreateUser inserts a new user; ErrConflict if the username is taken
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// UpdateUser replaces username and password hash; ErrConflict if the new
	// username is taken by another user
	UpdateUser(ctx context.Context, id int64, username, passwordHash string) error
	// DeleteUser removes the user and cascades to their todos (with items
	// and reviews) and to reviews they authored, in one transaction
	DeleteUser(ctx context.Context, id int64) error
}

// TodoStore persists checklists
type TodoStore interface {
	CreateTodo(ctx context.Context, userID int64, title string, public bool) (*Todo, error)
	// GetTodo fetches by id with no visibility filter
	GetTodo(ctx context.Context, id int64) (*Todo, error)
	// GetTodoVisible fetches a todo that is public or owned by the viewer;
	// a nil viewer sees only public todos
	GetTodoVisible(ctx context.Context, id int64, viewerID *int64) (*Todo, error)
	// GetTodoOwned fetches a todo only if owned by ownerID
	GetTodoOwned(ctx context.Context, id, ownerID int64) (*Todo, error)
	// ListTodosVisible lists todos that are public or owned by the viewer
	ListTodosVisible(ctx context.Context, viewerID *int64, offset, limit int) ([]Todo, error)
	// ListBestTodos lists public todos ordered by average stars descending
	ListBestTodos(ctx context.Context, offset, limit int) ([]Todo, error)
	UpdateTodo(ctx context.Context, id int64, title string, public bool) error
	// DeleteTodo removes the todo and cascades to its items and reviews
	DeleteTodo(ctx context.Context, id int64) error
	// CountItems returns the number of items in a todo
	CountItems(ctx context.Context, todoID int64) (int, error)
}

// ItemStore persists checklist entries
type ItemStore interface {
	CreateItem(ctx context.Context, todoID int64, content string, completed bool) (*Item, error)
	GetItem(ctx context.Context, todoID, itemID int64) (*Item, error)
	ListItems(ctx context.Context, todoID int64, offset, limit int) ([]Item, error)
	UpdateItem(ctx context.Context, todoID, itemID int64, content string, completed bool) error
	DeleteItem(ctx context.Context, todoID, itemID int64) error
}

// ReviewStore persists reviews
type ReviewStore interface {
	// CreateReview inserts a review; ErrConflict if the user already
	// reviewed the todo
	CreateReview(ctx context.Context, userID, todoID int64, title, content string, stars int) (*Review, error)
	// GetReviewVisible fetches a review whose parent todo is public or
	// owned by the viewer
	GetReviewVisible(ctx context.Context, id int64, viewerID *int64) (*Review, error)
	// GetReviewAuthored fetches a review only if authored by userID
	GetReviewAuthored(ctx context.Context, id, userID int64) (*Review, error)
	// GetReviewByUserTodo fetches the review a user left on a todo
	GetReviewByUserTodo(ctx context.Context, userID, todoID int64) (*Review, error)
	// ListReviewsVisible lists reviews whose parent todo is public or owned
	// by the viewer
	ListReviewsVisible(ctx context.Context, viewerID *int64, offset, limit int) ([]Review, error)
	ListTodoReviews(ctx context.Context, todoID int64, offset, limit int) ([]Review, error)
	UpdateReview(ctx context.Context, id int64, title, content string, stars int) error
	DeleteReview(ctx context.Context, id int64) error
}

// Config holds database configuration
type Config struct {
	// Driver is "postgres" or "sqlite3"
	Driver string
	// DSN is the driver-specific connection string
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnTimeout     time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite3",
		DSN:             "file:listling.db?_fk=1",
		MaxOpenConns:    20,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnTimeout:     10 * time.Second,
	}
}
