// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/listling/listling/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.UserKey, user)
//   user := ctx.Value(contextkeys.UserKey).(*store.User)
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated *store.User
	// Set by: middleware.Guard (pkg/middleware/auth.go)
	// Absent for anonymous requests passing through OptionalAuth
	UserKey Key = "current_user"

	// PaginationKey contains middleware.Pagination
	// Set by: middleware.RequirePagination (pkg/middleware/pagination.go)
	PaginationKey Key = "pagination"
)
