// Package middleware provides HTTP middleware for authentication,
// pagination and rate limiting.
//
// # Middleware Ordering
//
// Ordering matters for the guards. The rate limiter keys by user when one
// is authenticated, so it must run inside the auth guard to see it:
//
//	handler = guard.RequireAuth(rateLimit.Handler(handler))
//
// Pagination is independent and can wrap either side. The request ID and
// logging middleware from pkg/httputil run outermost so every response,
// including 401s and 429s produced here, is logged and tagged.
//
// # Authentication
//
// Guard exposes three wrappings of the same token check:
//
//	guard.RequireAuth(h)    // access token required
//	guard.OptionalAuth(h)   // anonymous allowed, bad tokens still rejected
//	guard.RequireRefresh(h) // refresh token required
//
// Every failure, whatever the cause, answers 401 with the same message so
// the response does not leak whether a user or token exists.
package middleware
