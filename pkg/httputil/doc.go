// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, the error
// envelope every endpoint returns, parameter parsing, and common HTTP
// middleware.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//
// Error envelopes ({"message": ...}):
//
//	httputil.WriteUnauthorized(w, "could not authenticate")
//	httputil.WriteNotFound(w, "not found")
//	httputil.WriteValidationErrors(w, map[string]string{"title": "too long"})
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CreateTodoRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	limit, err := httputil.ParseQueryInt(r, "limit", 100)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, pagination and rate limit middleware
package httputil
