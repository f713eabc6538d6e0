// Package api assembles the HTTP surface: routing, the per-route guard
// composition, and the handlers for auth, users, todos, items and reviews.
//
// Handlers run inside guards from pkg/middleware; by the time a handler
// parses its JSON body the caller's identity is already resolved. Errors
// follow one taxonomy throughout: validation failures answer 400 with a
// per-field map, authentication failures 401, permitted-but-forbidden
// actions 403, uniqueness collisions 409, and anything the caller is not
// allowed to see answers 404 rather than admitting it exists.
package api
