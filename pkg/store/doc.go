// Package store provides persistence for users, todo lists, items and
// reviews. The SQL implementation runs on postgres in production and on
// sqlite3 in tests; both share one schema and one query builder, with
// visibility (public-or-owned) expressed as a composable filter so every
// read path enforces it in the database rather than in handlers.
package store
