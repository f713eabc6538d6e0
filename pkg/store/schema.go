package store

// Schema DDL per driver. Statements are idempotent so Migrate can run on
// every startup.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id       BIGSERIAL PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		password VARCHAR(100) NOT NULL,
		created  TIMESTAMPTZ NOT NULL,
		updated  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id      BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		title   VARCHAR(50) NOT NULL,
		public  BOOLEAN NOT NULL DEFAULT FALSE,
		created TIMESTAMPTZ NOT NULL,
		updated TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id        BIGSERIAL PRIMARY KEY,
		todo_id   BIGINT NOT NULL REFERENCES todos(id),
		content   VARCHAR(50) NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created   TIMESTAMPTZ NOT NULL,
		updated   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id      BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		todo_id BIGINT NOT NULL REFERENCES todos(id),
		title   VARCHAR(50) NOT NULL,
		content VARCHAR(5000) NOT NULL,
		stars   INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
		created TIMESTAMPTZ NOT NULL,
		updated TIMESTAMPTZ,
		UNIQUE (user_id, todo_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_todo ON items (todo_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_todo ON reviews (todo_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created  TIMESTAMP NOT NULL,
		updated  TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		title   TEXT NOT NULL,
		public  BOOLEAN NOT NULL DEFAULT 0,
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		todo_id   INTEGER NOT NULL REFERENCES todos(id),
		content   TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT 0,
		created   TIMESTAMP NOT NULL,
		updated   TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		todo_id INTEGER NOT NULL REFERENCES todos(id),
		title   TEXT NOT NULL,
		content TEXT NOT NULL,
		stars   INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP,
		UNIQUE (user_id, todo_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_todo ON items (todo_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_todo ON reviews (todo_id)`,
}
