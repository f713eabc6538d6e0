package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/listling/listling/pkg/observability"
)

// SQL implements Store on top of database/sql via sqlx, for both postgres
// (lib/pq) and sqlite3 (mattn/go-sqlite3). Queries are built with squirrel
// so the visibility filters compose; the placeholder format follows the
// driver.
type SQL struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	driver  string
	now     func() time.Time
	metrics *observability.Metrics
}

var _ Store = (*SQL)(nil)

// SQLOption configures a SQL store
type SQLOption func(*SQL)

// WithMetrics records store operation metrics
func WithMetrics(m *observability.Metrics) SQLOption {
	return func(s *SQL) { s.metrics = m }
}

// WithClock overrides the wall clock, for tests
func WithClock(now func() time.Time) SQLOption {
	return func(s *SQL) { s.now = now }
}

// Open connects to the database described by cfg and configures the pool
func Open(cfg Config, opts ...SQLOption) (*SQL, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQL{
		db:      db,
		driver:  cfg.Driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(cfg.Driver)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	if driver == "postgres" {
		return sq.Dollar
	}
	return sq.Question
}

// DB exposes the underlying pool for health checks and stats
func (s *SQL) DB() *sql.DB {
	return s.db.DB
}

// Close closes the connection pool
func (s *SQL) Close() error {
	return s.db.Close()
}

// Migrate applies the schema for the configured driver
func (s *SQL) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// mapErr translates driver errors into the store's sentinel errors
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", ErrConflict, sqliteErr.Error())
	}
	return err
}

func (s *SQL) observe(op string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(op, *err, time.Since(start))
	}
}

// insert executes an insert and returns the generated id. Postgres needs
// RETURNING; sqlite uses LastInsertId.
func (s *SQL) insert(ctx context.Context, ib sq.InsertBuilder) (int64, error) {
	if s.driver == "postgres" {
		query, args, err := ib.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, err
		}
		var id int64
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := ib.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// --- users ---

func (s *SQL) CreateUser(ctx context.Context, username, passwordHash string) (u *User, err error) {
	defer s.observe("create_user", time.Now(), &err)

	now := s.now()
	id, err := s.insert(ctx, s.builder.Insert("users").
		Columns("username", "password", "created").
		Values(username, passwordHash, now))
	if err != nil {
		return nil, mapErr(err)
	}
	return &User{ID: id, Username: username, Password: passwordHash, Created: now}, nil
}

func (s *SQL) GetUserByID(ctx context.Context, id int64) (u *User, err error) {
	defer s.observe("get_user", time.Now(), &err)

	query, args, err := s.builder.
		Select("id", "username", "password", "created", "updated").
		From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	u = &User{}
	if err := s.db.GetContext(ctx, u, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *SQL) GetUserByUsername(ctx context.Context, username string) (u *User, err error) {
	defer s.observe("get_user", time.Now(), &err)

	query, args, err := s.builder.
		Select("id", "username", "password", "created", "updated").
		From("users").Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return nil, err
	}
	u = &User{}
	if err := s.db.GetContext(ctx, u, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *SQL) UpdateUser(ctx context.Context, id int64, username, passwordHash string) (err error) {
	defer s.observe("update_user", time.Now(), &err)

	query, args, err := s.builder.Update("users").
		Set("username", username).
		Set("password", passwordHash).
		Set("updated", s.now()).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *SQL) DeleteUser(ctx context.Context, id int64) (err error) {
	defer s.observe("delete_user", time.Now(), &err)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []sq.Sqlizer{
		s.builder.Delete("items").
			Where(sq.Expr("todo_id IN (SELECT id FROM todos WHERE user_id = ?)", id)),
		s.builder.Delete("reviews").
			Where(sq.Expr("todo_id IN (SELECT id FROM todos WHERE user_id = ?)", id)),
		s.builder.Delete("reviews").Where(sq.Eq{"user_id": id}),
		s.builder.Delete("todos").Where(sq.Eq{"user_id": id}),
		s.builder.Delete("users").Where(sq.Eq{"id": id}),
	}
	for _, step := range steps {
		query, args, err := step.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapErr(err)
		}
	}
	return tx.Commit()
}

// --- todos ---

// todoQuery selects todos with avg_stars and votes derived from reviews
func (s *SQL) todoQuery() sq.SelectBuilder {
	return s.builder.Select(
		"t.id", "t.user_id", "t.title", "t.public", "t.created", "t.updated",
		"COALESCE(AVG(r.stars), 0) AS avg_stars",
		"COUNT(r.id) AS votes",
	).From("todos t").
		LeftJoin("reviews r ON r.todo_id = t.id").
		GroupBy("t.id", "t.user_id", "t.title", "t.public", "t.created", "t.updated")
}

// todoVisibility is the public-or-owned filter; nil viewer sees public only
func todoVisibility(viewerID *int64) sq.Sqlizer {
	if viewerID == nil {
		return sq.Eq{"t.public": true}
	}
	return sq.Or{sq.Eq{"t.public": true}, sq.Eq{"t.user_id": *viewerID}}
}

func (s *SQL) getTodo(ctx context.Context, qb sq.SelectBuilder) (*Todo, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	t := &Todo{}
	if err := s.db.GetContext(ctx, t, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *SQL) listTodos(ctx context.Context, qb sq.SelectBuilder, offset, limit int) ([]Todo, error) {
	query, args, err := qb.Offset(uint64(offset)).Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	todos := []Todo{}
	if err := s.db.SelectContext(ctx, &todos, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return todos, nil
}

func (s *SQL) CreateTodo(ctx context.Context, userID int64, title string, public bool) (t *Todo, err error) {
	defer s.observe("create_todo", time.Now(), &err)

	now := s.now()
	id, err := s.insert(ctx, s.builder.Insert("todos").
		Columns("user_id", "title", "public", "created").
		Values(userID, title, public, now))
	if err != nil {
		return nil, mapErr(err)
	}
	return &Todo{ID: id, UserID: userID, Title: title, Public: public, Created: now}, nil
}

func (s *SQL) GetTodo(ctx context.Context, id int64) (t *Todo, err error) {
	defer s.observe("get_todo", time.Now(), &err)
	return s.getTodo(ctx, s.todoQuery().Where(sq.Eq{"t.id": id}))
}

func (s *SQL) GetTodoVisible(ctx context.Context, id int64, viewerID *int64) (t *Todo, err error) {
	defer s.observe("get_todo", time.Now(), &err)
	return s.getTodo(ctx, s.todoQuery().
		Where(sq.Eq{"t.id": id}).
		Where(todoVisibility(viewerID)))
}

func (s *SQL) GetTodoOwned(ctx context.Context, id, ownerID int64) (t *Todo, err error) {
	defer s.observe("get_todo", time.Now(), &err)
	return s.getTodo(ctx, s.todoQuery().
		Where(sq.Eq{"t.id": id, "t.user_id": ownerID}))
}

func (s *SQL) ListTodosVisible(ctx context.Context, viewerID *int64, offset, limit int) (ts []Todo, err error) {
	defer s.observe("list_todos", time.Now(), &err)
	return s.listTodos(ctx, s.todoQuery().
		Where(todoVisibility(viewerID)).
		OrderBy("t.id"), offset, limit)
}

func (s *SQL) ListBestTodos(ctx context.Context, offset, limit int) (ts []Todo, err error) {
	defer s.observe("list_best_todos", time.Now(), &err)
	return s.listTodos(ctx, s.todoQuery().
		Where(sq.Eq{"t.public": true}).
		OrderBy("avg_stars DESC", "t.id"), offset, limit)
}

func (s *SQL) UpdateTodo(ctx context.Context, id int64, title string, public bool) (err error) {
	defer s.observe("update_todo", time.Now(), &err)

	query, args, err := s.builder.Update("todos").
		Set("title", title).
		Set("public", public).
		Set("updated", s.now()).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *SQL) DeleteTodo(ctx context.Context, id int64) (err error) {
	defer s.observe("delete_todo", time.Now(), &err)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []sq.Sqlizer{
		s.builder.Delete("items").Where(sq.Eq{"todo_id": id}),
		s.builder.Delete("reviews").Where(sq.Eq{"todo_id": id}),
		s.builder.Delete("todos").Where(sq.Eq{"id": id}),
	}
	for _, step := range steps {
		query, args, err := step.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapErr(err)
		}
	}
	return tx.Commit()
}

func (s *SQL) CountItems(ctx context.Context, todoID int64) (n int, err error) {
	defer s.observe("count_items", time.Now(), &err)

	query, args, err := s.builder.Select("COUNT(*)").
		From("items").Where(sq.Eq{"todo_id": todoID}).ToSql()
	if err != nil {
		return 0, err
	}
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// --- items ---

func (s *SQL) CreateItem(ctx context.Context, todoID int64, content string, completed bool) (i *Item, err error) {
	defer s.observe("create_item", time.Now(), &err)

	now := s.now()
	id, err := s.insert(ctx, s.builder.Insert("items").
		Columns("todo_id", "content", "completed", "created").
		Values(todoID, content, completed, now))
	if err != nil {
		return nil, mapErr(err)
	}
	return &Item{ID: id, TodoID: todoID, Content: content, Completed: completed, Created: now}, nil
}

func (s *SQL) GetItem(ctx context.Context, todoID, itemID int64) (i *Item, err error) {
	defer s.observe("get_item", time.Now(), &err)

	query, args, err := s.builder.
		Select("id", "todo_id", "content", "completed", "created", "updated").
		From("items").Where(sq.Eq{"id": itemID, "todo_id": todoID}).ToSql()
	if err != nil {
		return nil, err
	}
	i = &Item{}
	if err := s.db.GetContext(ctx, i, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return i, nil
}

func (s *SQL) ListItems(ctx context.Context, todoID int64, offset, limit int) (items []Item, err error) {
	defer s.observe("list_items", time.Now(), &err)

	query, args, err := s.builder.
		Select("id", "todo_id", "content", "completed", "created", "updated").
		From("items").Where(sq.Eq{"todo_id": todoID}).
		OrderBy("id").
		Offset(uint64(offset)).Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	items = []Item{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return items, nil
}

func (s *SQL) UpdateItem(ctx context.Context, todoID, itemID int64, content string, completed bool) (err error) {
	defer s.observe("update_item", time.Now(), &err)

	query, args, err := s.builder.Update("items").
		Set("content", content).
		Set("completed", completed).
		Set("updated", s.now()).
		Where(sq.Eq{"id": itemID, "todo_id": todoID}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *SQL) DeleteItem(ctx context.Context, todoID, itemID int64) (err error) {
	defer s.observe("delete_item", time.Now(), &err)

	query, args, err := s.builder.Delete("items").
		Where(sq.Eq{"id": itemID, "todo_id": todoID}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

// --- reviews ---

// reviewQuery joins the parent todo so visibility filters can reference it
func (s *SQL) reviewQuery() sq.SelectBuilder {
	return s.builder.Select(
		"r.id", "r.user_id", "r.todo_id", "r.title", "r.content", "r.stars",
		"r.created", "r.updated",
	).From("reviews r").
		Join("todos t ON t.id = r.todo_id")
}

func (s *SQL) getReview(ctx context.Context, qb sq.SelectBuilder) (*Review, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	r := &Review{}
	if err := s.db.GetContext(ctx, r, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return r, nil
}

func (s *SQL) CreateReview(ctx context.Context, userID, todoID int64, title, content string, stars int) (r *Review, err error) {
	defer s.observe("create_review", time.Now(), &err)

	now := s.now()
	id, err := s.insert(ctx, s.builder.Insert("reviews").
		Columns("user_id", "todo_id", "title", "content", "stars", "created").
		Values(userID, todoID, title, content, stars, now))
	if err != nil {
		return nil, mapErr(err)
	}
	return &Review{
		ID: id, UserID: userID, TodoID: todoID,
		Title: title, Content: content, Stars: stars, Created: now,
	}, nil
}

func (s *SQL) GetReviewVisible(ctx context.Context, id int64, viewerID *int64) (r *Review, err error) {
	defer s.observe("get_review", time.Now(), &err)
	return s.getReview(ctx, s.reviewQuery().
		Where(sq.Eq{"r.id": id}).
		Where(todoVisibility(viewerID)))
}

func (s *SQL) GetReviewAuthored(ctx context.Context, id, userID int64) (r *Review, err error) {
	defer s.observe("get_review", time.Now(), &err)
	return s.getReview(ctx, s.reviewQuery().
		Where(sq.Eq{"r.id": id, "r.user_id": userID}))
}

func (s *SQL) GetReviewByUserTodo(ctx context.Context, userID, todoID int64) (r *Review, err error) {
	defer s.observe("get_review", time.Now(), &err)
	return s.getReview(ctx, s.reviewQuery().
		Where(sq.Eq{"r.user_id": userID, "r.todo_id": todoID}))
}

func (s *SQL) ListReviewsVisible(ctx context.Context, viewerID *int64, offset, limit int) (rs []Review, err error) {
	defer s.observe("list_reviews", time.Now(), &err)

	query, args, err := s.reviewQuery().
		Where(todoVisibility(viewerID)).
		OrderBy("r.id").
		Offset(uint64(offset)).Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	rs = []Review{}
	if err := s.db.SelectContext(ctx, &rs, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return rs, nil
}

func (s *SQL) ListTodoReviews(ctx context.Context, todoID int64, offset, limit int) (rs []Review, err error) {
	defer s.observe("list_reviews", time.Now(), &err)

	query, args, err := s.reviewQuery().
		Where(sq.Eq{"r.todo_id": todoID}).
		OrderBy("r.id").
		Offset(uint64(offset)).Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	rs = []Review{}
	if err := s.db.SelectContext(ctx, &rs, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return rs, nil
}

func (s *SQL) UpdateReview(ctx context.Context, id int64, title, content string, stars int) (err error) {
	defer s.observe("update_review", time.Now(), &err)

	query, args, err := s.builder.Update("reviews").
		Set("title", title).
		Set("content", content).
		Set("stars", stars).
		Set("updated", s.now()).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *SQL) DeleteReview(ctx context.Context, id int64) (err error) {
	defer s.observe("delete_review", time.Now(), &err)

	query, args, err := s.builder.Delete("reviews").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

// checkAffected maps zero-row updates/deletes to ErrNotFound
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
