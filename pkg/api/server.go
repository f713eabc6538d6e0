package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/observability"
	"github.com/listling/listling/pkg/store"
)

// RateLimits holds the per-route rate limit wrappings. Nil fields disable
// limiting for that slot. The caller decides whether these are backed by
// the in-memory or the Redis limiter.
type RateLimits struct {
	Default  func(http.Handler) http.Handler
	Register func(http.Handler) http.Handler
	Login    func(http.Handler) http.Handler
}

// Server represents the API server
type Server struct {
	store   store.Store
	tokens  *auth.TokenService
	guard   *middleware.Guard
	logger  *observability.Logger
	metrics *observability.Metrics
	limits  RateLimits
	router  *mux.Router

	authHandlers   *AuthHandlers
	userHandlers   *UserHandlers
	todoHandlers   *TodoHandlers
	reviewHandlers *ReviewHandlers
}

// Option configures the server
type Option func(*Server)

// WithMetrics enables metric recording in handlers
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRateLimits installs per-route rate limiting
func WithRateLimits(limits RateLimits) Option {
	return func(s *Server) { s.limits = limits }
}

// NewServer creates a new API server
func NewServer(st store.Store, tokens *auth.TokenService, logger *observability.Logger, opts ...Option) *Server {
	s := &Server{
		store:  st,
		tokens: tokens,
		logger: logger,
		router: mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var guardOpts []middleware.GuardOption
	if s.metrics != nil {
		guardOpts = append(guardOpts, middleware.WithGuardMetrics(s.metrics))
	}
	s.guard = middleware.NewGuard(tokens, st, guardOpts...)

	s.authHandlers = NewAuthHandlers(st, tokens, s.metrics)
	s.userHandlers = NewUserHandlers(st)
	s.todoHandlers = NewTodoHandlers(st)
	s.reviewHandlers = NewReviewHandlers(st)

	s.setupRoutes()
	return s
}

// Router returns the configured router; outer middleware (request id,
// logging, recovery, content type, tracing) is applied by the caller
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.limits.Default != nil {
		s.router.Use(s.limits.Default)
	}
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	authed := s.guard.RequireAuth
	optional := s.guard.OptionalAuth
	refresh := s.guard.RequireRefresh
	paginated := middleware.RequirePagination

	// Auth routes
	s.handle("/auth/register", s.authHandlers.register, "POST", s.limits.Register)
	s.handle("/auth/token", s.authHandlers.login, "POST", s.limits.Login)
	s.handle("/auth/refresh", s.authHandlers.refresh, "POST", refresh)

	// User routes (self only)
	s.handle("/users/{username}", s.userHandlers.getUser, "GET", authed)
	s.handle("/users/{username}", s.userHandlers.updateUser, "PATCH", authed)
	s.handle("/users/{username}", s.userHandlers.deleteUser, "DELETE", authed)

	// Todo routes; /todos/best before /todos/{id} so the literal wins
	s.handle("/todos/best", s.todoHandlers.listBest, "GET", paginated)
	s.handle("/todos", s.todoHandlers.list, "GET", optional, paginated)
	s.handle("/todos", s.todoHandlers.create, "POST", authed)
	s.handle("/todos/{id:[0-9]+}", s.todoHandlers.get, "GET", optional)
	s.handle("/todos/{id:[0-9]+}", s.todoHandlers.update, "PATCH", authed)
	s.handle("/todos/{id:[0-9]+}", s.todoHandlers.delete, "DELETE", authed)

	// Item routes
	s.handle("/todos/{id:[0-9]+}/items", s.todoHandlers.listItems, "GET", optional, paginated)
	s.handle("/todos/{id:[0-9]+}/items", s.todoHandlers.createItem, "POST", authed)
	s.handle("/todos/{id:[0-9]+}/items/{iid:[0-9]+}", s.todoHandlers.getItem, "GET", optional)
	s.handle("/todos/{id:[0-9]+}/items/{iid:[0-9]+}", s.todoHandlers.updateItem, "PATCH", authed)
	s.handle("/todos/{id:[0-9]+}/items/{iid:[0-9]+}", s.todoHandlers.deleteItem, "DELETE", authed)

	// Review routes
	s.handle("/todos/{id:[0-9]+}/reviews", s.reviewHandlers.listForTodo, "GET", optional, paginated)
	s.handle("/todos/{id:[0-9]+}/reviews", s.reviewHandlers.create, "POST", authed)
	s.handle("/reviews", s.reviewHandlers.list, "GET", optional, paginated)
	s.handle("/reviews/{id:[0-9]+}", s.reviewHandlers.get, "GET", optional)
	s.handle("/reviews/{id:[0-9]+}", s.reviewHandlers.update, "PATCH", authed)
	s.handle("/reviews/{id:[0-9]+}", s.reviewHandlers.delete, "DELETE", authed)
}

// handle registers a route wrapped in the given middleware, outermost first.
// Nil entries (disabled rate limits) are skipped.
func (s *Server) handle(path string, h http.HandlerFunc, method string, wraps ...func(http.Handler) http.Handler) {
	var handler http.Handler = h
	for i := len(wraps) - 1; i >= 0; i-- {
		if wraps[i] != nil {
			handler = wraps[i](handler)
		}
	}
	s.router.Handle(path, handler).Methods(method)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteNotFound(w, "not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

// viewerID returns the authenticated caller's id for visibility filters,
// nil for anonymous requests
func viewerID(r *http.Request) *int64 {
	if user := middleware.CurrentUser(r); user != nil {
		return &user.ID
	}
	return nil
}

// internalError logs the cause server-side; the client only sees the
// generic 500 envelope
func internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	observability.FromContext(r.Context()).WithError(err).Error(msg)
	httputil.WriteInternalError(w)
}
