package middleware

import (
	"context"
	"net/http"

	"github.com/listling/listling/pkg/contextkeys"
	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/validation"
)

// Pagination carries the validated offset and limit for a list request
type Pagination struct {
	Offset int
	Limit  int
}

// DefaultPagination is what list endpoints use when the caller sends no
// paging parameters
var DefaultPagination = Pagination{Offset: 0, Limit: validation.MaxLimit}

// RequirePagination validates offset and limit query parameters and stores
// the result in the request context. Out-of-range or non-integer values get
// the 400 validation envelope.
func RequirePagination(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs := validation.Errors{}

		offset, err := httputil.ParseQueryInt(r, "offset", DefaultPagination.Offset)
		if err != nil {
			errs["offset"] = "must be an integer"
		}
		limit, err := httputil.ParseQueryInt(r, "limit", DefaultPagination.Limit)
		if err != nil {
			errs["limit"] = "must be an integer"
		}
		if !errs.Empty() {
			httputil.WriteValidationErrors(w, errs)
			return
		}

		if errs := validation.Pagination(offset, limit); !errs.Empty() {
			httputil.WriteValidationErrors(w, errs)
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.PaginationKey, Pagination{
			Offset: offset,
			Limit:  limit,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PageFrom extracts the validated pagination from the request, falling back
// to the defaults when the middleware did not run
func PageFrom(r *http.Request) Pagination {
	page, ok := r.Context().Value(contextkeys.PaginationKey).(Pagination)
	if !ok {
		return DefaultPagination
	}
	return page
}
