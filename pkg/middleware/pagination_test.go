package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := PageFrom(r)
		fmt.Fprintf(w, "%d:%d", page.Offset, page.Limit)
	})
}

func TestRequirePagination_Defaults(t *testing.T) {
	w := httptest.NewRecorder()
	RequirePagination(pageEcho()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0:100", w.Body.String())
}

func TestRequirePagination_Explicit(t *testing.T) {
	w := httptest.NewRecorder()
	RequirePagination(pageEcho()).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/todos?offset=20&limit=5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20:5", w.Body.String())
}

func TestRequirePagination_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"negative offset", "?offset=-1", "offset"},
		{"zero limit", "?limit=0", "limit"},
		{"limit above max", "?limit=101", "limit"},
		{"non-integer offset", "?offset=abc", "offset"},
		{"non-integer limit", "?limit=ten", "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RequirePagination(pageEcho()).ServeHTTP(w,
				httptest.NewRequest(http.MethodGet, "/todos"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation error", resp.Message)
			assert.Contains(t, resp.Errors, tt.field)
		})
	}
}

func TestPageFrom_WithoutMiddleware(t *testing.T) {
	page := PageFrom(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, DefaultPagination, page)
}
