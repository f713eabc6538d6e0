package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, *HealthChecker) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewHealthChecker(db, nil)
}

func expectHealthyDB(mock sqlmock.Sqlmock) {
	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
}

func TestCheckHealthy(t *testing.T) {
	mock, checker := newMockDB(t)
	expectHealthyDB(mock)

	status := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckDatabaseDown(t *testing.T) {
	mock, checker := newMockDB(t)
	mock.ExpectPing().WillReturnError(context.DeadlineExceeded)

	status := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["database"].Status)
	assert.NotEmpty(t, status.Dependencies["database"].Message)
}

func TestCheckQueryFails(t *testing.T) {
	mock, checker := newMockDB(t)
	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnError(context.DeadlineExceeded)

	status := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
}

func TestCheckRedisDownIsDegraded(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	expectHealthyDB(mock)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	// redis only backs rate limiting, so losing it degrades instead of
	// failing readiness
	checker := NewHealthChecker(db, client)
	status := checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
}

func TestReadinessEndpoint(t *testing.T) {
	mock, checker := newMockDB(t)
	expectHealthyDB(mock)

	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, checker)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
}

func TestReadinessEndpointUnavailable(t *testing.T) {
	mock, checker := newMockDB(t)
	mock.ExpectPing().WillReturnError(context.DeadlineExceeded)

	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, checker)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLivenessEndpoint(t *testing.T) {
	checker := NewHealthChecker(nil, nil)

	w := httptest.NewRecorder()
	http.HandlerFunc(checker.Liveness).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
