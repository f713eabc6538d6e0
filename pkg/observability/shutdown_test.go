package observability

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForShutdownOnContextCancel(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, time.Second, &http.Server{Addr: "127.0.0.1:0"})

	var ran bool
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		ran = true
		return nil
	})

	// a dead listener cancels the group context; WaitForShutdown must
	// return instead of blocking on the signal channel
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForShutdown did not return after context cancellation")
	}
	assert.True(t, ran)
}

func TestShutdownRunsRegisteredFuncs(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, time.Second)

	calls := make(chan string, 2)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		calls <- "first"
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		calls <- "second"
		return nil
	})

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Len(t, calls, 2)
}
