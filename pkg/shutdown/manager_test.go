package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestManager_StopsInReverseOrder(t *testing.T) {
	mgr := NewManager(zap.NewNop(), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	mgr.RegisterNoErr("database", record("database"))
	mgr.RegisterCloser("events", closerFunc(func() error { record("events")(); return nil }))
	mgr.Register("http", func(ctx context.Context) error { record("http")(); return nil })

	failures := mgr.Shutdown()

	assert.Empty(t, failures)
	assert.Equal(t, []string{"http", "events", "database"}, order)
}

func TestManager_ContinuesPastFailures(t *testing.T) {
	mgr := NewManager(zap.NewNop(), time.Second)
	boom := errors.New("boom")

	databaseClosed := false
	mgr.RegisterNoErr("database", func() { databaseClosed = true })
	mgr.RegisterCloser("events", closerFunc(func() error { return boom }))

	failures := mgr.Shutdown()

	assert.True(t, databaseClosed)
	assert.Equal(t, map[string]error{"events": boom}, failures)
}

func TestManager_ShutdownRunsOnce(t *testing.T) {
	mgr := NewManager(zap.NewNop(), time.Second)
	calls := 0
	mgr.RegisterNoErr("counter", func() { calls++ })

	mgr.Shutdown()
	second := mgr.Shutdown()

	assert.Equal(t, 1, calls)
	assert.Nil(t, second)
}

type fakeServer struct{ deadline bool }

func (s *fakeServer) Shutdown(ctx context.Context) error {
	_, s.deadline = ctx.Deadline()
	return nil
}

func TestManager_HTTPServerGetsDeadline(t *testing.T) {
	mgr := NewManager(zap.NewNop(), time.Second)
	srv := &fakeServer{}
	mgr.RegisterHTTPServer("http", srv)

	mgr.Shutdown()

	assert.True(t, srv.deadline)
}
