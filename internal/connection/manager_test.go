package connection_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/connection"
	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeDialer fails a configured number of attempts before succeeding.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	attempts int
	conns    []*fakeConn
}

func (d *fakeDialer) dial(ctx context.Context) (io.Closer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.attempts <= d.failures {
		return nil, errors.New("connection refused")
	}
	conn := &fakeConn{}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func fastPolicy() connection.RetryPolicy {
	return connection.RetryPolicy{
		MaxAttempts:      3,
		Interval:         time.Millisecond,
		FallbackInterval: 5 * time.Millisecond,
	}
}

func TestManager_ConnectFirstAttempt(t *testing.T) {
	dialer := &fakeDialer{}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())
	defer m.Dispose()

	require.NoError(t, m.Connect(context.Background()))

	assert.Equal(t, connection.StateConnected, m.State())
	handle, err := m.Handle()
	assert.NoError(t, err)
	assert.NotNil(t, handle)
	assert.Equal(t, 1, dialer.attemptCount())
}

func TestManager_ConnectRetriesWithinBurst(t *testing.T) {
	dialer := &fakeDialer{failures: 2}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())
	defer m.Dispose()

	require.NoError(t, m.Connect(context.Background()))

	assert.Equal(t, 3, dialer.attemptCount())
	assert.Equal(t, connection.StateConnected, m.State())
}

func TestManager_HandleBeforeConnectIsUnavailable(t *testing.T) {
	dialer := &fakeDialer{}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())
	defer m.Dispose()

	_, err := m.Handle()

	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestManager_BurstExhaustionFallsBackToIndefiniteRetry(t *testing.T) {
	// Five failures outlast the three-attempt burst; the fallback loop must
	// pick the transport up once it becomes available.
	dialer := &fakeDialer{failures: 5}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())
	defer m.Dispose()

	connected := make(chan connection.State, 4)
	m.OnStateChange(func(s connection.State) { connected <- s })

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, connection.StateDisconnected, m.State())

	select {
	case state := <-connected:
		assert.Equal(t, connection.StateConnected, state)
	case <-time.After(2 * time.Second):
		t.Fatal("fallback retry never connected")
	}
	assert.Equal(t, connection.StateConnected, m.State())
}

func TestManager_MarkLostReleasesHandleAndReconnects(t *testing.T) {
	dialer := &fakeDialer{}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())
	defer m.Dispose()
	require.NoError(t, m.Connect(context.Background()))

	var transitions []connection.State
	var mu sync.Mutex
	done := make(chan struct{}, 1)
	m.OnStateChange(func(s connection.State) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
		if s == connection.StateConnected {
			done <- struct{}{}
		}
	})

	m.MarkLost()

	_, err := m.Handle()
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.True(t, dialer.conns[0].closed, "stale handle must be closed on loss")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager never reconnected after loss")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []connection.State{connection.StateDisconnected, connection.StateConnected}, transitions)
}

func TestManager_DisposeIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())
	require.NoError(t, m.Connect(context.Background()))

	assert.NoError(t, m.Dispose())
	assert.NoError(t, m.Dispose())

	assert.True(t, dialer.conns[0].closed)
	_, err := m.Handle()
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestManager_DisposeStopsFallbackRetry(t *testing.T) {
	dialer := &fakeDialer{failures: 1000}
	m := connection.NewManager("test", dialer.dial, fastPolicy(), zap.NewNop())

	require.Error(t, m.Connect(context.Background()))
	require.NoError(t, m.Dispose())

	attempts := dialer.attemptCount()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, dialer.attemptCount(), attempts+1, "retry loop kept dialing after Dispose")
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := connection.DefaultRetryPolicy()

	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.Interval)
	assert.Equal(t, 2*time.Second, policy.FallbackInterval)
}
