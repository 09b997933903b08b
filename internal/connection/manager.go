// Package connection owns the retry and reconnection discipline shared by the
// store and broker transports. A manager treats "no connection yet" as a
// steady state: once the initial retry policy is exhausted it keeps dialing
// at a fallback interval until the endpoint comes back or it is disposed.
package connection

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// State is the observable connection state of a manager.
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// RetryPolicy bounds the initial connection burst. After MaxAttempts dials at
// Interval the manager falls back to dialing at FallbackInterval forever.
type RetryPolicy struct {
	MaxAttempts      int
	Interval         time.Duration
	FallbackInterval time.Duration
}

// DefaultRetryPolicy mirrors the operational defaults: five 1s attempts, then
// a 2s fallback cadence.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Interval: time.Second, FallbackInterval: 2 * time.Second}
}

// Dialer establishes one connection attempt to the underlying transport.
type Dialer func(ctx context.Context) (io.Closer, error)

// Manager owns a single transport handle, its reconnection loop and the
// connected/disconnected transitions observed by dependents.
type Manager struct {
	name   string
	dial   Dialer
	policy RetryPolicy
	logger *zap.Logger

	mu        sync.RWMutex
	handle    io.Closer
	state     State
	listeners []func(State)
	retrying  bool
	disposed  bool
	stopCh    chan struct{}
}

// NewManager creates a manager for the named transport. Connect must be
// called before Handle returns anything but ErrUnavailable.
func NewManager(name string, dial Dialer, policy RetryPolicy, logger *zap.Logger) *Manager {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.FallbackInterval <= 0 {
		policy.FallbackInterval = 2 * time.Second
	}
	return &Manager{
		name:   name,
		dial:   dial,
		policy: policy,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// OnStateChange registers a listener for connected/disconnected transitions.
// Listeners are invoked synchronously in registration order.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Connect runs the bounded retry burst. On success the manager transitions to
// connected and returns nil. On exhaustion it returns the last dial error but
// keeps retrying in the background at the fallback interval, so a transport
// that becomes available later is still picked up.
func (m *Manager) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= m.policy.MaxAttempts; attempt++ {
		handle, err := m.dial(ctx)
		if err == nil {
			m.setConnected(handle)
			return nil
		}
		lastErr = err
		m.logger.Warn("connection attempt failed",
			zap.String("transport", m.name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.policy.MaxAttempts),
			zap.Error(err))
		if attempt < m.policy.MaxAttempts {
			select {
			case <-time.After(m.policy.Interval):
			case <-ctx.Done():
				return ctx.Err()
			case <-m.stopCh:
				return domain.ErrUnavailable
			}
		}
	}

	m.logger.Warn("initial retry policy exhausted, falling back to indefinite retry",
		zap.String("transport", m.name),
		zap.Duration("fallback_interval", m.policy.FallbackInterval))
	m.startFallbackRetry()
	return lastErr
}

// MarkLost tells the manager the transport reported a connection loss. The
// stale handle is released and the indefinite retry loop is re-armed.
func (m *Manager) MarkLost() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	if m.handle != nil {
		_ = m.handle.Close()
		m.handle = nil
	}
	changed := m.state != StateDisconnected
	m.state = StateDisconnected
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if changed {
		m.logger.Warn("connection lost", zap.String("transport", m.name))
		for _, fn := range listeners {
			fn(StateDisconnected)
		}
	}
	m.startFallbackRetry()
}

// Handle returns the live transport handle, or ErrUnavailable while
// disconnected so that dependents reject operations instead of hanging.
func (m *Manager) Handle() (io.Closer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateConnected || m.handle == nil {
		return nil, domain.ErrUnavailable
	}
	return m.handle, nil
}

// State returns the current observable state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Dispose releases the handle and stops any retry loop. It is idempotent.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true
	close(m.stopCh)
	var err error
	if m.handle != nil {
		err = m.handle.Close()
		m.handle = nil
	}
	m.state = StateDisconnected
	m.mu.Unlock()
	return err
}

func (m *Manager) setConnected(handle io.Closer) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		_ = handle.Close()
		return
	}
	m.handle = handle
	changed := m.state != StateConnected
	m.state = StateConnected
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if changed {
		m.logger.Info("connection established", zap.String("transport", m.name))
		for _, fn := range listeners {
			fn(StateConnected)
		}
	}
}

// startFallbackRetry launches the indefinite dial loop. Only one loop runs at
// a time regardless of how many losses are reported.
func (m *Manager) startFallbackRetry() {
	m.mu.Lock()
	if m.retrying || m.disposed {
		m.mu.Unlock()
		return
	}
	m.retrying = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			m.retrying = false
			m.mu.Unlock()
		}()
		ticker := time.NewTicker(m.policy.FallbackInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				handle, err := m.dial(context.Background())
				if err != nil {
					m.logger.Debug("fallback reconnection attempt failed",
						zap.String("transport", m.name), zap.Error(err))
					continue
				}
				m.setConnected(handle)
				return
			}
		}
	}()
}

func (m *Manager) snapshotListeners() []func(State) {
	out := make([]func(State), len(m.listeners))
	copy(out, m.listeners)
	return out
}
