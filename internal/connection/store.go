package connection

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// StoreManager specializes Manager for the Postgres document store. A
// periodic ping watcher detects losses the driver pool hides and feeds them
// back into the manager's reconnection loop.
type StoreManager struct {
	*Manager
	logger       *zap.Logger
	pingInterval time.Duration
	stopWatch    chan struct{}
	stopOnce     sync.Once
}

// NewStoreManager creates a manager that dials databaseURL. The connection
// pool is configured on every successful dial.
func NewStoreManager(databaseURL string, policy RetryPolicy, logger *zap.Logger) *StoreManager {
	dial := func(ctx context.Context) (io.Closer, error) {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil
	}

	return NewStoreManagerWithDialer(dial, policy, logger)
}

// NewStoreManagerWithDialer creates a store manager over a custom dialer,
// for pools that are opened elsewhere.
func NewStoreManagerWithDialer(dial Dialer, policy RetryPolicy, logger *zap.Logger) *StoreManager {
	sm := &StoreManager{
		Manager:      NewManager("store", dial, policy, logger),
		logger:       logger,
		pingInterval: policy.FallbackInterval,
		stopWatch:    make(chan struct{}),
	}
	go sm.watch()
	return sm
}

// DB returns the live database handle or ErrUnavailable while disconnected.
func (sm *StoreManager) DB() (*sql.DB, error) {
	handle, err := sm.Handle()
	if err != nil {
		return nil, err
	}
	return handle.(*sql.DB), nil
}

// RunOnConnect runs fn with the live pool on every connected transition until
// one run succeeds. If the store is already connected fn runs immediately.
// Used for the idempotent schema bootstrap: a connection lost mid-bootstrap
// must not leave the schema permanently uninitialized.
func (sm *StoreManager) RunOnConnect(fn func(db *sql.DB) error) {
	var mu sync.Mutex
	done := false
	run := func() {
		db, err := sm.DB()
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		if err := fn(db); err == nil {
			done = true
		}
	}
	sm.OnStateChange(func(state State) {
		if state == StateConnected {
			run()
		}
	})
	run()
}

// Dispose stops the watcher and releases the pool. Idempotent.
func (sm *StoreManager) Dispose() error {
	sm.stopOnce.Do(func() { close(sm.stopWatch) })
	return sm.Manager.Dispose()
}

// watch pings the store at the fallback cadence and reports losses, so that
// dependents observe disconnected instead of hanging on a dead pool.
func (sm *StoreManager) watch() {
	ticker := time.NewTicker(sm.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stopWatch:
			return
		case <-ticker.C:
			db, err := sm.DB()
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), sm.pingInterval)
			err = db.PingContext(ctx)
			cancel()
			if err != nil {
				sm.logger.Warn("store ping failed", zap.Error(err))
				sm.MarkLost()
			}
		}
	}
}
