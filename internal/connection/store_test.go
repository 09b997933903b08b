package connection_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/connection"
)

// newSQLStore backs a store manager with a fresh sqlmock pool per dial.
func newSQLStore(t *testing.T) *connection.StoreManager {
	t.Helper()
	dial := func(ctx context.Context) (io.Closer, error) {
		db, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		mock.ExpectClose()
		return db, nil
	}
	store := connection.NewStoreManagerWithDialer(dial, connection.RetryPolicy{
		MaxAttempts:      1,
		Interval:         time.Millisecond,
		FallbackInterval: 5 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(func() { store.Dispose() })
	return store
}

func TestStoreManager_RunOnConnect_RetriesUntilOneSuccess(t *testing.T) {
	store := newSQLStore(t)

	reconnected := make(chan struct{}, 4)
	store.OnStateChange(func(s connection.State) {
		if s == connection.StateConnected {
			reconnected <- struct{}{}
		}
	})

	var mu sync.Mutex
	var runs int
	ran := make(chan struct{}, 4)
	store.RunOnConnect(func(db *sql.DB) error {
		mu.Lock()
		runs++
		n := runs
		mu.Unlock()
		ran <- struct{}{}
		if n == 1 {
			// Connection dies under the first bootstrap pass.
			return errors.New("driver: bad connection")
		}
		return nil
	})

	require.NoError(t, store.Connect(context.Background()))
	<-reconnected
	<-ran

	// The failed pass must be retried on the next connected transition.
	store.MarkLost()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("bootstrap was not retried after reconnect")
	}

	// Once one pass succeeded, further reconnects do not run it again.
	store.MarkLost()
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("store never reconnected")
	}
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
}

func TestStoreManager_RunOnConnect_RunsImmediatelyWhenConnected(t *testing.T) {
	store := newSQLStore(t)
	require.NoError(t, store.Connect(context.Background()))

	ran := make(chan struct{}, 1)
	store.RunOnConnect(func(db *sql.DB) error {
		ran <- struct{}{}
		return nil
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("registered after connect but never ran")
	}
}

func TestStoreManager_DB_BeforeConnectIsUnavailable(t *testing.T) {
	store := newSQLStore(t)

	_, err := store.DB()

	assert.Error(t, err)
}

func TestStoreManager_ConcurrentDisposeDoesNotPanic(t *testing.T) {
	store := newSQLStore(t)
	require.NoError(t, store.Connect(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Dispose())
		}()
	}
	wg.Wait()
}
