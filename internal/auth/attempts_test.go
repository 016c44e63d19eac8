package auth

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyworks/siteworks/internal/testutil"
)

func attemptStores(t *testing.T) map[string]AttemptStore {
	t.Helper()

	stores := map[string]AttemptStore{
		"memory": NewMemoryAttemptStore(),
		"sql":    NewSQLAttemptStore(testutil.TestQueries(t)),
	}
	if url := os.Getenv("SITEWORKS_TEST_REDIS_URL"); url != "" {
		rs, err := NewRedisAttemptStore(context.Background(), url, "siteworks-test:"+uuid.NewString()+":")
		require.NoError(t, err)
		t.Cleanup(func() { _ = rs.Close() })
		stores["redis"] = rs
	}
	return stores
}

func TestAttemptStoreWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range attemptStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				ok, err := s.Reserve(ctx, "a@x.test", base.Add(time.Duration(i)*time.Minute), 10*time.Minute, 3)
				require.NoError(t, err)
				assert.True(t, ok, "attempt %d", i)
			}

			ok, err := s.Reserve(ctx, "a@x.test", base.Add(5*time.Minute), 10*time.Minute, 3)
			require.NoError(t, err)
			assert.False(t, ok, "fourth attempt inside window")

			ok, err = s.Reserve(ctx, "b@x.test", base.Add(5*time.Minute), 10*time.Minute, 3)
			require.NoError(t, err)
			assert.True(t, ok, "other keys are independent")

			ok, err = s.Reserve(ctx, "a@x.test", base.Add(10*time.Minute+time.Second), 10*time.Minute, 3)
			require.NoError(t, err)
			assert.True(t, ok, "oldest attempt left the window")

			require.NoError(t, s.Clear(ctx, "a@x.test"))
			for i := 0; i < 3; i++ {
				ok, err := s.Reserve(ctx, "a@x.test", base.Add(11*time.Minute), 10*time.Minute, 3)
				require.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestAttemptStoreConcurrentReserve(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range attemptStores(t) {
		t.Run(name, func(t *testing.T) {
			var allowed atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.Reserve(context.Background(), "race@x.test", now, time.Minute, DefaultMaxAttempts)
					if err == nil && ok {
						allowed.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(DefaultMaxAttempts), allowed.Load())
		})
	}
}

func TestThrottleNormalizesAccount(t *testing.T) {
	ctx := context.Background()
	th := NewThrottle(NewMemoryAttemptStore(), 2, time.Minute)
	now := time.Now()

	for _, account := range []string{"A@x.test", " a@x.test "} {
		ok, err := th.Allow(ctx, account, now)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := th.Allow(ctx, "a@X.TEST", now)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, th.Reset(ctx, "A@X.test"))
	ok, err = th.Allow(ctx, "a@x.test", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewThrottleDefaults(t *testing.T) {
	th := NewThrottle(NewMemoryAttemptStore(), 0, 0)
	assert.Equal(t, DefaultMaxAttempts, th.limit)
	assert.Equal(t, DefaultAttemptWindow, th.Window())
}

func TestMemoryAttemptStorePrune(t *testing.T) {
	s := NewMemoryAttemptStore()
	now := time.Now()
	_, _ = s.Reserve(context.Background(), "old", now.Add(-time.Hour), time.Minute, 5)
	_, _ = s.Reserve(context.Background(), "fresh", now, time.Minute, 5)

	removed, err := s.Prune(context.Background(), now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotContains(t, s.attempts, "old")
	assert.Contains(t, s.attempts, "fresh")
}

func TestThrottlePruneDropsExpiredAttempts(t *testing.T) {
	ctx := context.Background()
	queries := testutil.TestQueries(t)
	th := NewThrottle(NewSQLAttemptStore(queries), DefaultMaxAttempts, DefaultAttemptWindow)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		ok, err := th.Allow(ctx, "nobody-"+uuid.NewString()+"@example.com", start)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := th.Allow(ctx, "recent@example.com", start.Add(30*24*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := th.Prune(ctx, start.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(200), removed)

	removed, err = th.Prune(ctx, start.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	// The surviving attempt still counts towards its lockout.
	for i := 1; i < DefaultMaxAttempts; i++ {
		ok, err = th.Allow(ctx, "recent@example.com", start.Add(30*24*time.Hour+time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err = th.Allow(ctx, "recent@example.com", start.Add(30*24*time.Hour+time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

type plainStore struct{ AttemptStore }

func TestThrottlePruneSkipsSelfExpiringStores(t *testing.T) {
	th := NewThrottle(plainStore{NewMemoryAttemptStore()}, 0, 0)
	removed, err := th.Prune(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
