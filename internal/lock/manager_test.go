package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-order-commit/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		WaitTimeout: 20 * time.Millisecond,
		MaxAttempts: 2,
		BackoffBase: 5 * time.Millisecond,
	}
}

func TestAcquireAndRelease(t *testing.T) {
	m := NewManager(fastConfig())
	key := uuid.New()

	require.NoError(t, m.Acquire(context.Background(), key))

	// Held lease blocks a second caller until released
	err := m.Acquire(context.Background(), key)
	assert.ErrorIs(t, err, apperr.ErrBusy)

	m.Release(key)
	require.NoError(t, m.Acquire(context.Background(), key))
	m.Release(key)
}

func TestAcquireBusyAfterRetryBudget(t *testing.T) {
	m := NewManager(fastConfig())
	key := uuid.New()

	require.NoError(t, m.Acquire(context.Background(), key))
	defer m.Release(key)

	start := time.Now()
	err := m.Acquire(context.Background(), key)
	assert.ErrorIs(t, err, apperr.ErrBusy)
	// Two attempts plus one backoff had to elapse
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	m := NewManager(Config{WaitTimeout: time.Second, MaxAttempts: 5, BackoffBase: 10 * time.Millisecond})
	key := uuid.New()

	require.NoError(t, m.Acquire(context.Background(), key))
	defer m.Release(key)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := m.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireAllReleasesHeldOnFailure(t *testing.T) {
	m := NewManager(fastConfig())
	a := uuid.New()
	b := uuid.New()

	// Hold one of the keys so AcquireAll must fail
	require.NoError(t, m.Acquire(context.Background(), b))

	held, err := m.AcquireAll(context.Background(), []uuid.UUID{a, b})
	assert.ErrorIs(t, err, apperr.ErrBusy)
	assert.Nil(t, held)

	// The other key must have been released again
	require.NoError(t, m.Acquire(context.Background(), a))
	m.Release(a)
	m.Release(b)
}

func TestAcquireAllOppositeOrdersDoNotDeadlock(t *testing.T) {
	m := NewManager(Config{WaitTimeout: time.Second, MaxAttempts: 3, BackoffBase: time.Millisecond})
	a := uuid.New()
	b := uuid.New()

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)

	run := func(keys []uuid.UUID) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			held, err := m.AcquireAll(context.Background(), keys)
			require.NoError(t, err)
			m.ReleaseAll(held)
		}
	}

	go run([]uuid.UUID{a, b})
	go run([]uuid.UUID{b, a})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposite lock orders deadlocked")
	}
}

func TestSortKeysDedupesAndOrders(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	c := uuid.MustParse("cccccccc-0000-0000-0000-000000000000")

	sorted := SortKeys([]uuid.UUID{c, a, b, a, c})
	require.Equal(t, []uuid.UUID{a, b, c}, sorted)
}
