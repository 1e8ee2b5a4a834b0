package lock

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-order-commit/pkg/apperr"

	"github.com/google/uuid"
)

// Config bounds how long a caller waits for a product lock.
type Config struct {
	WaitTimeout time.Duration // Max wait per acquisition attempt
	MaxAttempts int           // Attempts before giving up with Busy
	BackoffBase time.Duration // First retry delay, doubled per attempt
}

// DefaultConfig returns the lock budget used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		WaitTimeout: 500 * time.Millisecond,
		MaxAttempts: 3,
		BackoffBase: 50 * time.Millisecond,
	}
}

// Manager hands out one exclusive lease per product id. It stands in for
// the database row lock: all stock mutation paths must hold the product's
// lease before touching its StockRecord.
type Manager struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	cfg   Config
}

func NewManager(cfg Config) *Manager {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultConfig().WaitTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	return &Manager{
		slots: make(map[uuid.UUID]chan struct{}),
		cfg:   cfg,
	}
}

// slot returns the lease channel for key, creating it on first use.
// A buffered channel of size 1 gives us a mutex we can wait on with a
// timeout and a context.
func (m *Manager) slot(key uuid.UUID) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		m.slots[key] = s
	}
	return s
}

// Acquire takes the exclusive lease for key. It retries with exponential
// backoff up to the configured attempt cap, then fails with ErrBusy.
// Context cancellation is honored while waiting.
func (m *Manager) Acquire(ctx context.Context, key uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := m.slot(key)
	backoff := m.cfg.BackoffBase

	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(m.cfg.WaitTimeout)
		select {
		case s <- struct{}{}:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if attempt >= m.cfg.MaxAttempts {
			return apperr.ErrBusy
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Release gives the lease for key back. Calling Release without holding
// the lease is a programming error; the drain is non-blocking so it never
// wedges the caller.
func (m *Manager) Release(key uuid.UUID) {
	s := m.slot(key)
	select {
	case <-s:
	default:
	}
}

// AcquireAll takes leases for every distinct key in a globally consistent
// order (sorted lexicographically by uuid string). The fixed total order
// is what makes concurrent multi-product commits deadlock-free. On any
// failure the leases already held are released before returning.
// The returned slice is the sorted set of keys actually held; pass it to
// ReleaseAll when done.
func (m *Manager) AcquireAll(ctx context.Context, keys []uuid.UUID) ([]uuid.UUID, error) {
	sorted := SortKeys(keys)

	held := make([]uuid.UUID, 0, len(sorted))
	for _, key := range sorted {
		if err := m.Acquire(ctx, key); err != nil {
			m.ReleaseAll(held)
			return nil, err
		}
		held = append(held, key)
	}
	return held, nil
}

// ReleaseAll releases leases in reverse acquisition order.
func (m *Manager) ReleaseAll(keys []uuid.UUID) {
	for i := len(keys) - 1; i >= 0; i-- {
		m.Release(keys[i])
	}
}

// SortKeys dedupes and sorts product ids into the canonical lock order.
func SortKeys(keys []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(keys))
	sorted := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}
