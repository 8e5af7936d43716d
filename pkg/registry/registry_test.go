package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/nft-harvester/internal/testutil"
	"github.com/Sternrassler/nft-harvester/pkg/stats"
)

// trackingCloser counts Close calls and optionally fails.
type trackingCloser struct {
	mu     sync.Mutex
	closed int
	err    error
}

func (c *trackingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.err
}

func (c *trackingCloser) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegistry_Accessors(t *testing.T) {
	ms := testutil.NewMemStore()
	st := stats.New()
	r := New(ms, st, zerolog.Nop())
	defer r.CleanupAll()

	if r.Store() != ms {
		t.Error("Store() did not return the shared store")
	}
	if r.Stats() != st {
		t.Error("Stats() did not return the shared aggregate")
	}
}

func TestRegistry_StatusTaskStartsOnce(t *testing.T) {
	r := New(testutil.NewMemStore(), stats.New(), zerolog.Nop())
	defer r.CleanupAll()

	r.Register(&trackingCloser{})
	first := r.statusDone
	if first == nil {
		t.Fatal("status task not started on first registration")
	}

	r.Register(&trackingCloser{})
	r.Register(&trackingCloser{})
	if r.statusDone != first {
		t.Error("status task restarted on subsequent registration")
	}
}

func TestRegistry_CleanupAllClosesEverything(t *testing.T) {
	ms := testutil.NewMemStore()
	r := New(ms, stats.New(), zerolog.Nop())

	a := &trackingCloser{}
	b := &trackingCloser{err: errors.New("close failed")}
	c := &trackingCloser{}
	r.Register(a)
	r.Register(b)
	r.Register(c)

	r.CleanupAll()

	if !ms.Closed() {
		t.Error("store not closed")
	}
	// A failing instance must not stop the others from closing.
	for i, tc := range []*trackingCloser{a, b, c} {
		if got := tc.closeCount(); got != 1 {
			t.Errorf("closer %d close count = %d, want 1", i, got)
		}
	}

	// The status task must have terminated.
	select {
	case <-r.statusDone:
	default:
		t.Error("status task still running after CleanupAll")
	}
}

func TestRegistry_CleanupAllIdempotent(t *testing.T) {
	ms := testutil.NewMemStore()
	r := New(ms, stats.New(), zerolog.Nop())

	tc := &trackingCloser{}
	r.Register(tc)

	r.CleanupAll()
	r.CleanupAll()
	r.CleanupAll()

	if got := tc.closeCount(); got != 1 {
		t.Errorf("close count = %d, want 1 (idempotent cleanup)", got)
	}
}

func TestRegistry_CleanupAllWithoutRegistrations(t *testing.T) {
	r := New(testutil.NewMemStore(), stats.New(), zerolog.Nop())

	// No status task was ever started; cleanup must not hang or panic.
	r.CleanupAll()
}

func TestRegistry_RegisterAfterCleanupDoesNotRestart(t *testing.T) {
	r := New(testutil.NewMemStore(), stats.New(), zerolog.Nop())
	r.Register(&trackingCloser{})
	r.CleanupAll()

	r.Register(&trackingCloser{})
	select {
	case <-r.statusDone:
	default:
		t.Error("status task restarted after cleanup")
	}
}
