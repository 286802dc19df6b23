// ABOUTME: Correlation table mapping in-flight call ids to their waiting callers.
// ABOUTME: Guarantees each call completes exactly once via resolve, fail, expire, or fail-all.

package pending

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/2389/browser-bridge/internal/dedupe"
)

// ErrDuplicateID indicates Register was called with an id that is still pending.
var ErrDuplicateID = errors.New("duplicate call id")

// ErrTimeout indicates the agent did not reply before the call's deadline.
var ErrTimeout = errors.New("call timed out")

// ErrConnectionLost indicates the agent connection ended while the call was pending.
var ErrConnectionLost = errors.New("agent connection lost")

const (
	// DefaultTombstoneTTL is how long completed ids are remembered.
	DefaultTombstoneTTL = 5 * time.Minute
	// DefaultTombstoneSize caps the number of remembered ids.
	DefaultTombstoneSize = 4096
)

// Call is a single in-flight request. Its outcome is readable once Done is closed.
type Call struct {
	ID        string
	CreatedAt time.Time
	Deadline  time.Time

	table *Table
	timer *time.Timer
	done  chan struct{}

	payload json.RawMessage
	err     error
}

// Done is closed when the call completes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome. It must only be called after Done is closed.
func (c *Call) Result() (json.RawMessage, error) {
	return c.payload, c.err
}

// Wait blocks until the call completes or ctx ends. When ctx ends first the
// entry is expired and ctx.Err() is returned, unless a reply won the race.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-c.done:
		return c.payload, c.err
	case <-ctx.Done():
	}

	expired := c.table.expireCall(c)
	<-c.done
	if expired {
		return nil, ctx.Err()
	}
	return c.payload, c.err
}

// Config controls table construction.
type Config struct {
	TombstoneTTL  time.Duration
	TombstoneSize int
	// Now supplies CreatedAt timestamps. Nil means time.Now.
	Now func() time.Time
}

// Table is the set of pending calls. All methods are safe for concurrent use.
type Table struct {
	mu     sync.Mutex
	calls  map[string]*Call
	recent *dedupe.Cache
	now    func() time.Time
}

// NewTable creates an empty table.
func NewTable(cfg Config) *Table {
	ttl := cfg.TombstoneTTL
	if ttl == 0 {
		ttl = DefaultTombstoneTTL
	}
	size := cfg.TombstoneSize
	if size == 0 {
		size = DefaultTombstoneSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Table{
		calls:  make(map[string]*Call),
		recent: dedupe.New(ttl, size),
		now:    now,
	}
}

// Register creates a pending entry for id. When deadline is non-zero a timer
// expires the entry at that time. Returns ErrDuplicateID if id is pending.
func (t *Table) Register(id string, deadline time.Time) (*Call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.calls[id]; exists {
		return nil, ErrDuplicateID
	}

	c := &Call{
		ID:        id,
		CreatedAt: t.now(),
		Deadline:  deadline,
		table:     t,
		done:      make(chan struct{}),
	}
	t.calls[id] = c

	// The callback takes t.mu, so it cannot observe c before timer is set.
	if !deadline.IsZero() {
		c.timer = time.AfterFunc(time.Until(deadline), func() {
			t.expireCall(c)
		})
	}
	return c, nil
}

// Resolve completes id with payload. Unknown ids are ignored.
func (t *Table) Resolve(id string, payload json.RawMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[id]
	if !ok {
		return false
	}
	t.completeLocked(c, payload, nil)
	return true
}

// Fail completes id with err. Unknown ids are ignored.
func (t *Table) Fail(id string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[id]
	if !ok {
		return false
	}
	t.completeLocked(c, nil, err)
	return true
}

// Expire completes id with ErrTimeout if it is still pending.
func (t *Table) Expire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[id]
	if !ok {
		return false
	}
	t.completeLocked(c, nil, ErrTimeout)
	return true
}

// expireCall expires c only if c itself is still the entry under its id.
func (t *Table) expireCall(c *Call) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.calls[c.ID] != c {
		return false
	}
	t.completeLocked(c, nil, ErrTimeout)
	return true
}

// FailAll completes every pending entry with err and returns how many there were.
func (t *Table) FailAll(err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.calls)
	for _, c := range t.calls {
		t.completeLocked(c, nil, err)
	}
	return n
}

// completeLocked finishes c. Must be called with mu held and c in the table.
func (t *Table) completeLocked(c *Call, payload json.RawMessage, err error) {
	delete(t.calls, c.ID)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.payload = payload
	c.err = err
	close(c.done)
	t.recent.Mark(c.ID)
}

// Len returns the number of pending calls.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Pending reports whether id is currently pending.
func (t *Table) Pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.calls[id]
	return ok
}

// RecentlyCompleted reports whether id finished within the tombstone TTL.
func (t *Table) RecentlyCompleted(id string) bool {
	return t.recent.Seen(id)
}

// Close fails anything still pending with ErrConnectionLost and releases
// background resources.
func (t *Table) Close() {
	t.FailAll(ErrConnectionLost)
	t.recent.Close()
}
