// ABOUTME: Tests for the correlation table including timers, fail-all, and races.
// ABOUTME: Validates exactly-once completion and silent handling of unknown ids.

package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTableTest(t *testing.T) *Table {
	t.Helper()
	table := NewTable(Config{})
	t.Cleanup(table.Close)
	return table
}

func farDeadline() time.Time {
	return time.Now().Add(time.Hour)
}

// waitDone fails the test if c does not complete within d.
func waitDone(t *testing.T, c *Call, d time.Duration) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(d):
		t.Fatalf("call %s did not complete within %v", c.ID, d)
	}
}

func TestTableRegister(t *testing.T) {
	t.Run("creates a pending entry", func(t *testing.T) {
		table := setupTableTest(t)

		c, err := table.Register("a1", farDeadline())
		require.NoError(t, err)
		assert.Equal(t, "a1", c.ID)
		assert.True(t, table.Pending("a1"))
		assert.Equal(t, 1, table.Len())
	})

	t.Run("rejects an id that is already pending", func(t *testing.T) {
		table := setupTableTest(t)

		_, err := table.Register("a1", farDeadline())
		require.NoError(t, err)

		_, err = table.Register("a1", farDeadline())
		assert.ErrorIs(t, err, ErrDuplicateID)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("allows reuse once the id completed", func(t *testing.T) {
		table := setupTableTest(t)

		_, err := table.Register("a1", farDeadline())
		require.NoError(t, err)
		table.Resolve("a1", json.RawMessage(`1`))

		_, err = table.Register("a1", farDeadline())
		assert.NoError(t, err)
	})
}

func TestTableResolve(t *testing.T) {
	t.Run("completes the call with the payload and removes it", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", farDeadline())

		assert.True(t, table.Resolve("a1", json.RawMessage(`{"tabs":[]}`)))

		waitDone(t, c, time.Second)
		payload, err := c.Result()
		require.NoError(t, err)
		assert.JSONEq(t, `{"tabs":[]}`, string(payload))
		assert.Equal(t, 0, table.Len())
		assert.True(t, table.RecentlyCompleted("a1"))
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		table := setupTableTest(t)

		assert.NotPanics(t, func() {
			assert.False(t, table.Resolve("never-registered", json.RawMessage(`{}`)))
			assert.False(t, table.Fail("never-registered", errors.New("boom")))
			assert.False(t, table.Expire("never-registered"))
		})
		assert.False(t, table.RecentlyCompleted("never-registered"))
	})

	t.Run("second completion is not observable", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", farDeadline())

		assert.True(t, table.Resolve("a1", json.RawMessage(`"first"`)))
		assert.False(t, table.Resolve("a1", json.RawMessage(`"second"`)))
		assert.False(t, table.Fail("a1", errors.New("late failure")))
		assert.False(t, table.Expire("a1"))

		payload, err := c.Result()
		require.NoError(t, err)
		assert.Equal(t, `"first"`, string(payload))
	})
}

func TestTableFail(t *testing.T) {
	table := setupTableTest(t)
	c, _ := table.Register("a1", farDeadline())
	remote := errors.New("tab not found")

	assert.True(t, table.Fail("a1", remote))

	waitDone(t, c, time.Second)
	_, err := c.Result()
	assert.ErrorIs(t, err, remote)
	assert.Equal(t, 0, table.Len())
}

func TestTableExpire(t *testing.T) {
	t.Run("timer completes with ErrTimeout no earlier than the deadline", func(t *testing.T) {
		table := setupTableTest(t)
		start := time.Now()
		deadline := start.Add(50 * time.Millisecond)

		c, err := table.Register("a1", deadline)
		require.NoError(t, err)

		waitDone(t, c, 2*time.Second)
		_, err = c.Result()
		assert.ErrorIs(t, err, ErrTimeout)
		assert.False(t, time.Now().Before(deadline), "expired before its deadline")
		assert.False(t, table.Pending("a1"))
	})

	t.Run("manual expire ignores calls already resolved", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", farDeadline())
		table.Resolve("a1", json.RawMessage(`true`))

		assert.False(t, table.Expire("a1"))
		_, err := c.Result()
		assert.NoError(t, err)
	})

	t.Run("stale timer does not expire a reused id", func(t *testing.T) {
		table := setupTableTest(t)
		first, _ := table.Register("a1", farDeadline())
		table.Resolve("a1", nil)

		second, _ := table.Register("a1", farDeadline())
		assert.False(t, table.expireCall(first))
		assert.True(t, table.Pending("a1"))
		table.Resolve("a1", nil)
		waitDone(t, second, time.Second)
	})

	t.Run("zero deadline arms no timer", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", time.Time{})
		assert.Nil(t, c.timer)
		assert.True(t, table.Pending("a1"))
	})
}

func TestTableFailAll(t *testing.T) {
	table := setupTableTest(t)

	const n = 25
	calls := make([]*Call, n)
	for i := range calls {
		c, err := table.Register(fmt.Sprintf("call-%d", i), farDeadline())
		require.NoError(t, err)
		calls[i] = c
	}

	assert.Equal(t, n, table.FailAll(ErrConnectionLost))
	assert.Equal(t, 0, table.Len())

	for _, c := range calls {
		select {
		case <-c.Done():
		default:
			t.Fatalf("call %s not completed synchronously by FailAll", c.ID)
		}
		_, err := c.Result()
		assert.ErrorIs(t, err, ErrConnectionLost)
	}

	assert.Equal(t, 0, table.FailAll(ErrConnectionLost))
}

func TestCallWait(t *testing.T) {
	t.Run("returns the resolved payload", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", farDeadline())

		go table.Resolve("a1", json.RawMessage(`42`))

		payload, err := c.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "42", string(payload))
	})

	t.Run("abandoned call is purged and reports the context error", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", farDeadline())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, table.Pending("a1"))
		assert.False(t, table.Resolve("a1", json.RawMessage(`"late"`)))
		assert.True(t, table.RecentlyCompleted("a1"))
	})

	t.Run("reply that wins the race is returned despite cancellation", func(t *testing.T) {
		table := setupTableTest(t)
		c, _ := table.Register("a1", farDeadline())
		table.Resolve("a1", json.RawMessage(`"won"`))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		payload, err := c.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, `"won"`, string(payload))
	})
}

func TestTableExactlyOnceUnderRace(t *testing.T) {
	table := setupTableTest(t)

	const n = 200
	calls := make([]*Call, n)
	for i := range calls {
		c, err := table.Register(fmt.Sprintf("race-%d", i), time.Now().Add(time.Duration(i%5)*time.Millisecond))
		require.NoError(t, err)
		calls[i] = c
	}

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("race-%d", i)
		wg.Add(4)
		go func() {
			defer wg.Done()
			if table.Resolve(id, json.RawMessage(`"ok"`)) {
				wins.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if table.Fail(id, errors.New("fail")) {
				wins.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if table.Expire(id) {
				wins.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if i%10 == 0 {
				wins.Add(int64(table.FailAll(ErrConnectionLost)))
			}
		}()
	}
	wg.Wait()

	for _, c := range calls {
		waitDone(t, c, 2*time.Second)
	}

	// Timers may still complete entries the goroutines missed.
	for _, c := range calls {
		_, err := c.Result()
		if err != nil {
			assert.True(t, errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionLost) || err.Error() == "fail")
		}
	}
	assert.LessOrEqual(t, wins.Load(), int64(n))
	assert.Equal(t, 0, table.Len())
}

func TestTableClose(t *testing.T) {
	table := NewTable(Config{})
	c, _ := table.Register("a1", farDeadline())

	table.Close()

	_, err := c.Result()
	assert.ErrorIs(t, err, ErrConnectionLost)
}
