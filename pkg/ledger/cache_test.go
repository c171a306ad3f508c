package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventoryKey(campID int64) Key {
	return NewKey(baseSepolia.ChainID, inventoryAddr, "getInventory", big.NewInt(campID), uint8(1))
}

func waiters(c *Cache, key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.flight == nil {
		return 0
	}
	return e.flight.waiters
}

func TestCache_DedupesConcurrentReads(t *testing.T) {
	c := NewCache()
	key := inventoryKey(5)
	gate := make(chan struct{})
	var fetches atomic.Int32

	fetch := func(ctx context.Context) (any, error) {
		fetches.Add(1)
		<-gate
		return 40, nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]any, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Read(context.Background(), key, nil, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return waiters(c, key) == readers }, time.Second, time.Millisecond)
	assert.True(t, c.Peek(key).IsLoading())
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load())
	for _, v := range results {
		assert.Equal(t, 40, v)
	}
	snap := c.Peek(key)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, 40, snap.Data)
}

func TestCache_FailureHasNoDataAndRetries(t *testing.T) {
	c := NewCache()
	key := inventoryKey(5)
	boom := errors.New("rpc unavailable")

	_, err := c.Read(context.Background(), key, nil, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	snap := c.Peek(key)
	assert.True(t, snap.IsError())
	assert.Nil(t, snap.Data)
	assert.ErrorIs(t, snap.Err, boom)

	v, err := c.Read(context.Background(), key, nil, func(context.Context) (any, error) {
		return 12, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 12, v)
	assert.True(t, c.Peek(key).Known())
}

func TestCache_UnknownKeyIsNotAbsent(t *testing.T) {
	c := NewCache()
	snap := c.Peek(inventoryKey(99))
	assert.Equal(t, StatusUnknown, snap.Status)
	assert.False(t, snap.Known())
	assert.Nil(t, snap.Data)
}

func TestCache_KeysDoNotCrossContaminate(t *testing.T) {
	c := NewCache()
	five, six := inventoryKey(5), inventoryKey(6)
	releaseFive := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	var got5, got6 any
	go func() {
		defer wg.Done()
		v, err := c.Read(context.Background(), five, nil, func(context.Context) (any, error) {
			<-releaseFive
			return "camp-5", nil
		})
		assert.NoError(t, err)
		got5 = v
	}()
	go func() {
		defer wg.Done()
		v, err := c.Read(context.Background(), six, nil, func(context.Context) (any, error) {
			return "camp-6", nil
		})
		assert.NoError(t, err)
		got6 = v
	}()

	require.Eventually(t, func() bool { return c.Peek(six).Known() }, time.Second, time.Millisecond)
	close(releaseFive)
	wg.Wait()

	assert.Equal(t, "camp-5", got5)
	assert.Equal(t, "camp-6", got6)
	assert.Equal(t, "camp-5", c.Peek(five).Data)
	assert.Equal(t, "camp-6", c.Peek(six).Data)
}

func TestCache_CancelledCallerDoesNotFailEntry(t *testing.T) {
	c := NewCache()
	key := inventoryKey(5)
	ctx, cancel := context.WithCancel(context.Background())
	fetchDone := make(chan struct{})

	go func() {
		assert.Eventually(t, func() bool { return waiters(c, key) == 1 }, time.Second, time.Millisecond)
		cancel()
	}()

	_, err := c.Read(ctx, key, nil, func(fctx context.Context) (any, error) {
		defer close(fetchDone)
		<-fctx.Done()
		return nil, fctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	<-fetchDone
	require.Eventually(t, func() bool { return !c.Peek(key).IsLoading() }, time.Second, time.Millisecond)
	snap := c.Peek(key)
	assert.Equal(t, StatusUnknown, snap.Status)
	assert.NoError(t, snap.Err)
	assert.Zero(t, c.Len())
}

func TestCache_SharedFetchSurvivesOneCallerLeaving(t *testing.T) {
	c := NewCache()
	key := inventoryKey(5)
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		select {
		case <-gate:
			return 7, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	leaver := make(chan error, 1)
	go func() {
		_, err := c.Read(ctx, key, nil, fetch)
		leaver <- err
	}()
	stayer := make(chan any, 1)
	go func() {
		v, err := c.Read(context.Background(), key, nil, fetch)
		assert.NoError(t, err)
		stayer <- v
	}()

	require.Eventually(t, func() bool { return waiters(c, key) == 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaver, context.Canceled)

	close(gate)
	assert.Equal(t, 7, <-stayer)
	assert.True(t, c.Peek(key).Known())
}

func TestCache_InvalidationDuringFetchDiscardsResult(t *testing.T) {
	c := NewCache()
	key := inventoryKey(5)
	gate := make(chan struct{})

	done := make(chan any, 1)
	go func() {
		v, err := c.Read(context.Background(), key, nil, func(context.Context) (any, error) {
			<-gate
			return "stale", nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	require.Eventually(t, func() bool { return waiters(c, key) == 1 }, time.Second, time.Millisecond)
	n := c.Invalidate(func(k Key, _ []any) bool { return k == key })
	assert.Equal(t, 1, n)
	close(gate)

	assert.Equal(t, "stale", <-done)
	assert.Equal(t, StatusUnknown, c.Peek(key).Status)
	assert.Zero(t, c.Len())

	v, err := c.Read(context.Background(), key, nil, func(context.Context) (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestCache_TTLExpiresReadyEntries(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := NewCache(WithTTL(time.Minute), withClock(clock))
	key := inventoryKey(5)

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, _ := c.Read(context.Background(), key, nil, fetch)
	assert.Equal(t, 1, v)
	v, _ = c.Read(context.Background(), key, nil, fetch)
	assert.Equal(t, 1, v)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	v, _ = c.Read(context.Background(), key, nil, fetch)
	assert.Equal(t, 2, v)
}

func TestCache_PurgeCancelsFetchesOfOldChain(t *testing.T) {
	c := NewCache()
	key := inventoryKey(5)
	other := NewKey(sepolia.ChainID, inventoryAddr, "getInventory", big.NewInt(5), uint8(1))

	_, err := c.Read(context.Background(), other, nil, func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Read(context.Background(), key, nil, func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		errc <- err
	}()

	require.Eventually(t, func() bool { return waiters(c, key) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, c.Purge(baseSepolia.ChainID, ErrChainSwitched))
	assert.ErrorIs(t, <-errc, ErrChainSwitched)
	assert.Equal(t, StatusUnknown, c.Peek(key).Status)
	assert.True(t, c.Peek(other).Known())
}

func TestViews_NewRequestSupersedesOld(t *testing.T) {
	c := NewCache()
	v := newViews()
	five, six := inventoryKey(5), inventoryKey(6)

	oldCtx, oldDone := v.begin(context.Background(), "tab-1")
	defer oldDone()
	oldErr := make(chan error, 1)
	go func() {
		_, err := c.Read(oldCtx, five, nil, func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		oldErr <- err
	}()
	require.Eventually(t, func() bool { return waiters(c, five) == 1 }, time.Second, time.Millisecond)

	otherCtx, otherDone := v.begin(context.Background(), "tab-2")
	defer otherDone()

	newCtx, newDone := v.begin(context.Background(), "tab-1")
	assert.ErrorIs(t, <-oldErr, ErrSuperseded)
	assert.NoError(t, otherCtx.Err())

	val, err := c.Read(newCtx, six, nil, func(context.Context) (any, error) {
		return "camp-6", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "camp-6", val)

	require.Eventually(t, func() bool { return !c.Peek(five).IsLoading() }, time.Second, time.Millisecond)
	assert.Equal(t, StatusUnknown, c.Peek(five).Status)
	assert.Equal(t, 1, c.Len())

	newDone()
	oldDone()
	assert.Equal(t, 1, v.len())
}

func TestCache_InvalidateDropsIdleEntries(t *testing.T) {
	c := NewCache()
	for id := int64(1); id <= 3; id++ {
		_, err := c.Read(context.Background(), inventoryKey(id), nil, func(context.Context) (any, error) { return id, nil })
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Len())

	n := c.Invalidate(func(k Key, _ []any) bool { return k != inventoryKey(3) })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, StatusUnknown, c.Peek(inventoryKey(1)).Status)
	assert.True(t, c.Peek(inventoryKey(3)).Known())
}

func TestCache_ExpiredEntriesAreSwept(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := NewCache(WithTTL(time.Second), withClock(clock))

	for id := int64(0); id < 10000; id++ {
		_, err := c.Read(context.Background(), inventoryKey(id), nil, func(context.Context) (any, error) { return id, nil })
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, c.Len(), 10000)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	assert.Equal(t, StatusUnknown, c.Peek(inventoryKey(7)).Status)
	_, err := c.Read(context.Background(), inventoryKey(-1), nil, func(context.Context) (any, error) { return 0, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestCache_BoundedWithoutTTL(t *testing.T) {
	c := NewCache(WithMaxEntries(50))
	for id := int64(0); id < 500; id++ {
		_, err := c.Read(context.Background(), inventoryKey(id), nil, func(context.Context) (any, error) { return id, nil })
		require.NoError(t, err)
		require.LessOrEqual(t, c.Len(), 50)
	}
	assert.True(t, c.Peek(inventoryKey(499)).Known())
}

func TestCache_FailedReadsDoNotAccumulate(t *testing.T) {
	c := NewCache(WithMaxEntries(10))
	boom := errors.New("rpc unavailable")
	for id := int64(0); id < 100; id++ {
		_, err := c.Read(context.Background(), inventoryKey(id), nil, func(context.Context) (any, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}
	assert.LessOrEqual(t, c.Len(), 10)
}
