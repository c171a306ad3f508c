package ledger

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of one cached read.
type Status int

const (
	// StatusUnknown means nothing is known yet. It never means "confirmed absent".
	StatusUnknown Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of a cached read.
type Snapshot struct {
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
}

func (s Snapshot) IsLoading() bool { return s.Status == StatusLoading }
func (s Snapshot) IsError() bool   { return s.Status == StatusError }
func (s Snapshot) Known() bool     { return s.Status == StatusReady }

// Fetcher performs the remote read for a cache miss.
type Fetcher func(ctx context.Context) (any, error)

var errAbandoned = errors.New("ledger: read abandoned by all waiters")

type flight struct {
	id      uint64
	gen     uint64
	ctx     context.Context
	cancel  context.CancelCauseFunc
	waiters int
	done    bool
	val     any
	err     error
}

type entry struct {
	key       Key
	args      []any
	status    Status
	data      any
	err       error
	gen       uint64
	updatedAt time.Time
	flight    *flight
}

// Cache deduplicates and memoizes ledger reads.
//
// Identical concurrent reads share one fetch. A fetch is owned by the cache,
// not by any single caller: a caller whose context ends simply stops waiting,
// and the fetch is cancelled only once nobody is waiting for it anymore.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	flights  singleflight.Group
	flightID uint64

	ttl       time.Duration
	timeout   time.Duration
	max       int
	lastSweep time.Time
	now       func() time.Time
	log       *zap.Logger
}

const defaultMaxEntries = 10000

type CacheOption func(*Cache)

// WithTTL expires ready entries after d. Zero keeps them until invalidated.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = d }
}

// WithFetchTimeout bounds every remote read.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.timeout = d }
}

// WithMaxEntries caps how many reads the cache remembers. When full, expired
// and failed entries go first, then the least recently updated idle ones.
// Zero or less disables the cap.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) { c.max = n }
}

func WithCacheLogger(log *zap.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

func withClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[Key]*entry),
		timeout: 15 * time.Second,
		max:     defaultMaxEntries,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the cached value for key, fetching it when missing, expired,
// invalidated or previously failed.
func (c *Cache) Read(ctx context.Context, key Key, args []any, fetch Fetcher) (any, error) {
	for {
		c.mu.Lock()
		e := c.entryLocked(key, args)
		if e.status == StatusReady && !c.expiredLocked(e) {
			data := e.data
			c.mu.Unlock()
			return data, nil
		}
		f := e.flight
		if f == nil || f.done || f.gen != e.gen {
			f = c.startFlightLocked(e)
		}
		f.waiters++
		c.mu.Unlock()

		ch := c.flights.DoChan(strconv.FormatUint(f.id, 10), func() (any, error) {
			return c.run(e, f, fetch)
		})

		select {
		case <-ctx.Done():
			c.leave(f)
			return nil, context.Cause(ctx)
		case res := <-ch:
			c.mu.Lock()
			f.waiters--
			c.mu.Unlock()
			if errors.Is(res.Err, errAbandoned) && ctx.Err() == nil {
				// joined a fetch that was being torn down; start a fresh one
				continue
			}
			return res.Val, res.Err
		}
	}
}

// Peek reports the current state of key without fetching.
func (c *Cache) Peek(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Status: StatusUnknown}
	}
	if e.status == StatusReady && c.expiredLocked(e) {
		if e.flight == nil {
			delete(c.entries, key)
		}
		return Snapshot{Status: StatusUnknown}
	}
	return Snapshot{Status: e.status, Data: e.data, Err: e.err, UpdatedAt: e.updatedAt}
}

// Invalidate discards every entry matched by match and returns how many were
// dropped. Fetches already in flight for those entries still answer their
// waiters but never repopulate the cache; their entry goes away once the
// fetch ends.
func (c *Cache) Invalidate(match func(key Key, args []any) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if !match(k, e.args) {
			continue
		}
		n++
		e.gen++
		if !e.busy() {
			delete(c.entries, k)
			continue
		}
		e.status = StatusUnknown
		e.data = nil
		e.err = nil
		e.updatedAt = c.now()
	}
	return n
}

// Purge drops every entry of chainID and cancels their fetches with cause.
func (c *Cache) Purge(chainID uint64, cause error) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if k.ChainID != chainID {
			continue
		}
		if e.flight != nil && !e.flight.done {
			e.flight.cancel(cause)
		}
		e.gen++
		delete(c.entries, k)
		n++
	}
	if n > 0 {
		c.log.Debug("purged cached reads", zap.Uint64("chain_id", chainID), zap.Int("entries", n))
	}
	return n
}

// Len returns the number of tracked entries, whatever their state.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) entryLocked(key Key, args []any) *entry {
	e, ok := c.entries[key]
	if !ok {
		c.sweepLocked()
		e = &entry{key: key, args: args}
		c.entries[key] = e
	}
	return e
}

func (e *entry) busy() bool {
	return e.flight != nil && !e.flight.done
}

// sweepLocked drops idle entries that carry nothing worth keeping. It runs at
// most once per TTL unless the cache is full, in which case it also evicts the
// oldest idle entries down to nine tenths of the cap.
func (c *Cache) sweepLocked() {
	full := c.max > 0 && len(c.entries) >= c.max
	due := c.ttl > 0 && c.now().Sub(c.lastSweep) >= c.ttl
	if !full && !due {
		return
	}
	c.lastSweep = c.now()

	before := len(c.entries)
	for k, e := range c.entries {
		if e.busy() {
			continue
		}
		if e.status != StatusReady || c.expiredLocked(e) {
			delete(c.entries, k)
		}
	}

	if c.max > 0 && len(c.entries) >= c.max {
		idle := make([]*entry, 0, len(c.entries))
		for _, e := range c.entries {
			if !e.busy() {
				idle = append(idle, e)
			}
		}
		slices.SortFunc(idle, func(a, b *entry) int { return a.updatedAt.Compare(b.updatedAt) })
		target := c.max * 9 / 10
		for _, e := range idle {
			if len(c.entries) <= target {
				break
			}
			delete(c.entries, e.key)
		}
	}

	if n := before - len(c.entries); n > 0 {
		c.log.Debug("swept cached reads", zap.Int("dropped", n), zap.Int("kept", len(c.entries)))
	}
}

// forgetLocked removes e once it is idle and holds no value.
func (c *Cache) forgetLocked(e *entry) {
	if e.flight == nil && e.status == StatusUnknown && c.entries[e.key] == e {
		delete(c.entries, e.key)
	}
}

func (c *Cache) expiredLocked(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.updatedAt) > c.ttl
}

// startFlightLocked begins a fetch owned by the cache. Its context is rooted
// at Background so no caller's request state is carried into it.
func (c *Cache) startFlightLocked(e *entry) *flight {
	c.flightID++
	fctx, cancel := context.WithCancelCause(context.Background())
	f := &flight{id: c.flightID, gen: e.gen, ctx: fctx, cancel: cancel}
	e.flight = f
	e.status = StatusLoading
	e.err = nil
	return f
}

func (c *Cache) leave(f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters <= 0 && !f.done {
		f.cancel(errAbandoned)
	}
}

func (c *Cache) run(e *entry, f *flight, fetch Fetcher) (any, error) {
	c.mu.Lock()
	if f.done {
		// singleflight forgot the key between our lookup and DoChan
		val, err := f.val, f.err
		c.mu.Unlock()
		return val, err
	}
	c.mu.Unlock()

	ctx := f.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := fetch(ctx)
	if f.ctx.Err() != nil {
		if cause := context.Cause(f.ctx); cause != nil {
			data, err = nil, cause
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer f.cancel(context.Canceled)

	f.done = true
	f.val, f.err = data, err
	if e.flight == f {
		e.flight = nil
	}
	if f.gen != e.gen {
		c.forgetLocked(e)
		return data, err
	}

	switch {
	case errors.Is(err, errAbandoned):
		if e.data != nil {
			e.status = StatusReady
		} else {
			e.status = StatusUnknown
			c.forgetLocked(e)
		}
	case err != nil:
		e.status = StatusError
		e.data = nil
		e.err = err
		e.updatedAt = c.now()
		c.log.Debug("ledger read failed", zap.Stringer("key", e.key), zap.Error(err))
	default:
		e.status = StatusReady
		e.data = data
		e.err = nil
		e.updatedAt = c.now()
	}
	return data, err
}
