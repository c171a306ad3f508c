package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Sender links a read argument to the transaction sender rather than to one
// of the write's arguments.
const Sender = -1

// ArgLink says read argument Read must equal write argument Write for the
// cached read to be affected.
type ArgLink struct {
	Read  int
	Write int
}

// Target is one read function affected by a write. With no links every cached
// call of Function is affected.
type Target struct {
	Function string
	Links    []ArgLink
}

// Table maps a write function to the reads it makes stale.
type Table map[string][]Target

// Invalidator drops cached reads once a write has been confirmed.
type Invalidator struct {
	cache *Cache
	log   *zap.Logger

	mu     sync.RWMutex
	tables map[common.Address]Table
}

func NewInvalidator(cache *Cache, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{cache: cache, log: log, tables: make(map[common.Address]Table)}
}

// Register installs the table for c after checking every function and
// argument index against its ABI.
func (i *Invalidator) Register(c *Contract, table Table) error {
	for write, targets := range table {
		writeArgs := c.inputCount(write)
		if writeArgs < 0 {
			return fmt.Errorf("invalidation table %s: unknown write %s", c.Name(), write)
		}
		for _, t := range targets {
			readArgs := c.inputCount(t.Function)
			if readArgs < 0 {
				return fmt.Errorf("invalidation table %s: unknown read %s", c.Name(), t.Function)
			}
			for _, l := range t.Links {
				if l.Read < 0 || l.Read >= readArgs {
					return fmt.Errorf("invalidation table %s: %s has no argument %d", c.Name(), t.Function, l.Read)
				}
				if l.Write != Sender && (l.Write < 0 || l.Write >= writeArgs) {
					return fmt.Errorf("invalidation table %s: %s has no argument %d", c.Name(), write, l.Write)
				}
			}
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.tables[c.Address()] = table
	return nil
}

// Apply invalidates the reads affected by a confirmed write on chainID and
// returns how many cache entries were dropped.
func (i *Invalidator) Apply(chainID uint64, w Write, from common.Address) int {
	i.mu.RLock()
	targets := i.tables[w.Contract.Address()][w.Function]
	i.mu.RUnlock()
	if len(targets) == 0 {
		return 0
	}

	addr := w.Contract.Address()
	n := i.cache.Invalidate(func(k Key, readArgs []any) bool {
		if k.ChainID != chainID || k.Contract != addr {
			return false
		}
		for _, t := range targets {
			if t.Function == k.Function && linked(t.Links, readArgs, w.Args, from) {
				return true
			}
		}
		return false
	})
	i.log.Debug("invalidated reads",
		zap.String("contract", w.Contract.Name()),
		zap.String("write", w.Function),
		zap.Int("entries", n),
	)
	return n
}

func linked(links []ArgLink, readArgs, writeArgs []any, from common.Address) bool {
	for _, l := range links {
		if l.Read >= len(readArgs) {
			return false
		}
		var want any = from
		if l.Write != Sender {
			if l.Write >= len(writeArgs) {
				return false
			}
			want = writeArgs[l.Write]
		}
		if argString(readArgs[l.Read]) != argString(want) {
			return false
		}
	}
	return true
}
