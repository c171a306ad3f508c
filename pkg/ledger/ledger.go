package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	ReadTTL      time.Duration
	FetchTimeout time.Duration
	PollInterval time.Duration
	Signer       Signer
	Logger       *zap.Logger
}

// Ledger is the transactional read/write façade over registered contracts.
type Ledger struct {
	session     *Session
	cache       *Cache
	views       *views
	invalidator *Invalidator
	tracker     *Tracker
	signer      Signer
	log         *zap.Logger
	unsubscribe func()

	mu        sync.RWMutex
	contracts map[common.Address]*Contract
}

func New(session *Session, cfg Config) *Ledger {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts := []CacheOption{WithTTL(cfg.ReadTTL), WithCacheLogger(log)}
	if cfg.FetchTimeout > 0 {
		opts = append(opts, WithFetchTimeout(cfg.FetchTimeout))
	}
	cache := NewCache(opts...)
	invalidator := NewInvalidator(cache, log)

	l := &Ledger{
		session:     session,
		cache:       cache,
		views:       newViews(),
		invalidator: invalidator,
		tracker:     NewTracker(invalidator, cfg.PollInterval, log),
		signer:      cfg.Signer,
		log:         log,
		contracts:   make(map[common.Address]*Contract),
	}
	l.unsubscribe = session.Subscribe(func(old, next Network) {
		n := cache.Purge(old.ChainID, ErrChainSwitched)
		log.Info("chain switched", zap.String("from", old.Name), zap.String("to", next.Name), zap.Int("purged", n))
	})
	return l
}

// Register makes c available for reads, writes and relaying, with the
// invalidation table for its writes.
func (l *Ledger) Register(c *Contract, table Table) error {
	if err := l.invalidator.Register(c, table); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contracts[c.Address()] = c
	return nil
}

func (l *Ledger) Session() *Session { return l.session }

func (l *Ledger) Network() Network {
	n, _ := l.session.Current()
	return n
}

// Key returns the cache key of a read on the current chain.
func (l *Ledger) Key(c *Contract, function string, args ...any) Key {
	return NewKey(l.session.ChainID(), c.Address(), function, args...)
}

// Read calls a view function through the cache and returns its decoded outputs.
func (l *Ledger) Read(ctx context.Context, c *Contract, function string, args ...any) ([]any, error) {
	key, fetch, err := l.prepare(c, function, args)
	if err != nil {
		return nil, err
	}
	val, err := l.cache.Read(ctx, key, args, fetch)
	if err != nil {
		return nil, err
	}
	return val.([]any), nil
}

// Latest scopes ctx to the newest request of view. A later call for the same
// view cancels the earlier context with ErrSuperseded, so reads made with it
// stop waiting. Call the returned func once the request is over.
func (l *Ledger) Latest(ctx context.Context, view string) (context.Context, context.CancelFunc) {
	return l.views.begin(ctx, view)
}

// Snapshot reports the cached state of a read without fetching.
func (l *Ledger) Snapshot(c *Contract, function string, args ...any) Snapshot {
	return l.cache.Peek(l.Key(c, function, args...))
}

func (l *Ledger) prepare(c *Contract, function string, args []any) (Key, Fetcher, error) {
	data, err := c.Pack(function, args...)
	if err != nil {
		return Key{}, nil, err
	}
	network, backend := l.session.Current()
	key := NewKey(network.ChainID, c.Address(), function, args...)
	to := c.Address()

	fetch := func(ctx context.Context) (any, error) {
		out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			if revert := c.RevertFromError(err); revert != nil {
				return nil, revert
			}
			return nil, fmt.Errorf("call %s.%s: %w", c.Name(), function, err)
		}
		return c.Unpack(function, out)
	}
	return key, fetch, nil
}

// Write signs function(args) with the operator signer and tracks it.
func (l *Ledger) Write(ctx context.Context, c *Contract, function string, args ...any) (*Tx, error) {
	if l.signer == nil {
		return nil, ErrNoSigner
	}
	data, err := c.Pack(function, args...)
	if err != nil {
		return nil, err
	}
	network, backend := l.session.Current()
	to := c.Address()

	sub := Submission{
		ChainID: network.ChainID,
		From:    l.signer.Address(),
		Reader:  backend,
		Send: func(ctx context.Context) (common.Hash, error) {
			return l.signer.SignAndSend(ctx, backend, network.ChainID, to, data)
		},
	}
	return l.tracker.Submit(Write{Contract: c, Function: function, Args: args}, sub), nil
}

// Call is an unsigned contract call for a wallet to sign and send back
// through Relay.
type Call struct {
	ChainID  uint64
	To       common.Address
	Function string
	Data     []byte
}

// Call packs function(args) against the current chain without sending it.
// Writes whose sender matters to the contract go through the user's wallet.
func (l *Ledger) Call(c *Contract, function string, args ...any) (Call, error) {
	data, err := c.Pack(function, args...)
	if err != nil {
		return Call{}, err
	}
	return Call{ChainID: l.session.ChainID(), To: c.Address(), Function: function, Data: data}, nil
}

// Relay broadcasts a transaction signed by the user's wallet and tracks it
// like any other write. The call is decoded against the registered contracts
// so the right reads get invalidated on confirmation.
func (l *Ledger) Relay(ctx context.Context, raw []byte) (*Tx, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	network, backend := l.session.Current()
	if tx.ChainId() == nil || tx.ChainId().Uint64() != network.ChainID {
		return nil, ErrWrongChain
	}
	if tx.To() == nil {
		return nil, ErrUnknownContract
	}

	l.mu.RLock()
	c, ok := l.contracts[*tx.To()]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownContract
	}

	function, args, err := c.DecodeCall(tx.Data())
	if err != nil {
		return nil, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("recover sender: %w", err)
	}

	sub := Submission{
		ChainID: network.ChainID,
		From:    from,
		Reader:  backend,
		Send: func(ctx context.Context) (common.Hash, error) {
			if err := backend.SendTransaction(ctx, tx); err != nil {
				return common.Hash{}, err
			}
			return tx.Hash(), nil
		},
	}
	return l.tracker.Submit(Write{Contract: c, Function: function, Args: args}, sub), nil
}

// Tx finds a transaction tracked by this process.
func (l *Ledger) Tx(id uuid.UUID) (*Tx, bool) { return l.tracker.Lookup(id) }

func (l *Ledger) Observe(o Observer) { l.tracker.Observe(o) }

// Close abandons live transactions and detaches from the session.
func (l *Ledger) Close() {
	l.unsubscribe()
	l.tracker.Close()
}

// ReadAs reads and decodes in one step.
func ReadAs[T any](ctx context.Context, l *Ledger, c *Contract, function string, decode func([]any) (T, error), args ...any) (T, error) {
	out, err := l.Read(ctx, c, function, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode(out)
}
