package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage is the lifecycle position of a write.
type Stage int

const (
	StagePending Stage = iota + 1
	StageConfirming
	StageSuccess
	StageError
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageConfirming:
		return "confirming"
	case StageSuccess:
		return "success"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Stage) Terminal() bool { return s == StageSuccess || s == StageError }

// Write is a state-changing contract call.
type Write struct {
	Contract *Contract
	Function string
	Args     []any
}

// ReceiptReader is what the tracker needs from a chain after submission.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Submission describes how a write reaches the chain. Send blocks until the
// ledger accepted the transaction (or the signer refused it).
type Submission struct {
	ChainID uint64
	From    common.Address
	Reader  ReceiptReader
	Send    func(ctx context.Context) (common.Hash, error)
}

// TxSnapshot is an immutable view of a Tx handed to observers.
type TxSnapshot struct {
	ID          uuid.UUID
	ChainID     uint64
	Contract    string
	Address     common.Address
	Function    string
	Args        []any
	From        common.Address
	Hash        common.Hash
	Stage       Stage
	BlockNumber uint64
	Receipt     *types.Receipt
	Err         *TxError
	Abandoned   bool
	UpdatedAt   time.Time
}

func (s TxSnapshot) HasHash() bool { return s.Hash != (common.Hash{}) }

// Observer is notified of every transition, in order, from the goroutine
// driving the transaction.
type Observer func(TxSnapshot)

// Tx is a tracked write.
type Tx struct {
	id      uuid.UUID
	chainID uint64
	write   Write
	from    common.Address

	mu        sync.RWMutex
	stage     Stage
	hash      common.Hash
	receipt   *types.Receipt
	err       *TxError
	abandoned bool
	updatedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Tx) ID() uuid.UUID { return t.id }

func (t *Tx) Stage() Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stage
}

// Hash returns the transaction hash once the ledger has accepted it.
func (t *Tx) Hash() (common.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hash, t.hash != (common.Hash{})
}

func (t *Tx) Receipt() *types.Receipt {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.receipt
}

// Err returns the terminal error, ErrTrackingAbandoned if tracking stopped
// early, or nil.
func (t *Tx) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.err != nil {
		return t.err
	}
	if t.abandoned {
		return ErrTrackingAbandoned
	}
	return nil
}

func (t *Tx) Done() <-chan struct{} { return t.done }

// Wait blocks until tracking ends and returns Err.
func (t *Tx) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.Err()
	}
}

// Abandon stops local tracking. The transaction itself is not affected and
// its stage is left as it was.
func (t *Tx) Abandon() {
	t.mu.Lock()
	if t.stage.Terminal() {
		t.mu.Unlock()
		return
	}
	t.abandoned = true
	t.mu.Unlock()
	t.cancel()
}

func (t *Tx) Snapshot() TxSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := TxSnapshot{
		ID:        t.id,
		ChainID:   t.chainID,
		Contract:  t.write.Contract.Name(),
		Address:   t.write.Contract.Address(),
		Function:  t.write.Function,
		Args:      t.write.Args,
		From:      t.from,
		Hash:      t.hash,
		Stage:     t.stage,
		Receipt:   t.receipt,
		Err:       t.err,
		Abandoned: t.abandoned,
		UpdatedAt: t.updatedAt,
	}
	if t.receipt != nil && t.receipt.BlockNumber != nil {
		s.BlockNumber = t.receipt.BlockNumber.Uint64()
	}
	return s
}

// Tracker drives writes through pending, confirming and a terminal stage.
type Tracker struct {
	invalidator  *Invalidator
	pollInterval time.Duration
	log          *zap.Logger
	now          func() time.Time

	mu        sync.RWMutex
	observers []Observer
	live      map[uuid.UUID]*Tx
	recent    map[uuid.UUID]*Tx
	wg        sync.WaitGroup
}

func NewTracker(invalidator *Invalidator, pollInterval time.Duration, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Tracker{
		invalidator:  invalidator,
		pollInterval: pollInterval,
		log:          log,
		now:          time.Now,
		live:         make(map[uuid.UUID]*Tx),
		recent:       make(map[uuid.UUID]*Tx),
	}
}

func (t *Tracker) Observe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// Submit starts tracking w and returns immediately with the Tx in the
// pending stage. The lifecycle belongs to the tracker, never to the request
// that caused it; use Tx.Abandon to stop it.
func (t *Tracker) Submit(w Write, sub Submission) *Tx {
	runCtx, cancel := context.WithCancel(context.Background())
	tx := &Tx{
		id:        uuid.New(),
		chainID:   sub.ChainID,
		write:     w,
		from:      sub.From,
		stage:     StagePending,
		updatedAt: t.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	t.mu.Lock()
	t.live[tx.id] = tx
	t.mu.Unlock()

	t.notify(tx)

	t.wg.Add(1)
	go t.run(runCtx, tx, sub)
	return tx
}

// Lookup finds a transaction submitted by this tracker.
func (t *Tracker) Lookup(id uuid.UUID) (*Tx, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tx, ok := t.live[id]; ok {
		return tx, true
	}
	tx, ok := t.recent[id]
	return tx, ok
}

// Close abandons every live transaction and waits for their goroutines.
func (t *Tracker) Close() {
	t.mu.RLock()
	live := make([]*Tx, 0, len(t.live))
	for _, tx := range t.live {
		live = append(live, tx)
	}
	t.mu.RUnlock()

	for _, tx := range live {
		tx.Abandon()
	}
	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context, tx *Tx, sub Submission) {
	defer t.wg.Done()
	defer tx.cancel()
	defer close(tx.done)
	defer t.retire(tx)

	log := t.log.With(zap.Stringer("tx_id", tx.id), zap.String("function", tx.write.Function))

	hash, err := sub.Send(ctx)
	if err != nil {
		if t.abandoned(tx) {
			t.notify(tx)
			return
		}
		t.fail(tx, classify(err, tx.write.Contract))
		log.Info("transaction failed before broadcast", zap.Error(err))
		return
	}

	t.transition(tx, func() {
		tx.stage = StageConfirming
		tx.hash = hash
	})
	log = log.With(zap.Stringer("hash", hash))

	receipt, err := waitMined(ctx, sub.Reader, hash, t.pollInterval, log)
	if err != nil {
		if t.abandoned(tx) {
			t.notify(tx)
			return
		}
		t.fail(tx, &TxError{Cause: CauseNetwork, Message: err.Error(), err: err})
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		txErr := t.revertCause(ctx, tx, sub, receipt)
		t.transition(tx, func() {
			tx.receipt = receipt
			tx.stage = StageError
			tx.err = txErr
		})
		log.Info("transaction reverted", zap.String("reason", txErr.Message))
		return
	}

	// reads must be stale-free before anyone sees success
	n := t.invalidator.Apply(sub.ChainID, tx.write, sub.From)
	t.transition(tx, func() {
		tx.receipt = receipt
		tx.stage = StageSuccess
	})
	log.Info("transaction confirmed", zap.Uint64("block", receipt.BlockNumber.Uint64()), zap.Int("invalidated", n))
}

func (t *Tracker) revertCause(ctx context.Context, tx *Tx, sub Submission, receipt *types.Receipt) *TxError {
	reverted := &TxError{Cause: CauseReverted, Message: "transaction reverted"}
	data, err := tx.write.Contract.Pack(tx.write.Function, tx.write.Args...)
	if err != nil {
		return reverted
	}
	to := tx.write.Contract.Address()
	_, err = sub.Reader.CallContract(ctx, ethereum.CallMsg{From: sub.From, To: &to, Data: data}, receipt.BlockNumber)
	if err == nil {
		return reverted
	}
	if revert := tx.write.Contract.RevertFromError(err); revert != nil {
		return &TxError{Cause: CauseReverted, Message: revert.Error(), err: revert}
	}
	return reverted
}

func (t *Tracker) abandoned(tx *Tx) bool {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	return tx.abandoned
}

func (t *Tracker) fail(tx *Tx, err *TxError) {
	t.transition(tx, func() {
		tx.stage = StageError
		tx.err = err
	})
}

func (t *Tracker) transition(tx *Tx, apply func()) {
	tx.mu.Lock()
	apply()
	tx.updatedAt = t.now()
	tx.mu.Unlock()
	t.notify(tx)
}

func (t *Tracker) notify(tx *Tx) {
	snap := tx.Snapshot()
	t.mu.RLock()
	observers := append([]Observer(nil), t.observers...)
	t.mu.RUnlock()
	for _, o := range observers {
		o(snap)
	}
}

func (t *Tracker) retire(tx *Tx) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, tx.id)
	t.recent[tx.id] = tx
	if len(t.recent) > maxRecent {
		for id, old := range t.recent {
			if old != tx {
				delete(t.recent, id)
				break
			}
		}
	}
}

const maxRecent = 1024

// waitMined polls for the receipt of hash until it is available or ctx ends.
func waitMined(ctx context.Context, r ReceiptReader, hash common.Hash, every time.Duration, log *zap.Logger) (*types.Receipt, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		receipt, err := r.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			log.Debug("receipt lookup failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
