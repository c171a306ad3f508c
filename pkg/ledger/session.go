package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the JSON-RPC surface used for reads, signing and tracking.
// *ethclient.Client satisfies it.
type Backend interface {
	ReceiptReader
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
}

// Network is a chain the service can talk to.
type Network struct {
	ChainID     uint64 `yaml:"chain_id" json:"chain_id"`
	Name        string `yaml:"name" json:"name"`
	RPCURL      string `yaml:"rpc_url" json:"-"`
	ExplorerURL string `yaml:"explorer_url" json:"explorer_url"`
}

// TxURL links hash on the network's block explorer, or returns "".
func (n Network) TxURL(hash common.Hash) string {
	if n.ExplorerURL == "" || hash == (common.Hash{}) {
		return ""
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash.Hex()
}

// Dialer opens a backend for a network.
type Dialer func(ctx context.Context, n Network) (Backend, error)

// Session is the process-wide chain selection. It is injected wherever the
// current chain matters; there is no package-level default.
type Session struct {
	dial Dialer

	mu       sync.RWMutex
	networks map[uint64]Network
	current  Network
	backend  Backend
	subs     map[int]func(old, new Network)
	nextSub  int
}

func NewSession(networks []Network, current Network, backend Backend, dial Dialer) *Session {
	s := &Session{
		dial:     dial,
		networks: make(map[uint64]Network, len(networks)+1),
		current:  current,
		backend:  backend,
		subs:     make(map[int]func(old, new Network)),
	}
	for _, n := range networks {
		s.networks[n.ChainID] = n
	}
	s.networks[current.ChainID] = current
	return s
}

// Current returns the selected network and its backend as one consistent pair.
func (s *Session) Current() (Network, Backend) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.backend
}

func (s *Session) ChainID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ChainID
}

func (s *Session) Networks() []Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Network, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func (s *Session) Network(chainID uint64) (Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.networks[chainID]
	return n, ok
}

// Subscribe registers fn to run after every chain switch.
func (s *Session) Subscribe(fn func(old, new Network)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Switch selects chainID, dialing its backend first. Switching to the current
// chain is a no-op.
func (s *Session) Switch(ctx context.Context, chainID uint64) (Network, error) {
	s.mu.RLock()
	target, ok := s.networks[chainID]
	same := s.current.ChainID == chainID
	s.mu.RUnlock()

	if !ok {
		return Network{}, fmt.Errorf("%w %d", ErrUnsupportedChain, chainID)
	}
	if same {
		return target, nil
	}
	if s.dial == nil {
		return Network{}, fmt.Errorf("ledger: no dialer for chain %d", chainID)
	}
	backend, err := s.dial(ctx, target)
	if err != nil {
		return Network{}, fmt.Errorf("dial %s: %w", target.Name, err)
	}
	s.Use(target, backend)
	return target, nil
}

// Use installs an already dialed backend and notifies subscribers.
func (s *Session) Use(n Network, backend Backend) {
	s.mu.Lock()
	old := s.current
	s.current = n
	s.backend = backend
	s.networks[n.ChainID] = n
	subs := make([]func(old, new Network), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if old.ChainID == n.ChainID {
		return
	}
	for _, fn := range subs {
		fn(old, n)
	}
}
