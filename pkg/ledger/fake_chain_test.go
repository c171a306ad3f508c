package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const inventoryABI = `[
  {"type":"function","name":"getInventory","stateMutability":"view",
   "inputs":[{"name":"_campId","type":"uint256"},{"name":"_bloodType","type":"uint8"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"updateInventory","stateMutability":"nonpayable",
   "inputs":[{"name":"_campId","type":"uint256"},{"name":"_bloodType","type":"uint8"},{"name":"_quantity","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"isRegistered","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"register","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"event","name":"InventoryUpdated","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"bloodType","type":"uint8","indexed":false},{"name":"quantity","type":"uint256","indexed":false}]},
  {"type":"error","name":"BloodCamp__CampNotOwner","inputs":[]}
]`

var (
	inventoryAddr = common.HexToAddress("0x4bC9b1c4D1eA3E0c5f5b0aF0E8aC3bD2A1f00001")
	operatorAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	strangerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

var inventoryTable = Table{
	"updateInventory": {{Function: "getInventory", Links: []ArgLink{{Read: 0, Write: 0}}}},
	"register":        {{Function: "isRegistered", Links: []ArgLink{{Read: 0, Write: Sender}}}},
}

func newInventoryContract(t *testing.T) *Contract {
	t.Helper()
	c, err := NewContract("BloodCamp", inventoryAddr, inventoryABI)
	require.NoError(t, err)
	return c
}

type revertErr struct{ data string }

func (e revertErr) Error() string          { return "execution reverted" }
func (e revertErr) ErrorData() interface{} { return e.data }

// fakeChain executes the inventory contract in memory.
type fakeChain struct {
	contract *Contract
	owner    common.Address

	mu           sync.Mutex
	inventory    map[string]*big.Int
	registered   map[common.Address]bool
	receipts     map[common.Hash]*types.Receipt
	holdReceipts bool
	calls        map[string]int
	block        int64
	nonce        uint64
	onCall       func(ctx context.Context, function string, args []any) error
}

func newFakeChain(c *Contract) *fakeChain {
	return &fakeChain{
		contract:   c,
		owner:      operatorAddr,
		inventory:  make(map[string]*big.Int),
		registered: make(map[common.Address]bool),
		receipts:   make(map[common.Hash]*types.Receipt),
		calls:      make(map[string]int),
		block:      100,
	}
}

func cell(campID int64, bloodType uint8) string {
	return fmt.Sprintf("%d/%d", campID, bloodType)
}

func (f *fakeChain) setInventory(campID int64, bloodType uint8, qty int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory[cell(campID, bloodType)] = big.NewInt(qty)
}

func (f *fakeChain) callCount(function string, args ...any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[function+"("+canonicalArgs(args)+")"]
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	function, args, err := f.contract.DecodeCall(call.Data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[function+"("+canonicalArgs(args)+")"]++
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, function, args); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	outputs := f.contract.ABI().Methods[function].Outputs
	switch function {
	case "getInventory":
		id := args[0].(*big.Int)
		qty, ok := f.inventory[cell(id.Int64(), args[1].(uint8))]
		if !ok {
			qty = new(big.Int)
		}
		return outputs.Pack(qty)
	case "isRegistered":
		return outputs.Pack(f.registered[args[0].(common.Address)])
	case "updateInventory":
		if call.From != f.owner {
			sel := f.contract.ABI().Errors["BloodCamp__CampNotOwner"].ID
			return nil, revertErr{data: hexutil.Encode(sel[:4])}
		}
		return nil, nil
	}
	return nil, nil
}

func (f *fakeChain) submit(from common.Address, data []byte) (common.Hash, error) {
	function, args, err := f.contract.DecodeCall(data)
	if err != nil {
		return common.Hash{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nonce++
	f.block++
	hash := crypto.Keccak256Hash(data, new(big.Int).SetUint64(f.nonce).Bytes())
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(f.block),
	}

	switch function {
	case "updateInventory":
		if from != f.owner {
			receipt.Status = types.ReceiptStatusFailed
			break
		}
		id, bloodType, qty := args[0].(*big.Int), args[1].(uint8), args[2].(*big.Int)
		f.inventory[cell(id.Int64(), bloodType)] = qty
		ev := f.contract.ABI().Events["InventoryUpdated"]
		payload, err := ev.Inputs.NonIndexed().Pack(bloodType, qty)
		if err != nil {
			return common.Hash{}, err
		}
		receipt.Logs = []*types.Log{{
			Address: f.contract.Address(),
			Topics:  []common.Hash{ev.ID, common.BigToHash(id)},
			Data:    payload,
		}}
	case "register":
		f.registered[from] = true
	}

	if !f.holdReceipts {
		f.receipts[hash] = receipt
	}
	return hash, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}
	_, err = f.submit(from, tx.Data())
	return err
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 0, nil }
func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error)             { return big.NewInt(1), nil }
func (f *fakeChain) SuggestGasTipCap(context.Context) (*big.Int, error)            { return big.NewInt(1), nil }
func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) { return 21000, nil }
func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.Header{Number: big.NewInt(f.block)}, nil
}

// fakeSigner stands in for a wallet. reject simulates the user pressing "reject".
type fakeSigner struct {
	chain  *fakeChain
	from   common.Address
	reject bool
	onSend func(ctx context.Context)
}

func (s *fakeSigner) Address() common.Address { return s.from }

func (s *fakeSigner) SignAndSend(ctx context.Context, _ Backend, _ uint64, _ common.Address, data []byte) (common.Hash, error) {
	if s.onSend != nil {
		s.onSend(ctx)
	}
	if s.reject {
		return common.Hash{}, ErrUserRejected
	}
	return s.chain.submit(s.from, data)
}

var (
	baseSepolia = Network{ChainID: 84532, Name: "base-sepolia", ExplorerURL: "https://sepolia.basescan.org"}
	sepolia     = Network{ChainID: 11155111, Name: "sepolia", ExplorerURL: "https://sepolia.etherscan.io"}
)

type harness struct {
	chain    *fakeChain
	contract *Contract
	ledger   *Ledger
	signer   *fakeSigner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c := newInventoryContract(t)
	chain := newFakeChain(c)
	signer := &fakeSigner{chain: chain, from: operatorAddr}
	session := NewSession([]Network{baseSepolia, sepolia}, baseSepolia, chain, nil)
	l := New(session, Config{PollInterval: 5 * time.Millisecond, Signer: signer})
	require.NoError(t, l.Register(c, inventoryTable))
	t.Cleanup(l.Close)
	return &harness{chain: chain, contract: c, ledger: l, signer: signer}
}
