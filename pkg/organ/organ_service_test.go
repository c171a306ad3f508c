package organ

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/pkg/ledger"
	"crypto/ecdsa"
	"errors"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chainID = 84532

var (
	organAddr    = common.HexToAddress("0x7A3bC5a9B4d1f0E2c3D4e5F60718293A4b5C6d7E")
	operatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type revertErr struct{ data string }

func (e revertErr) Error() string          { return "execution reverted" }
func (e revertErr) ErrorData() interface{} { return e.data }

// organChain executes the OrganDonation contract in memory.
type organChain struct {
	contract *ledger.Contract

	mu        sync.Mutex
	hospitals []Hospital
	requests  []Request
	donors    map[common.Address]Donor
	receipts  map[common.Hash]*types.Receipt
	reads     map[string]int
	block     int64
}

func newOrganChain(t *testing.T) *organChain {
	t.Helper()
	c, err := NewContract(organAddr)
	require.NoError(t, err)
	return &organChain{
		contract: c,
		donors:   make(map[common.Address]Donor),
		receipts: make(map[common.Hash]*types.Receipt),
		reads:    make(map[string]int),
	}
}

func (c *organChain) revert(name string) error {
	id := c.contract.ABI().Errors["OrganDonation__"+name].ID
	return revertErr{data: hexutil.Encode(id[:4])}
}

// check validates a state change the way the contract's modifiers would.
func (c *organChain) check(from common.Address, fn string, args []any) error {
	switch fn {
	case "registerDonor":
		if _, ok := c.donors[from]; ok {
			return c.revert("DonorAlreadyRegistered")
		}
	case "approveAsDonor":
		donor, ok := c.donors[args[0].(common.Address)]
		if !ok {
			return c.revert("DonorNotRegistered")
		}
		if donor.NextOfKin != from {
			return c.revert("NotNextOfKin")
		}
	}
	return nil
}

func (c *organChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	fn, args, err := c.contract.DecodeCall(call.Data)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads[fn]++

	outputs := c.contract.ABI().Methods[fn].Outputs
	switch fn {
	case "getAllHospitals":
		return outputs.Pack(c.hospitals)
	case "getAllRequests":
		return outputs.Pack(c.requests)
	case "getDonor":
		return outputs.Pack(c.donors[args[0].(common.Address)])
	case "isOrganAvailable":
		donor := c.donors[args[0].(common.Address)]
		available := false
		if donor.IsActive && donor.NextOfKinApproval {
			for _, o := range donor.Organs {
				available = available || o == args[1].(string)
			}
		}
		return outputs.Pack(available)
	}
	if err := c.check(call.From, fn, args); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *organChain) execute(from common.Address, hash common.Hash, data []byte) error {
	fn, args, err := c.contract.DecodeCall(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block++

	var logs []*types.Log
	status := types.ReceiptStatusSuccessful
	if c.check(from, fn, args) != nil {
		status = types.ReceiptStatusFailed
	} else {
		switch fn {
		case "registerHospital":
			c.hospitals = append(c.hospitals, Hospital{Id: args[0].(*big.Int), Name: args[1].(string), City: args[2].(string), HospitalAddress: from})
		case "createOrganRequest":
			c.requests = append(c.requests, Request{
				Id:           args[1].(*big.Int),
				HospitalId:   args[0].(*big.Int),
				OrganType:    args[2].(string),
				BloodType:    args[3].(string),
				UrgencyLevel: args[4].(*big.Int),
				Recipient:    args[5].(common.Address),
				IsActive:     true,
			})
			ev := c.contract.ABI().Events["OrganRequestCreated"]
			payload, err := ev.Inputs.NonIndexed().Pack(args[2], args[4])
			if err != nil {
				return err
			}
			logs = append(logs, &types.Log{
				Address: c.contract.Address(),
				Topics:  []common.Hash{ev.ID, common.BigToHash(args[1].(*big.Int)), common.BigToHash(args[0].(*big.Int))},
				Data:    payload,
			})
		case "registerDonor":
			c.donors[from] = Donor{Organs: args[0].([]string), NextOfKin: args[1].(common.Address), IpfsHealthRecords: args[2].(string), IsActive: true}
		case "approveAsDonor":
			addr := args[0].(common.Address)
			donor := c.donors[addr]
			donor.NextOfKinApproval = true
			c.donors[addr] = donor
		}
	}
	c.receipts[hash] = &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(c.block), Logs: logs}
	return nil
}

func (c *organChain) readCount(fn string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[fn]
}

func (c *organChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}
	return c.execute(from, tx.Hash(), tx.Data())
}

func (c *organChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (c *organChain) PendingNonceAt(context.Context, common.Address) (uint64, error)  { return 0, nil }
func (c *organChain) SuggestGasPrice(context.Context) (*big.Int, error)               { return big.NewInt(1), nil }
func (c *organChain) SuggestGasTipCap(context.Context) (*big.Int, error)              { return big.NewInt(1), nil }
func (c *organChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) { return &types.Header{}, nil }
func (c *organChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error)   { return 21000, nil }

type operator struct {
	chain *organChain
	n     int64
	mu    sync.Mutex
}

func (o *operator) Address() common.Address { return operatorAddr }

func (o *operator) SignAndSend(_ context.Context, _ ledger.Backend, _ uint64, _ common.Address, data []byte) (common.Hash, error) {
	o.mu.Lock()
	o.n++
	hash := crypto.Keccak256Hash(data, big.NewInt(o.n).Bytes())
	o.mu.Unlock()
	return hash, o.chain.execute(operatorAddr, hash, data)
}

type harness struct {
	svc   OrganService
	repo  OrganRepository
	chain *organChain
	l     *ledger.Ledger
	nonce map[common.Address]uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	chain := newOrganChain(t)
	session := ledger.NewSession(nil, ledger.Network{ChainID: chainID, Name: "base-sepolia"}, chain, nil)
	l := ledger.New(session, ledger.Config{PollInterval: 5 * time.Millisecond, Signer: &operator{chain: chain}})
	t.Cleanup(l.Close)

	repo, err := NewOrganRepository(l, chain.contract)
	require.NoError(t, err)
	return &harness{
		svc:   NewOrganService(repo, nil, zap.NewNop()),
		repo:  repo,
		chain: chain,
		l:     l,
		nonce: make(map[common.Address]uint64),
	}
}

// relay signs an unsigned call with key the way a browser wallet would and
// relays it through the ledger.
func (h *harness) relay(t *testing.T, key *ecdsa.PrivateKey, call *domain.UnsignedCall) *ledger.Tx {
	t.Helper()
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress(call.To)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(call.ChainID),
		Nonce:     h.nonce[from],
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       200000,
		To:        &to,
		Data:      hexutil.MustDecode(call.Data),
	})
	h.nonce[from]++
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(tx.ChainId()), key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	ltx, err := h.l.Relay(context.Background(), raw)
	require.NoError(t, err)
	<-ltx.Done()
	return ltx
}

func wallet(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func TestDonorLifecycleThroughWallets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	donorKey, donor := wallet(t)
	kinKey, kin := wallet(t)

	_, err := h.svc.GetDonor(ctx, donor.Hex())
	assert.ErrorIs(t, err, domain.ErrOrganDonorNotFound)

	call, err := h.svc.PrepareRegisterDonor(ctx, domain.RegisterOrganDonorRequest{
		Organs:        []string{" Kidney ", "", "Liver"},
		NextOfKin:     kin.Hex(),
		HealthRecords: "ipfs://QmRecords",
	}, donor.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(chainID), call.ChainID)
	assert.Equal(t, "registerDonor", call.Function)
	assert.Equal(t, organAddr.Hex(), call.To)

	tx := h.relay(t, donorKey, call)
	require.NoError(t, tx.Err())
	assert.Equal(t, donor, tx.Snapshot().From)

	got, err := h.svc.GetDonor(ctx, donor.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kidney", "Liver"}, got.Organs)
	assert.Equal(t, kin.Hex(), got.NextOfKin)
	assert.True(t, got.IsActive)
	assert.False(t, got.NextOfKinApproval)
	assert.Equal(t, "ipfs://QmRecords", got.HealthRecords)

	avail, err := h.svc.CheckAvailability(ctx, domain.OrganAvailabilityRequest{Donor: donor.Hex(), Organ: "Kidney"})
	require.NoError(t, err)
	assert.False(t, avail.Available)

	approve, err := h.svc.PrepareApproveDonor(ctx, donor.Hex())
	require.NoError(t, err)
	tx = h.relay(t, kinKey, approve)
	require.NoError(t, tx.Err())

	avail, err = h.svc.CheckAvailability(ctx, domain.OrganAvailabilityRequest{Donor: donor.Hex(), Organ: "Kidney"})
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Equal(t, 2, h.chain.readCount("isOrganAvailable"))
}

func TestApproveByStrangerReverts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	donorKey, donor := wallet(t)
	_, kin := wallet(t)
	strangerKey, _ := wallet(t)

	call, err := h.svc.PrepareRegisterDonor(ctx, domain.RegisterOrganDonorRequest{Organs: []string{"Heart"}, NextOfKin: kin.Hex()}, donor.Hex())
	require.NoError(t, err)
	require.NoError(t, h.relay(t, donorKey, call).Err())

	approve, err := h.svc.PrepareApproveDonor(ctx, donor.Hex())
	require.NoError(t, err)
	tx := h.relay(t, strangerKey, approve)

	assert.Equal(t, ledger.StageError, tx.Stage())
	var txErr *ledger.TxError
	require.True(t, errors.As(tx.Err(), &txErr))
	assert.Equal(t, ledger.CauseReverted, txErr.Cause)
	assert.ErrorIs(t, tx.Err(), ErrNotNextOfKin)
}

func TestPrepareApproveUnknownDonor(t *testing.T) {
	h := newHarness(t)
	_, donor := wallet(t)

	_, err := h.svc.PrepareApproveDonor(context.Background(), donor.Hex())
	assert.ErrorIs(t, err, domain.ErrOrganDonorNotFound)

	_, err = h.svc.PrepareRegisterDonor(context.Background(), domain.RegisterOrganDonorRequest{Organs: []string{" "}, NextOfKin: donor.Hex()}, donor.Hex())
	assert.ErrorIs(t, err, domain.ErrOrgansRequired)
}

func TestRegisterHospitalRefreshesList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	hospitals, err := h.svc.ListHospitals(ctx)
	require.NoError(t, err)
	assert.Empty(t, hospitals)

	tx, err := h.svc.RegisterHospital(ctx, domain.RegisterHospitalRequest{ID: "1", Name: " AIIMS ", City: "Delhi"})
	require.NoError(t, err)
	require.NoError(t, tx.Wait(ctx))

	hospitals, err = h.svc.ListHospitals(ctx)
	require.NoError(t, err)
	require.Len(t, hospitals, 1)
	assert.Equal(t, domain.Hospital{ID: "1", Name: "AIIMS", City: "Delhi", Address: operatorAddr.Hex()}, hospitals[0])
	assert.Equal(t, 2, h.chain.readCount("getAllHospitals"))
}

func TestCreateRequestAndFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, recipient := wallet(t)

	for i, organ := range []string{"Kidney", "Liver", "Kidney"} {
		tx, err := h.svc.CreateRequest(ctx, domain.CreateOrganRequestRequest{
			HospitalID:   fmt.Sprint(1 + i%2),
			RequestID:    fmt.Sprint(10 + i),
			OrganType:    organ,
			BloodType:    "o_neg",
			UrgencyLevel: uint64(3 + i),
			Recipient:    recipient.Hex(),
		})
		require.NoError(t, err)
		require.NoError(t, tx.Wait(ctx))
	}
	h.chain.mu.Lock()
	h.chain.requests[1].IsActive = false
	h.chain.mu.Unlock()

	all, err := h.svc.ListRequests(ctx, domain.ListOrganRequestsRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "O-", all[0].BloodType)
	assert.Equal(t, uint64(3), all[0].UrgencyLevel)
	assert.Empty(t, all[0].MatchedDonor)

	kidneys, err := h.svc.ListRequests(ctx, domain.ListOrganRequestsRequest{OrganType: "kidney", HospitalID: "1"})
	require.NoError(t, err)
	require.Len(t, kidneys, 2)
	assert.Equal(t, "10", kidneys[0].ID)
	assert.Equal(t, "12", kidneys[1].ID)

	active, err := h.svc.ListRequests(ctx, domain.ListOrganRequestsRequest{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = h.svc.CreateRequest(ctx, domain.CreateOrganRequestRequest{HospitalID: "1", RequestID: "99", OrganType: "Heart", BloodType: "Q", UrgencyLevel: 1, Recipient: recipient.Hex()})
	assert.ErrorIs(t, err, domain.ErrInvalidBloodType)
}

func TestOutcome_ReadsRequestFromReceipt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, recipient := wallet(t)

	tx, err := h.svc.CreateRequest(ctx, domain.CreateOrganRequestRequest{
		HospitalID:   "4",
		RequestID:    "21",
		OrganType:    "Heart",
		BloodType:    "b_pos",
		UrgencyLevel: 5,
		Recipient:    recipient.Hex(),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Wait(ctx))

	out, err := h.repo.Outcome(ctx, tx.Receipt())
	require.NoError(t, err)
	assert.Equal(t, domain.TxOutcome{RequestID: "21", HospitalID: "4"}, out)

	tx, err = h.svc.RegisterHospital(ctx, domain.RegisterHospitalRequest{ID: "4", Name: "City General", City: "Pune"})
	require.NoError(t, err)
	require.NoError(t, tx.Wait(ctx))

	out, err = h.repo.Outcome(ctx, tx.Receipt())
	require.NoError(t, err)
	assert.Zero(t, out)
}

func TestInvalidationTableMatchesABI(t *testing.T) {
	c, err := NewContract(organAddr)
	require.NoError(t, err)
	assert.NoError(t, ledger.NewInvalidator(ledger.NewCache(), nil).Register(c, Invalidations))
}
