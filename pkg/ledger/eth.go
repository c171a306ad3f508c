package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DialNetwork is the production Dialer.
func DialNetwork(ctx context.Context, n Network) (Backend, error) {
	client, err := ethclient.DialContext(ctx, n.RPCURL)
	if err != nil {
		return nil, err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if id.Uint64() != n.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc %s serves chain %d, want %d", n.Name, id.Uint64(), n.ChainID)
	}
	return client, nil
}

// Signer signs and broadcasts calldata on behalf of one account.
type Signer interface {
	Address() common.Address
	SignAndSend(ctx context.Context, b Backend, chainID uint64, to common.Address, data []byte) (common.Hash, error)
}

// KeySigner signs with a local private key. Nonce assignment is serialized so
// concurrent writes from the operator account do not collide.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	mu      sync.Mutex
}

func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *KeySigner) Address() common.Address { return s.address }

func (s *KeySigner) SignAndSend(ctx context.Context, b Backend, chainID uint64, to common.Address, data []byte) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := b.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}

	id := new(big.Int).SetUint64(chainID)
	gas += gas / 5

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := b.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   id,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Data:      data,
		})
	} else {
		price, err := b.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
		}
		tx = types.NewTx(&types.LegacyTx{Nonce: nonce, GasPrice: price, Gas: gas, To: &to, Data: data})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(id), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := b.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}
