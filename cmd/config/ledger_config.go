package config

import (
	"context"
	"crimson-backend/internal/utils"
	"crimson-backend/pkg/ledger"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultChainID = 84532

// NewLedger dials the configured chain and builds the contract façade. The
// operator signer is optional; without it only wallet-relayed writes work.
func NewLedger(ctx context.Context, log *zap.Logger) (*ledger.Ledger, error) {
	var networks []ledger.Network
	for _, n := range utils.GetNetworks() {
		networks = append(networks, ledger.Network{
			ChainID:     n.ChainID,
			Name:        n.Name,
			RPCURL:      n.RPCURL,
			ExplorerURL: n.ExplorerURL,
		})
	}

	chainID := uint64(defaultChainID)
	if v := utils.GetConfig("CHAIN_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAIN_ID %q: %w", v, err)
		}
		chainID = id
	}

	var current *ledger.Network
	for i := range networks {
		if networks[i].ChainID == chainID {
			current = &networks[i]
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w %d", ledger.ErrUnsupportedChain, chainID)
	}

	cfg, err := ledgerConfig(log)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	backend, err := ledger.DialNetwork(dialCtx, *current)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", current.Name, err)
	}

	session := ledger.NewSession(networks, *current, backend, ledger.DialNetwork)
	log.Info("ledger connected", zap.String("network", current.Name), zap.Uint64("chain_id", current.ChainID))
	return ledger.New(session, cfg), nil
}

// ledgerConfig reads the cache, polling and signer settings. Reads are kept
// until a confirmed write invalidates them unless LEDGER_READ_TTL is set.
func ledgerConfig(log *zap.Logger) (ledger.Config, error) {
	cfg := ledger.Config{
		ReadTTL:      utils.GetDuration("LEDGER_READ_TTL", 0),
		FetchTimeout: utils.GetDuration("LEDGER_FETCH_TIMEOUT", 10*time.Second),
		PollInterval: utils.GetDuration("LEDGER_POLL_INTERVAL", 2*time.Second),
		Logger:       log.Named("ledger"),
	}
	if key := utils.GetConfig("OPERATOR_PRIVATE_KEY"); key != "" {
		signer, err := ledger.NewKeySigner(key)
		if err != nil {
			return ledger.Config{}, fmt.Errorf("operator key: %w", err)
		}
		cfg.Signer = signer
		log.Info("operator signer loaded", zap.String("address", signer.Address().Hex()))
	} else {
		log.Warn("no OPERATOR_PRIVATE_KEY, operator writes are disabled")
	}
	return cfg, nil
}
