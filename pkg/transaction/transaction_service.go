package transaction

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/entities"
	"crimson-backend/pkg/ledger"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const journalTimeout = 5 * time.Second

// OutcomeDecoder reads the ids a confirmed write produced from its receipt.
// It returns the zero outcome when the receipt holds none of its events.
type OutcomeDecoder func(ctx context.Context, receipt *types.Receipt) (domain.TxOutcome, error)

type (
	TransactionService interface {
		// Record persists one tracker transition. It is registered as a
		// ledger observer.
		Record(snap ledger.TxSnapshot)
		Describe(tx *ledger.Tx) *domain.Transaction

		Relay(ctx context.Context, req domain.RelayTransactionRequest, caller string) (*domain.Transaction, error)
		GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
		ListTransactions(ctx context.Context, from string, page, limit int) ([]*domain.Transaction, int64, error)
		Abandon(ctx context.Context, id, caller string, admin bool) (*domain.Transaction, error)

		ListChains() []domain.Chain
		SwitchChain(ctx context.Context, req domain.SwitchChainRequest) (*domain.Chain, error)
	}

	transactionService struct {
		transactionRepository TransactionRepository
		ledger                *ledger.Ledger
		decoders              []OutcomeDecoder
		log                   *zap.Logger
	}
)

func NewTransactionService(transactionRepository TransactionRepository, l *ledger.Ledger, log *zap.Logger, decoders ...OutcomeDecoder) TransactionService {
	return &transactionService{
		transactionRepository: transactionRepository,
		ledger:                l,
		decoders:              decoders,
		log:                   log,
	}
}

func (s *transactionService) Record(snap ledger.TxSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	row := &entities.Transaction{
		ID:              snap.ID,
		ChainID:         snap.ChainID,
		Contract:        snap.Contract,
		ContractAddress: snap.Address.Hex(),
		Function:        snap.Function,
		Args:            ledger.FormatArgs(snap.Args...),
		From:            snap.From.Hex(),
		Stage:           snap.Stage.String(),
		BlockNumber:     snap.BlockNumber,
		Abandoned:       snap.Abandoned,
	}
	if snap.HasHash() {
		row.Hash = snap.Hash.Hex()
	}
	if snap.Err != nil {
		row.ErrorCause = string(snap.Err.Cause)
		row.ErrorMessage = snap.Err.Message
	}
	outcome := s.outcome(ctx, snap)
	row.CampID = outcome.CampID
	row.TokenID = outcome.TokenID
	row.NFTContract = outcome.NFTContract
	row.RequestID = outcome.RequestID
	row.HospitalID = outcome.HospitalID

	if err := s.transactionRepository.Save(ctx, row); err != nil {
		s.log.Error("failed to journal transaction",
			zap.Stringer("tx_id", snap.ID),
			zap.String("stage", row.Stage),
			zap.Error(err),
		)
	}
}

func (s *transactionService) Describe(tx *ledger.Tx) *domain.Transaction {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	return s.describe(ctx, tx.Snapshot())
}

func (s *transactionService) Relay(ctx context.Context, req domain.RelayTransactionRequest, caller string) (*domain.Transaction, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(req.RawTransaction, "0x"), "0X"))
	if err != nil {
		return nil, domain.ErrInvalidRawTransaction
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, domain.ErrInvalidRawTransaction
	}
	if signed.ChainId() == nil || signed.ChainId().Sign() == 0 {
		return nil, domain.ErrUnsupportedChain
	}
	sender, err := types.Sender(types.LatestSignerForChainID(signed.ChainId()), signed)
	if err != nil {
		return nil, domain.ErrInvalidRawTransaction
	}
	if !strings.EqualFold(sender.Hex(), caller) {
		return nil, domain.ErrTransactionNotSender
	}

	tx, err := s.ledger.Relay(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrWrongChain):
			return nil, domain.ErrUnsupportedChain
		case errors.Is(err, ledger.ErrUnknownContract), errors.Is(err, ledger.ErrUnknownFunction):
			return nil, errors.Join(domain.ErrInvalidRawTransaction, err)
		}
		return nil, err
	}

	s.log.Info("relayed wallet transaction",
		zap.Stringer("tx_id", tx.ID()),
		zap.String("from", sender.Hex()),
		zap.String("function", tx.Snapshot().Function),
	)
	return s.Describe(tx), nil
}

// GetTransaction looks a write up by tracker id or by transaction hash. It
// prefers the live tracker state and falls back to the journal for
// transactions tracked before a restart.
func (s *transactionService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, row, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx != nil {
		return s.describe(ctx, tx.Snapshot()), nil
	}
	return s.fromRow(row), nil
}

// resolve returns the live Tx when this process still tracks the write and
// its journal row otherwise.
func (s *transactionService) resolve(ctx context.Context, id string) (*ledger.Tx, *entities.Transaction, error) {
	var (
		row *entities.Transaction
		err error
	)
	if isTxHash(id) {
		row, err = s.transactionRepository.GetByHash(ctx, common.HexToHash(id).Hex())
	} else {
		txID, parseErr := uuid.Parse(id)
		if parseErr != nil {
			return nil, nil, domain.ErrInvalidTransactionID
		}
		if tx, ok := s.ledger.Tx(txID); ok {
			return tx, nil, nil
		}
		row, err = s.transactionRepository.GetByID(ctx, txID.String())
	}
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		return nil, nil, domain.ErrTransactionNotFound
	}
	if tx, ok := s.ledger.Tx(row.ID); ok {
		return tx, nil, nil
	}
	return nil, row, nil
}

func (s *transactionService) ListTransactions(ctx context.Context, from string, page, limit int) ([]*domain.Transaction, int64, error) {
	if !common.IsHexAddress(from) {
		return nil, 0, domain.ErrInvalidWalletAddress
	}
	rows, count, err := s.transactionRepository.ListByFrom(ctx, common.HexToAddress(from).Hex(), page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, s.fromRow(row))
	}
	return result, count, nil
}

// Abandon stops local tracking. Only the sending wallet, or an admin for
// operator-signed writes, may do so.
func (s *transactionService) Abandon(ctx context.Context, id, caller string, admin bool) (*domain.Transaction, error) {
	tx, _, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotTracked
	}

	if !admin && !strings.EqualFold(tx.Snapshot().From.Hex(), caller) {
		return nil, domain.ErrTransactionNotSender
	}

	tx.Abandon()
	select {
	case <-tx.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.describe(ctx, tx.Snapshot()), nil
}

func (s *transactionService) ListChains() []domain.Chain {
	current := s.ledger.Network()
	networks := s.ledger.Session().Networks()

	chains := make([]domain.Chain, 0, len(networks))
	for _, n := range networks {
		chains = append(chains, toDomainChain(n, current.ChainID))
	}
	return chains
}

func (s *transactionService) SwitchChain(ctx context.Context, req domain.SwitchChainRequest) (*domain.Chain, error) {
	n, err := s.ledger.Session().Switch(ctx, req.ChainID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnsupportedChain) {
			return nil, domain.ErrUnsupportedChain
		}
		return nil, errors.Join(domain.ErrLedgerUnavailable, err)
	}
	s.log.Info("switched chain", zap.Uint64("chain_id", n.ChainID), zap.String("name", n.Name))
	chain := toDomainChain(n, n.ChainID)
	return &chain, nil
}

func (s *transactionService) describe(ctx context.Context, snap ledger.TxSnapshot) *domain.Transaction {
	out := &domain.Transaction{
		ID:          snap.ID.String(),
		ChainID:     snap.ChainID,
		Contract:    snap.Contract,
		Function:    snap.Function,
		From:        snap.From.Hex(),
		Stage:       snap.Stage.String(),
		BlockNumber: snap.BlockNumber,
		Abandoned:   snap.Abandoned,
		UpdatedAt:   snap.UpdatedAt,
	}
	if snap.HasHash() {
		out.Hash = snap.Hash.Hex()
		out.ExplorerURL = s.explorerURL(snap.ChainID, snap.Hash)
	}
	if snap.Err != nil {
		out.ErrorCause = string(snap.Err.Cause)
		out.ErrorMessage = snap.Err.Message
	}
	out.TxOutcome = s.outcome(ctx, snap)
	return out
}

// outcome merges what every decoder finds in the receipt of a confirmed
// write. A decoder that fails is logged and skipped.
func (s *transactionService) outcome(ctx context.Context, snap ledger.TxSnapshot) domain.TxOutcome {
	var out domain.TxOutcome
	if snap.Stage != ledger.StageSuccess || snap.Receipt == nil {
		return out
	}
	for _, decode := range s.decoders {
		got, err := decode(ctx, snap.Receipt)
		if err != nil {
			s.log.Warn("failed to decode transaction outcome", zap.Stringer("tx_id", snap.ID), zap.Error(err))
		}
		out = mergeOutcome(out, got)
	}
	return out
}

func mergeOutcome(into, from domain.TxOutcome) domain.TxOutcome {
	if from.CampID != "" {
		into.CampID = from.CampID
	}
	if from.TokenID != "" {
		into.TokenID = from.TokenID
	}
	if from.NFTContract != "" {
		into.NFTContract = from.NFTContract
	}
	if from.RequestID != "" {
		into.RequestID = from.RequestID
	}
	if from.HospitalID != "" {
		into.HospitalID = from.HospitalID
	}
	return into
}

func isTxHash(id string) bool {
	b, err := hexutil.Decode(id)
	return err == nil && len(b) == common.HashLength
}

func (s *transactionService) fromRow(row *entities.Transaction) *domain.Transaction {
	out := &domain.Transaction{
		ID:           row.ID.String(),
		ChainID:      row.ChainID,
		Contract:     row.Contract,
		Function:     row.Function,
		From:         row.From,
		Hash:         row.Hash,
		Stage:        row.Stage,
		BlockNumber:  row.BlockNumber,
		ErrorCause:   row.ErrorCause,
		ErrorMessage: row.ErrorMessage,
		Abandoned:    row.Abandoned,
		UpdatedAt:    row.UpdatedAt,
		TxOutcome: domain.TxOutcome{
			CampID:      row.CampID,
			TokenID:     row.TokenID,
			NFTContract: row.NFTContract,
			RequestID:   row.RequestID,
			HospitalID:  row.HospitalID,
		},
	}
	if row.Hash != "" {
		out.ExplorerURL = s.explorerURL(row.ChainID, common.HexToHash(row.Hash))
	}
	return out
}

func (s *transactionService) explorerURL(chainID uint64, hash common.Hash) string {
	n, ok := s.ledger.Session().Network(chainID)
	if !ok {
		return ""
	}
	return n.TxURL(hash)
}

func toDomainChain(n ledger.Network, current uint64) domain.Chain {
	return domain.Chain{
		ChainID:     n.ChainID,
		Name:        n.Name,
		ExplorerURL: n.ExplorerURL,
		Current:     n.ChainID == current,
	}
}
