package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessRelayTransaction   = "transaction submitted"
	MessageSuccessGetTransaction     = "transaction retrieved successfully"
	MessageSuccessGetTransactions    = "transactions retrieved successfully"
	MessageSuccessAbandonTransaction = "transaction tracking abandoned"
	MessageSuccessGetChain           = "chain retrieved successfully"
	MessageSuccessSwitchChain        = "chain switched successfully"
	MessageFailedRelayTransaction    = "failed to relay transaction"
	MessageFailedGetTransaction      = "failed to retrieve transaction"
	MessageFailedGetTransactions     = "failed to retrieve transactions"
	MessageFailedAbandonTransaction  = "failed to abandon transaction"
	MessageFailedSwitchChain         = "failed to switch chain"

	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransactionNotTracked = errors.New("transaction is not tracked by this server")
	ErrTransactionNotSender  = errors.New("transaction was not sent by this wallet")
	ErrInvalidRawTransaction = errors.New("invalid raw transaction")
	ErrInvalidTransactionID  = errors.New("transaction id must be a uuid or a 0x transaction hash")
	ErrUnsupportedChain      = errors.New("unsupported chain")
)

type (
	Transaction struct {
		ID           string    `json:"id"`
		ChainID      uint64    `json:"chain_id"`
		Contract     string    `json:"contract"`
		Function     string    `json:"function"`
		From         string    `json:"from"`
		Hash         string    `json:"hash,omitempty"`
		ExplorerURL  string    `json:"explorer_url,omitempty"`
		Stage        string    `json:"stage"`
		BlockNumber  uint64    `json:"block_number,omitempty"`
		ErrorCause   string    `json:"error_cause,omitempty"`
		ErrorMessage string    `json:"error_message,omitempty"`
		Abandoned    bool      `json:"abandoned"`
		UpdatedAt    time.Time `json:"updated_at"`
		TxOutcome
	}

	// TxOutcome holds the ids a confirmed write produced, read from the
	// events in its receipt.
	TxOutcome struct {
		CampID      string `json:"camp_id,omitempty"`
		TokenID     string `json:"token_id,omitempty"`
		NFTContract string `json:"nft_contract,omitempty"`
		RequestID   string `json:"request_id,omitempty"`
		HospitalID  string `json:"hospital_id,omitempty"`
	}

	RelayTransactionRequest struct {
		RawTransaction string `json:"raw_transaction" validate:"required,hexadecimal"`
	}

	Chain struct {
		ChainID     uint64 `json:"chain_id"`
		Name        string `json:"name"`
		ExplorerURL string `json:"explorer_url,omitempty"`
		Current     bool   `json:"current"`
	}

	SwitchChainRequest struct {
		ChainID uint64 `json:"chain_id" validate:"required"`
	}
)
