package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrSuperseded        = errors.New("ledger: read superseded by a newer request")
	ErrChainSwitched     = errors.New("ledger: chain switched while request was in flight")
	ErrTrackingAbandoned = errors.New("ledger: transaction tracking abandoned")
	ErrUserRejected      = errors.New("ledger: user rejected the request")
	ErrNoSigner          = errors.New("ledger: no signer configured")
	ErrUnknownContract   = errors.New("ledger: transaction targets an unregistered contract")
	ErrWrongChain        = errors.New("ledger: transaction signed for another chain")
	ErrUnknownFunction   = errors.New("ledger: function not found in contract ABI")
	ErrUnsupportedChain  = errors.New("ledger: unsupported chain")
)

// rejectedCode is the EIP-1193 "user rejected request" code.
const rejectedCode = 4001

// Cause classifies why a write ended in the error stage.
type Cause string

const (
	CauseRejected          Cause = "rejected"
	CauseReverted          Cause = "reverted"
	CauseInsufficientFunds Cause = "insufficient_funds"
	CauseNetwork           Cause = "network"
)

// TxError is the terminal error of a write. Message is safe to show to a user.
type TxError struct {
	Cause   Cause
	Message string
	err     error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Cause, e.Message)
}

func (e *TxError) Unwrap() error { return e.err }

// RevertError is a contract-level revert, either a named custom error or a
// plain revert reason string.
type RevertError struct {
	Contract string
	Name     string
	Reason   string
	Args     []any
}

func (e *RevertError) Error() string {
	switch {
	case e.Name != "" && e.Contract != "":
		return fmt.Sprintf("%s reverted with %s", e.Contract, e.Name)
	case e.Name != "":
		return "reverted with " + e.Name
	case e.Reason != "":
		return "reverted: " + e.Reason
	default:
		return "execution reverted"
	}
}

// Is matches another RevertError carrying the same error name, so callers can
// compare against package-level sentinels such as bloodcamp.ErrCampNotOwner.
func (e *RevertError) Is(target error) bool {
	t, ok := target.(*RevertError)
	if !ok || t.Name == "" {
		return false
	}
	return t.Name == e.Name
}

func classify(err error, c *Contract) *TxError {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr
	}
	if errors.Is(err, ErrUserRejected) {
		return &TxError{Cause: CauseRejected, Message: "request rejected by the signer", err: err}
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == rejectedCode {
		return &TxError{Cause: CauseRejected, Message: rpcErr.Error(), err: err}
	}
	var revert *RevertError
	if errors.As(err, &revert) {
		return &TxError{Cause: CauseReverted, Message: revert.Error(), err: err}
	}
	if c != nil {
		if revert := c.RevertFromError(err); revert != nil {
			return &TxError{Cause: CauseReverted, Message: revert.Error(), err: revert}
		}
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient funds"):
		return &TxError{Cause: CauseInsufficientFunds, Message: msg, err: err}
	case strings.Contains(lower, "execution reverted"):
		return &TxError{Cause: CauseReverted, Message: msg, err: err}
	}
	return &TxError{Cause: CauseNetwork, Message: msg, err: err}
}
