package ledger

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Key identifies one cached read: the same function called with the same
// arguments against the same contract on the same chain.
type Key struct {
	ChainID  uint64
	Contract common.Address
	Function string
	Args     string
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%s:%s(%s)", k.ChainID, strings.ToLower(k.Contract.Hex()), k.Function, k.Args)
}

// NewKey builds the cache key for a read call.
func NewKey(chainID uint64, contract common.Address, function string, args ...any) Key {
	return Key{
		ChainID:  chainID,
		Contract: contract,
		Function: function,
		Args:     canonicalArgs(args),
	}
}

// FormatArgs renders call arguments the way cache keys do, e.g. for a
// transaction journal.
func FormatArgs(args ...any) string { return canonicalArgs(args) }

func canonicalArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = argString(a)
	}
	return strings.Join(parts, ",")
}

// argString renders a call argument so that equal ledger values compare equal
// regardless of the Go type they were supplied as.
func argString(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *big.Int:
		if x == nil {
			return "nil"
		}
		return x.String()
	case big.Int:
		return x.String()
	case common.Address:
		return strings.ToLower(x.Hex())
	case *common.Address:
		if x == nil {
			return "nil"
		}
		return strings.ToLower(x.Hex())
	case common.Hash:
		return x.Hex()
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case string:
		return strconv.Quote(x)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		quoted := make([]string, len(x))
		for i, s := range x {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ",") + "]"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
