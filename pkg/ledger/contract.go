package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Contract is an ABI bound to a deployed address.
type Contract struct {
	name    string
	address common.Address
	abi     abi.ABI
}

func NewContract(name string, address common.Address, abiJSON string) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	return &Contract{name: name, address: address, abi: parsed}, nil
}

func (c *Contract) Name() string            { return c.name }
func (c *Contract) Address() common.Address { return c.address }
func (c *Contract) ABI() abi.ABI            { return c.abi }

func (c *Contract) HasMethod(name string) bool {
	_, ok := c.abi.Methods[name]
	return ok
}

func (c *Contract) inputCount(name string) int {
	m, ok := c.abi.Methods[name]
	if !ok {
		return -1
	}
	return len(m.Inputs)
}

func (c *Contract) Pack(function string, args ...any) ([]byte, error) {
	if !c.HasMethod(function) {
		return nil, fmt.Errorf("%s.%s: %w", c.name, function, ErrUnknownFunction)
	}
	data, err := c.abi.Pack(function, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", c.name, function, err)
	}
	return data, nil
}

func (c *Contract) Unpack(function string, data []byte) ([]any, error) {
	out, err := c.abi.Unpack(function, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", c.name, function, err)
	}
	return out, nil
}

// DecodeCall maps calldata back to the function name and its arguments.
func (c *Contract) DecodeCall(data []byte) (string, []any, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("%s: calldata too short", c.name)
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", c.name, ErrUnknownFunction)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, fmt.Errorf("decode %s.%s args: %w", c.name, method.Name, err)
	}
	return method.Name, args, nil
}

// DecodeRevert turns revert data into a RevertError. Custom errors declared in
// the ABI are matched by selector; anything else falls back to Error(string).
func (c *Contract) DecodeRevert(data []byte) *RevertError {
	if len(data) >= 4 {
		for name, e := range c.abi.Errors {
			if !bytes.Equal(e.ID[:4], data[:4]) {
				continue
			}
			var args []any
			if len(data) > 4 {
				args, _ = e.Inputs.Unpack(data[4:])
			}
			return &RevertError{Contract: c.name, Name: shortErrorName(name), Args: args}
		}
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return &RevertError{Contract: c.name, Reason: reason}
	}
	return nil
}

// RevertFromError extracts revert data carried by a JSON-RPC error, as
// returned by eth_call and eth_estimateGas.
func (c *Contract) RevertFromError(err error) *RevertError {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil
	}
	raw, ok := dataErr.ErrorData().(string)
	if !ok {
		return nil
	}
	data, decodeErr := hexutil.Decode(raw)
	if decodeErr != nil {
		return nil
	}
	return c.DecodeRevert(data)
}

// Events decodes every log of the named event emitted by this contract in
// receipt. Indexed and non-indexed fields land in the same map.
func (c *Contract) Events(receipt *types.Receipt, event string) ([]map[string]any, error) {
	ev, ok := c.abi.Events[event]
	if !ok {
		return nil, fmt.Errorf("%s: unknown event %s", c.name, event)
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	var out []map[string]any
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != c.address || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}
		fields := make(map[string]any)
		if len(lg.Data) > 0 {
			if err := c.abi.UnpackIntoMap(fields, event, lg.Data); err != nil {
				return nil, fmt.Errorf("decode %s.%s: %w", c.name, event, err)
			}
		}
		if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
			return nil, fmt.Errorf("decode %s.%s topics: %w", c.name, event, err)
		}
		out = append(out, fields)
	}
	return out, nil
}

// shortErrorName drops the "Contract__" prefix solidity style guides put on
// custom errors.
func shortErrorName(name string) string {
	if i := strings.LastIndex(name, "__"); i >= 0 && i+2 < len(name) {
		return name[i+2:]
	}
	return name
}
