// Package contracts holds the ABI definitions and calldata helpers for the
// contracts the pipeline talks to.
package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20ABI contains the ERC-20 functions the pipeline needs.
const ERC20ABI = `[
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	erc20Once sync.Once
	erc20ABI  abi.ABI
	erc20Err  error
)

func getERC20ABI() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20ABI, erc20Err = abi.JSON(strings.NewReader(ERC20ABI))
	})
	return erc20ABI, erc20Err
}

// PackTransfer encodes an ERC-20 transfer call.
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("transfer", to, amount)
}

// PackApprove encodes an ERC-20 approve call.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("approve", spender, amount)
}

// Caller is the read-only RPC capability needed for view calls. Satisfied by
// *ethclient.Client.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Allowance reads the current spending allowance of spender over owner's
// tokens.
func Allowance(ctx context.Context, caller Caller, token, owner, spender common.Address) (*big.Int, error) {
	parsed, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance call: %v", err)
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance call: %v", err)
	}
	vals, err := parsed.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("unpack allowance result: %v", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("empty allowance result")
	}
	allowance, ok := vals[0].(*big.Int)
	if !ok || allowance == nil {
		return nil, fmt.Errorf("invalid allowance result type")
	}
	return allowance, nil
}

// BalanceOf reads the ERC-20 balance of an address.
func BalanceOf(ctx context.Context, caller Caller, token, owner common.Address) (*big.Int, error) {
	parsed, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf call: %v", err)
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %v", err)
	}
	vals, err := parsed.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf result: %v", err)
	}
	balance, ok := vals[0].(*big.Int)
	if !ok || balance == nil {
		return nil, fmt.Errorf("invalid balanceOf result type")
	}
	return balance, nil
}
