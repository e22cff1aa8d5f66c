package contracts

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EntrypointABI is the ABI of the fee-collecting transfer entrypoint
// contract. Native transfers are wrapped into a payable call; token
// transfers pull the approved amount from the sender.
const EntrypointABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "recipient", "type": "address"}
		],
		"name": "transferNative",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "address", "name": "recipient", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "transferToken",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	entrypointOnce sync.Once
	entrypointABI  abi.ABI
	entrypointErr  error
)

func getEntrypointABI() (abi.ABI, error) {
	entrypointOnce.Do(func() {
		entrypointABI, entrypointErr = abi.JSON(strings.NewReader(EntrypointABI))
	})
	return entrypointABI, entrypointErr
}

// PackEntrypointNative encodes the fee-wrapped native transfer call. The
// amount rides along as the transaction value.
func PackEntrypointNative(recipient common.Address) ([]byte, error) {
	parsed, err := getEntrypointABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("transferNative", recipient)
}

// PackEntrypointToken encodes the fee-wrapped ERC-20 transfer call.
func PackEntrypointToken(token, recipient common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := getEntrypointABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("transferToken", token, recipient, amount)
}
