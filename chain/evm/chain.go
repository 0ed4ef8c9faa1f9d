package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmFunc waits for a broadcast transaction to be mined and returns its receipt. A mined
// transaction with a failed status is returned as an error.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// NonceReader reads the next usable nonce of an account, including pending transactions.
type NonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// RawSender broadcasts an already signed transaction.
type RawSender interface {
	SendRawTransaction(ctx context.Context, raw []byte) error
}

// CodeReader reads the runtime code deployed at an address.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// OnchainClient is the transport a deployment needs from an EVM node.
type OnchainClient interface {
	NonceReader
	RawSender
	CodeReader

	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Chain represents the EVM network a deployment runs against.
type Chain struct {
	Identity ChainIdentity

	Client OnchainClient
	// Deployer is the only account that signs transactions on this chain.
	Deployer Account
	Confirm  ConfirmFunc
}

// String returns chain name and chain ID "<name> (<chain id>)"
func (c Chain) String() string {
	return c.Identity.String()
}

// Name returns the name of the chain
func (c Chain) Name() string {
	return c.Identity.Name()
}
