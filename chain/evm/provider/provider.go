package provider

import (
	"context"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
)

// ChainProvider sets up the EVM chain a deployment runs against.
type ChainProvider interface {
	// Initialize connects to the chain and returns it. Calling it again returns the same chain.
	Initialize(ctx context.Context) (evm.Chain, error)
	// Name returns a human readable name of the provider.
	Name() string
	// BlockChain returns the chain set up by Initialize.
	BlockChain() evm.Chain
}

var (
	_ ChainProvider = (*RPCChainProvider)(nil)
	_ ChainProvider = (*SimChainProvider)(nil)
)
