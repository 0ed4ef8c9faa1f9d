package provider

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
)

var (
	// simChainID is the chain ID for the simulated EVM chain. This is always set to 1337 across
	// all instances of EVM Simulated Chains.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is 1,000,000 Ether in wei.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// simDefaultBlockGasLimit leaves room for a transaction at evm.DefaultGasLimit.
const simDefaultBlockGasLimit uint64 = 150_000_000

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: DeployerGen generates the deployer account. A random account is used if not set.
	DeployerGen SignerGenerator
	// Optional: BlockTime configures the time between blocks being committed. By default, this is
	// set to 0s, meaning that a block is committed whenever a transaction is confirmed.
	BlockTime time.Duration
	// Optional: BlockGasLimit overrides the gas limit of simulated blocks.
	BlockGasLimit uint64
}

// SimChainProvider manages a simulated EVM chain that is backed by go-ethereum's in memory
// simulated backend.
type SimChainProvider struct {
	t      *testing.T
	config SimChainProviderConfig

	chain *evm.Chain
}

// NewSimChainProvider creates a new SimChainProvider with the given configuration.
func NewSimChainProvider(t *testing.T, config SimChainProviderConfig) *SimChainProvider {
	t.Helper()

	return &SimChainProvider{
		t:      t,
		config: config,
	}
}

// Initialize sets up the simulated chain with a prefunded deployer account. It returns an
// initialized evm.Chain instance that can be used to interact with the simulated chain.
func (p *SimChainProvider) Initialize(_ context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	gen := p.config.DeployerGen
	if gen == nil {
		gen = AccountRandom()
	}
	deployer, err := gen.Generate()
	require.NoError(p.t, err, "failed to generate deployer account")

	genesis := types.GenesisAlloc{
		deployer.Address: {Balance: prefundAmountWei},
	}

	gasLimit := p.config.BlockGasLimit
	if gasLimit == 0 {
		gasLimit = simDefaultBlockGasLimit
	}

	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(gasLimit))
	backend.Commit() // Commit the genesis block
	p.t.Cleanup(func() { _ = backend.Close() })

	if p.config.BlockTime > 0 {
		startAutoMine(p.t, backend, p.config.BlockTime)
	}

	client := NewSimClient(p.t, backend)
	autoMine := p.config.BlockTime > 0

	p.chain = &evm.Chain{
		Identity: evm.NewChainIdentity(simChainID.Uint64()),
		Client:   client,
		Deployer: deployer,
		Confirm: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			if tx == nil {
				return nil, errTxNil
			}

			// Ensure the transaction is mined by committing a new block
			if !autoMine {
				client.Commit()
			}

			ctxTimeout, cancel := context.WithTimeout(ctx, 1*time.Minute)
			defer cancel()

			receipt, err := WaitMinedWithInterval(ctxTimeout, 10*time.Millisecond, client, tx.Hash())
			if err != nil {
				return nil, waitError(tx, err)
			}

			return checkReceipt(ctxTimeout, client, deployer.Address, tx, receipt)
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// BlockChain returns the simulated chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *SimChainProvider) BlockChain() evm.Chain {
	return *p.chain
}

// startAutoMine triggers the simulated backend to create a new block at intervals defined by
// `blockTime`. After the test is done, it stops the mining goroutine.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
