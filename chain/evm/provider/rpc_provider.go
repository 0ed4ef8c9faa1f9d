package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider/rpcclient"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: The network transactions are signed for. The node must report the same chain ID.
	Identity evm.ChainIdentity
	// Required: A generator for the deployer account. Use AccountFromRaw to load it from a hex
	// private key.
	DeployerSignerGen SignerGenerator
	// Required: At least one RPC must be provided to connect to the EVM node. The first is the
	// primary, the rest are backups for reads.
	RPCs []rpcclient.RPC
	// Required: ConfirmFunctor is a type that generates a confirmation function for transactions.
	// Use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: ClientOpts are additional options to configure the MultiClient used by the
	// RPCChainProvider, such as retry settings.
	ClientOpts []rpcclient.Option
	// Optional: Logger is the logger to use for the RPCChainProvider. If not provided, a default
	// logger will be used.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.DeployerSignerGen == nil {
		return errors.New("deployer signer generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return c.Identity.Validate()
}

// RPCChainProvider is a chain provider that provides a chain that connects to an EVM node via RPC.
type RPCChainProvider struct {
	config RPCChainProviderConfig

	chain *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider with the given configuration.
func NewRPCChainProvider(config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{
		config: config,
	}
}

// Initialize initializes the RPCChainProvider, setting up the EVM chain with the provided
// configuration. It fails if the node serves a different chain than the configured identity.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	// Set up the logger if not provided
	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	// Validate the provider configuration
	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	deployer, err := p.config.DeployerSignerGen.Generate()
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer account: %w", err)
	}

	// Setup the client.
	client, err := rpcclient.NewMultiClient(p.config.Logger, rpcclient.RPCConfig{
		ChainName: p.config.Identity.Name(),
		RPCs:      p.config.RPCs,
	}, p.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("%w: failed to create multi-client: %w", evm.ErrTransportFailure, err)
	}

	nodeChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()

		return evm.Chain{}, fmt.Errorf("%w: failed to read node chain id: %w", evm.ErrTransportFailure, err)
	}
	if nodeChainID.Cmp(p.config.Identity.ChainID) != 0 {
		client.Close()

		return evm.Chain{}, fmt.Errorf("%w: node reports chain id %s, configured %s",
			evm.ErrInvalidChainIdentity, nodeChainID, p.config.Identity.ChainID,
		)
	}

	// Setup the confirm function
	confirmFunc, err := p.config.ConfirmFunctor.Generate(ctx, client, deployer.Address)
	if err != nil {
		client.Close()

		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.config.Logger.Infow("Connected to chain",
		"chain", p.config.Identity.String(),
		"deployer", deployer.String(),
	)

	p.chain = &evm.Chain{
		Identity: p.config.Identity,
		Client:   client,
		Deployer: deployer,
		Confirm:  confirmFunc,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

// BlockChain returns the chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *RPCChainProvider) BlockChain() evm.Chain {
	return *p.chain
}
