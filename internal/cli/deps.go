package cli

import (
	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider/rpcclient"
	"github.com/smartcontractkit/permissioning-deployer/config"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// ConfigLoaderFunc loads the deployer configuration.
type ConfigLoaderFunc func() (*config.Config, error)

// ChainProviderFunc returns the provider of the chain to deploy to.
type ChainProviderFunc func(cfg *config.Config, lggr logger.Logger) (provider.ChainProvider, error)

// LoggerFunc builds the run logger from the configured level.
type LoggerFunc func(cfg *config.Config) (logger.Logger, error)

// defaultChainProvider connects to the configured RPC endpoints with the configured key.
func defaultChainProvider(cfg *config.Config, lggr logger.Logger) (provider.ChainProvider, error) {
	identity := cfg.Identity()

	rpcCfg, err := rpcclient.NewRPCConfig(identity.Name(), cfg.RPC.URLs)
	if err != nil {
		return nil, err
	}

	return provider.NewRPCChainProvider(provider.RPCChainProviderConfig{
		Identity:          identity,
		DeployerSignerGen: provider.AccountFromRaw(cfg.Account.PrivateKey),
		RPCs:              rpcCfg.RPCs,
		ClientOpts:        []rpcclient.Option{rpcclient.WithRetryConfig(cfg.RetryConfig())},
		ConfirmFunctor: provider.ConfirmFuncGeth(cfg.Tx.ReceiptTimeout,
			provider.WithTickInterval(cfg.Tx.PollInterval),
		),
		Logger: lggr,
	}), nil
}

// defaultLogger returns a production logger at the configured level.
func defaultLogger(cfg *config.Config) (logger.Logger, error) {
	lcfg, err := logger.ConfigFromLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return lcfg.New()
}

// Deps holds the injectable dependencies of the command.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.LoadEnv
	ConfigLoader ConfigLoaderFunc

	// ChainProvider returns the chain provider.
	// Default: an RPC provider over rpc.urls signing with account.private_key
	ChainProvider ChainProviderFunc

	// Logger builds the logger.
	// Default: a production logger at log_level
	Logger LoggerFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.LoadEnv
	}
	if d.ChainProvider == nil {
		d.ChainProvider = defaultChainProvider
	}
	if d.Logger == nil {
		d.Logger = defaultLogger
	}
}
