// Package config loads the deployer configuration from an optional file and environment
// variables.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider/rpcclient"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// ConfigFileEnv names the environment variable holding the path of the config file.
const ConfigFileEnv = "DEPLOYER_CONFIG_FILE"

// RPCConfig lists the node endpoints. The first URL is the primary, the rest are backups.
type RPCConfig struct {
	URLs []string `mapstructure:"urls" yaml:"urls"`
	// Read calls are attempted RetryAttempts times per endpoint, RetryDelay apart, each bounded
	// by Timeout. Broadcasts and nonce reads are sent once.
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AccountConfig holds the deploying account.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type AccountConfig struct {
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"` // Secret: hex private key, 0x prefix optional
}

// NetworkConfig identifies the chain. The ID is used as both chain ID and network ID.
type NetworkConfig struct {
	ID          uint64 `mapstructure:"id" yaml:"id"`
	ForkName    string `mapstructure:"fork_name" yaml:"fork_name"`
	BaseProfile string `mapstructure:"base_profile" yaml:"base_profile"`
}

// ArtifactsConfig locates the compiled contracts.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// OutputConfig locates the files written by a run.
type OutputConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`               // The permission config file
	ReportPath string `mapstructure:"report_path" yaml:"report_path"` // Optional: the operations report file
}

// TxConfig sets the transaction defaults.
type TxConfig struct {
	GasLimit       uint64        `mapstructure:"gas_limit" yaml:"gas_limit"`
	GasPrice       string        `mapstructure:"gas_price" yaml:"gas_price"` // Decimal or 0x hex wei
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout" yaml:"receipt_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// Config wraps the entire configuration of the deployer.
type Config struct {
	RPC       RPCConfig       `mapstructure:"rpc" yaml:"rpc"`
	Account   AccountConfig   `mapstructure:"account" yaml:"account"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Tx        TxConfig        `mapstructure:"tx" yaml:"tx"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
}

var (
	// envBindings maps each config key to the environment variables that can provide it. The
	// first name is preferred, the second (if present) is the legacy name. Viper uses the first
	// one that is set.
	envBindings = map[string][]string{
		"rpc.urls":             {"DEPLOYER_RPC_URLS", "RPC_URL"},
		"rpc.retry_attempts":   {"DEPLOYER_RPC_RETRY_ATTEMPTS"},
		"rpc.retry_delay":      {"DEPLOYER_RPC_RETRY_DELAY"},
		"rpc.timeout":          {"DEPLOYER_RPC_TIMEOUT"},
		"account.private_key":  {"DEPLOYER_ACCOUNT_PRIVATE_KEY", "ACCOUNT_PRIVATE_KEY"},
		"network.id":           {"DEPLOYER_NETWORK_ID", "NETWORK_ID"},
		"network.fork_name":    {"DEPLOYER_NETWORK_FORK_NAME"},
		"network.base_profile": {"DEPLOYER_NETWORK_BASE_PROFILE"},
		"artifacts.dir":        {"DEPLOYER_ARTIFACTS_DIR"},
		"output.path":          {"DEPLOYER_OUTPUT_PATH"},
		"output.report_path":   {"DEPLOYER_OUTPUT_REPORT_PATH"},
		"tx.gas_limit":         {"DEPLOYER_TX_GAS_LIMIT"},
		"tx.gas_price":         {"DEPLOYER_TX_GAS_PRICE"},
		"tx.receipt_timeout":   {"DEPLOYER_TX_RECEIPT_TIMEOUT"},
		"tx.poll_interval":     {"DEPLOYER_TX_POLL_INTERVAL"},
		"log_level":            {"DEPLOYER_LOG_LEVEL"},
	}

	defaults = map[string]any{
		"rpc.retry_attempts":   rpcclient.DefaultCallAttempts,
		"rpc.retry_delay":      rpcclient.DefaultCallDelay,
		"rpc.timeout":          rpcclient.DefaultCallTimeout,
		"network.fork_name":    evm.DefaultForkName,
		"network.base_profile": evm.DefaultBaseProfile,
		"artifacts.dir":        ".",
		"output.path":          "permission-config.json",
		"tx.gas_limit":         evm.DefaultGasLimit,
		"tx.gas_price":         "0",
		"tx.receipt_timeout":   5 * time.Minute,
		"tx.poll_interval":     time.Second,
		"log_level":            "info",
	}
)

// Load loads the config from the file at filePath, when given, with environment variables
// overriding the values of the file.
func Load(filePath string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		if _, err := os.Stat(filePath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", filePath, err)
		}

		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.RPC.URLs = cleanURLs(cfg.RPC.URLs)

	return cfg, nil
}

// LoadEnv loads the config from the environment, reading the file named by ConfigFileEnv when
// it is set.
func LoadEnv() (*Config, error) {
	return Load(os.Getenv(ConfigFileEnv))
}

// Validate checks that the config can run a deployment.
func (c *Config) Validate() error {
	var errs []error

	if len(c.RPC.URLs) == 0 {
		errs = append(errs, errors.New("rpc.urls is required"))
	}
	if c.RPC.RetryAttempts == 0 {
		errs = append(errs, errors.New("rpc.retry_attempts must be positive"))
	}
	if c.RPC.RetryDelay < 0 {
		errs = append(errs, errors.New("rpc.retry_delay must not be negative"))
	}
	if c.RPC.Timeout <= 0 {
		errs = append(errs, errors.New("rpc.timeout must be positive"))
	}
	if c.Account.PrivateKey == "" {
		errs = append(errs, errors.New("account.private_key is required"))
	}
	if c.Network.ID == 0 {
		errs = append(errs, errors.New("network.id is required"))
	} else if err := c.Identity().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Tx.GasLimit == 0 {
		errs = append(errs, errors.New("tx.gas_limit must be positive"))
	}
	if _, err := c.GasPrice(); err != nil {
		errs = append(errs, err)
	}
	if c.Tx.ReceiptTimeout <= 0 {
		errs = append(errs, errors.New("tx.receipt_timeout must be positive"))
	}
	if c.Tx.PollInterval <= 0 {
		errs = append(errs, errors.New("tx.poll_interval must be positive"))
	}
	if _, err := logger.ConfigFromLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Identity returns the chain identity of the configured network.
func (c *Config) Identity() evm.ChainIdentity {
	id := evm.NewChainIdentity(c.Network.ID)
	if c.Network.ForkName != "" {
		id.ForkName = c.Network.ForkName
	}
	if c.Network.BaseProfile != "" {
		id.BaseProfile = c.Network.BaseProfile
	}

	return id
}

// GasPrice parses tx.gas_price.
func (c *Config) GasPrice() (*big.Int, error) {
	s := strings.TrimSpace(c.Tx.GasPrice)
	if s == "" {
		return new(big.Int), nil
	}

	price, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("tx.gas_price %q is not a number", c.Tx.GasPrice)
	}
	if price.Sign() < 0 {
		return nil, fmt.Errorf("tx.gas_price must not be negative, got %s", price)
	}

	return price, nil
}

// RetryConfig returns the retry settings of the RPC client. Dialing an endpoint is bounded by
// the same timeout.
func (c *Config) RetryConfig() rpcclient.RetryConfig {
	return rpcclient.RetryConfig{
		Attempts:    c.RPC.RetryAttempts,
		Delay:       c.RPC.RetryDelay,
		Timeout:     c.RPC.Timeout,
		DialTimeout: c.RPC.Timeout,
	}
}

// DispatchDefaults returns the transaction defaults of the dispatcher.
func (c *Config) DispatchDefaults() (evm.DispatchDefaults, error) {
	price, err := c.GasPrice()
	if err != nil {
		return evm.DispatchDefaults{}, err
	}

	return evm.DispatchDefaults{
		Value:    new(big.Int),
		GasPrice: price,
		GasLimit: c.Tx.GasLimit,
	}, nil
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the config key to the start of the arguments
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

// cleanURLs trims the URLs and drops empty entries left by a trailing comma.
func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}

	return out
}
