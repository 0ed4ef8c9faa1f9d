package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

const (
	DefaultCallAttempts = 1
	DefaultCallDelay    = time.Second
	DefaultCallTimeout  = 10 * time.Second

	DefaultDialAttempts = 1
	DefaultDialDelay    = time.Second
	DefaultDialTimeout  = 10 * time.Second

	healthCheckTimeout = 2 * time.Second
)

// RetryConfig controls how often and how long a call or a dial is attempted on one endpoint
// before the next endpoint is tried.
type RetryConfig struct {
	Attempts     uint
	Delay        time.Duration
	Timeout      time.Duration
	DialAttempts uint
	DialDelay    time.Duration
	DialTimeout  time.Duration
}

// DefaultRetryConfig tries every call and dial once per endpoint.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     DefaultCallAttempts,
		Delay:        DefaultCallDelay,
		Timeout:      DefaultCallTimeout,
		DialAttempts: DefaultDialAttempts,
		DialDelay:    DefaultDialDelay,
		DialTimeout:  DefaultDialTimeout,
	}
}

// withDefaults replaces zero fields with the defaults.
func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.Attempts == 0 {
		c.Attempts = d.Attempts
	}
	if c.Delay == 0 {
		c.Delay = d.Delay
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.DialAttempts == 0 {
		c.DialAttempts = d.DialAttempts
	}
	if c.DialDelay == 0 {
		c.DialDelay = d.DialDelay
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}

	return c
}

// Option configures a MultiClient.
type Option func(*MultiClient)

// WithRetryConfig sets the retry configuration. Zero fields keep their default.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(mc *MultiClient) {
		mc.retry = cfg.withDefaults()
	}
}

var _ evm.OnchainClient = (*MultiClient)(nil)

// MultiClient talks to a primary node endpoint and its backups.
//
// Reads that do not depend on the node's view of the account (chain ID, receipts, calls, code)
// are retried and fail over to the backups; the endpoint that answers becomes the primary.
// The pending nonce and the broadcast of a transaction only ever go to the primary, once, so
// that both observe the same mempool.
type MultiClient struct {
	mu sync.RWMutex
	// endpoints[0] is the primary.
	endpoints []*ethclient.Client

	retry     RetryConfig
	chainName string
	lggr      logger.Logger
}

// NewMultiClient dials every endpoint of rpcsCfg and keeps those that pass a health check, in
// configured order. It fails when none does.
func NewMultiClient(lggr logger.Logger, rpcsCfg RPCConfig, opts ...Option) (*MultiClient, error) {
	if len(rpcsCfg.RPCs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}

	mc := &MultiClient{
		retry:     DefaultRetryConfig(),
		chainName: rpcsCfg.ChainName,
		lggr:      lggr.Named("multiclient"),
	}
	for _, opt := range opts {
		opt(mc)
	}

	for i, r := range rpcsCfg.RPCs {
		client, err := mc.dial(r)
		if err != nil {
			mc.lggr.Warnw("Skipping RPC endpoint", "chain", mc.chainName, "rpc", r.Name, "index", i, "error", err)

			continue
		}
		if err = healthCheck(client); err != nil {
			mc.lggr.Warnw("Skipping unhealthy RPC endpoint", "chain", mc.chainName, "rpc", r.Name, "index", i, "error", err)
			client.Close()

			continue
		}
		mc.endpoints = append(mc.endpoints, client)
	}

	if len(mc.endpoints) == 0 {
		return nil, errors.New("no valid RPC clients created")
	}

	return mc, nil
}

func healthCheck(client *ethclient.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if _, err := client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

// SendRawTransaction broadcasts a signed transaction through the primary. A failed broadcast is
// returned as is.
func (mc *MultiClient) SendRawTransaction(ctx context.Context, raw []byte) error {
	return mc.onPrimary(ctx, "SendRawTransaction", func(ctx context.Context, c *ethclient.Client) error {
		return c.Client().CallContext(ctx, nil, "eth_sendRawTransaction", hexutil.Encode(raw))
	})
}

// PendingNonceAt reads the account's pending nonce from the primary.
func (mc *MultiClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	err := mc.onPrimary(ctx, "PendingNonceAt", func(ctx context.Context, c *ethclient.Client) error {
		var err error
		nonce, err = c.PendingNonceAt(ctx, account)

		return err
	})

	return nonce, err
}

func (mc *MultiClient) ChainID(ctx context.Context) (*big.Int, error) {
	return withFailover(ctx, mc, "ChainID", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.ChainID(ctx)
	})
}

func (mc *MultiClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return withFailover(ctx, mc, "CallContract", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CallContract(ctx, msg, blockNumber)
	})
}

func (mc *MultiClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return withFailover(ctx, mc, "CodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CodeAt(ctx, account, blockNumber)
	})
}

// TransactionReceipt returns ethereum.NotFound while the transaction is pending, without trying
// the backups.
func (mc *MultiClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return withFailover(ctx, mc, "TransactionReceipt", func(ctx context.Context, c *ethclient.Client) (*types.Receipt, error) {
		return c.TransactionReceipt(ctx, txHash)
	})
}

// Close closes every endpoint.
func (mc *MultiClient) Close() {
	for _, c := range mc.snapshot() {
		c.Close()
	}
}

func (mc *MultiClient) onPrimary(ctx context.Context, op string, call func(context.Context, *ethclient.Client) error) error {
	ctx, cancel := withCallTimeout(ctx, mc.retry.Timeout)
	defer cancel()

	if err := call(ctx, mc.snapshot()[0]); err != nil {
		mc.lggr.Warnw("RPC call failed", "chain", mc.chainName, "op", op, "error", maybeDataErr(err))

		return err
	}

	return nil
}

// withFailover runs call on each endpoint in turn, retrying it per RetryConfig, until one
// succeeds. ethereum.NotFound is an answer, not a failure, and is returned immediately.
func withFailover[T any](
	ctx context.Context, mc *MultiClient, op string, call func(context.Context, *ethclient.Client) (T, error),
) (T, error) {
	var (
		zero    T
		lastErr error
		traceID = uuid.NewString()
	)

	for i, c := range mc.snapshot() {
		var out T
		err := retry.Do(
			func() error {
				callCtx, cancel := withCallTimeout(ctx, mc.retry.Timeout)
				defer cancel()

				var err error
				out, err = call(callCtx, c)

				return err
			},
			retry.Attempts(mc.retry.Attempts),
			retry.Delay(mc.retry.Delay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool { return !errors.Is(err, ethereum.NotFound) }),
			retry.OnRetry(func(n uint, err error) {
				mc.lggr.Debugw("Retrying RPC call",
					"traceID", traceID, "chain", mc.chainName, "op", op, "endpoint", i, "attempt", n+1, "error", maybeDataErr(err))
			}),
		)
		if err == nil {
			mc.promote(i)

			return out, nil
		}
		if errors.Is(err, ethereum.NotFound) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, errors.Join(err, ctx.Err())
		}

		lastErr = err
		mc.lggr.Warnw("RPC endpoint failed, trying the next one",
			"traceID", traceID, "chain", mc.chainName, "op", op, "endpoint", i, "error", maybeDataErr(err))
	}

	return zero, errors.Join(lastErr, fmt.Errorf("all backup clients failed for chain %q", mc.chainName))
}

func (mc *MultiClient) dial(r RPC) (*ethclient.Client, error) {
	endpoint, err := r.ToEndpoint()
	if err != nil {
		return nil, err
	}

	var client *ethclient.Client
	err = retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), mc.retry.DialTimeout)
			defer cancel()

			var err error
			client, err = ethclient.DialContext(ctx, endpoint)

			return err
		},
		retry.Attempts(mc.retry.DialAttempts),
		retry.Delay(mc.retry.DialDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			mc.lggr.Debugw("Retrying dial", "chain", mc.chainName, "rpc", r.Name, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("failed to dial RPC %s for chain %s after retries", r.Name, mc.chainName))
	}

	return client, nil
}

// withCallTimeout bounds ctx by timeout unless it already has a deadline.
func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

// promote makes endpoints[i] the primary. The endpoints before it failed the call and rotate to
// the back in their current order.
func (mc *MultiClient) promote(i int) {
	if i == 0 {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if i >= len(mc.endpoints) {
		return
	}
	mc.endpoints = slices.Concat(mc.endpoints[i:], mc.endpoints[:i])
}

func (mc *MultiClient) snapshot() []*ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]*ethclient.Client(nil), mc.endpoints...)
}

func maybeDataErr(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}
