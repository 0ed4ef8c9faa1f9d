package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
)

// ReceiptReader is the subset of the node client used to poll for receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var errTxNil = errors.New("tx was nil, nothing to confirm")

// ConfirmFunctor is an interface for creating a confirmation function for transactions on the
// EVM chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions sent by from.
	Generate(ctx context.Context, client evm.OnchainClient, from common.Address) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the node for the receipt, giving up after
// waitMinedTimeout.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // the same value we have in bind.WaitMined hardcoded in "go-ethereum"
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

// confirmFuncGeth implements the ConfirmFunctor interface which generates a confirmation function
// for transactions using the Geth client.
type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

// Generate returns a function that confirms transactions using the Geth client.
func (g *confirmFuncGeth) Generate(
	_ context.Context, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	if g.waitMinedTimeout <= 0 {
		return nil, errors.New("wait mined timeout must be positive")
	}

	return func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		if tx == nil {
			return nil, errTxNil
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash())
		if err != nil {
			return nil, waitError(tx, err)
		}

		return checkReceipt(ctxTimeout, client, from, tx, receipt)
	}, nil
}

// WaitMinedWithInterval polls for the receipt of txHash every tick until it is found. Errors
// other than ethereum.NotFound end the wait.
func WaitMinedWithInterval(ctx context.Context, tick time.Duration, b ReceiptReader, txHash common.Hash) (*types.Receipt, error) {
	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}

// waitError classifies an error from waiting on a receipt.
func waitError(tx *types.Transaction, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: tx %s was not mined in time: %w", evm.ErrDispatchTimeout, tx.Hash().Hex(), err)
	}

	return fmt.Errorf("%w: tx %s failed to confirm: %w", evm.ErrTransportFailure, tx.Hash().Hex(), err)
}

// checkReceipt turns a failed receipt into ErrSubmissionRejected carrying the revert reason when
// the node gives one.
func checkReceipt(
	ctx context.Context, caller ContractCaller, from common.Address, tx *types.Transaction, receipt *types.Receipt,
) (*types.Receipt, error) {
	if receipt == nil {
		return nil, fmt.Errorf("%w: receipt was nil for tx %s", evm.ErrTransportFailure, tx.Hash().Hex())
	}

	if receipt.Status == types.ReceiptStatusFailed {
		reason, err := revertReason(ctx, caller, from, tx, receipt)
		if err == nil && reason != "" {
			return nil, fmt.Errorf("%w: tx %s reverted: %s", evm.ErrSubmissionRejected, tx.Hash().Hex(), reason)
		}

		return nil, fmt.Errorf("%w: tx %s reverted, could not decode error reason",
			evm.ErrSubmissionRejected, tx.Hash().Hex(),
		)
	}

	return receipt, nil
}
