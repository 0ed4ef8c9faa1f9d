package evm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// Dispatcher submits transactions for the chain's deployer account one at a time. A Dispatch
// call holds the dispatcher until the receipt of its transaction is observed, so a nonce is
// never read while an earlier transaction of the account is in flight.
type Dispatcher struct {
	mu sync.Mutex

	chain     Chain
	defaults  DispatchDefaults
	signer    *Signer
	sequencer *NonceSequencer
	lggr      logger.Logger
}

// NewDispatcher returns a Dispatcher for the chain. Zero valued defaults fall back to
// DefaultDispatchDefaults.
func NewDispatcher(chain Chain, lggr logger.Logger, defaults DispatchDefaults) (*Dispatcher, error) {
	if err := chain.Identity.Validate(); err != nil {
		return nil, err
	}
	if chain.Client == nil {
		return nil, errors.New("chain client is required")
	}
	if chain.Confirm == nil {
		return nil, errors.New("chain confirm function is required")
	}
	if !chain.Deployer.CanSign() {
		return nil, fmt.Errorf("%w: deployer account has no key", ErrSigningFailure)
	}

	base := DefaultDispatchDefaults()
	if defaults.Value != nil {
		base.Value = defaults.Value
	}
	if defaults.GasPrice != nil {
		base.GasPrice = defaults.GasPrice
	}
	if defaults.GasLimit != 0 {
		base.GasLimit = defaults.GasLimit
	}
	base.To = defaults.To

	return &Dispatcher{
		chain:     chain,
		defaults:  base,
		signer:    NewSigner(chain.Deployer, chain.Identity),
		sequencer: NewNonceSequencer(chain.Client),
		lggr:      lggr.Named("dispatcher"),
	}, nil
}

// Account returns the account the dispatcher sends from.
func (d *Dispatcher) Account() Account {
	return d.chain.Deployer
}

// Dispatch completes the request with the next nonce and the defaults, signs it, broadcasts it
// once and waits for its receipt.
func (d *Dispatcher) Dispatch(ctx context.Context, partial PartialRequest) (Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lggr.Info("Creating transaction...")

	nonce, err := d.sequencer.NextNonce(ctx, d.chain.Deployer)
	if err != nil {
		return Receipt{}, err
	}

	p := d.defaults.complete(partial)
	req := TransactionRequest{
		Nonce:    nonce,
		From:     d.chain.Deployer.Address,
		To:       p.To,
		Value:    p.Value,
		Data:     p.Data,
		GasPrice: p.GasPrice,
		GasLimit: p.GasLimit,
		Identity: d.chain.Identity,
	}

	raw, err := d.signer.Sign(req)
	if err != nil {
		return Receipt{}, err
	}
	txHash := raw.Hash()

	d.lggr.Debugw("Sending transaction",
		"nonce", nonce,
		"to", targetString(req),
		"txHash", txHash.Hex(),
	)

	if err = d.chain.Client.SendRawTransaction(ctx, raw); err != nil {
		return Receipt{}, fmt.Errorf("%w: tx %s: %w", ErrSubmissionRejected, txHash.Hex(), err)
	}

	// the confirm function takes the decoded transaction
	tx, err := raw.Decode()
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: decode signed transaction %s: %w", ErrSigningFailure, txHash.Hex(), err)
	}

	receipt, err := d.chain.Confirm(ctx, tx)
	if err != nil {
		return Receipt{}, confirmError(err)
	}
	if receipt == nil {
		return Receipt{}, fmt.Errorf("%w: no receipt for tx %s", ErrTransportFailure, txHash.Hex())
	}

	d.lggr.Debugw("Transaction mined",
		"txHash", receipt.TxHash.Hex(),
		"block", receipt.BlockNumber,
		"status", receipt.Status,
	)

	out := newReceipt(receipt, nonce, req.IsCreation())
	if out.ContractAddress != nil {
		if err = d.checkCode(ctx, &out); err != nil {
			return Receipt{}, err
		}
	}

	return out, nil
}

// checkCode drops the contract address of a creation receipt when no code was left at it, as
// happens when a constructor returns empty runtime code.
func (d *Dispatcher) checkCode(ctx context.Context, receipt *Receipt) error {
	code, err := d.chain.Client.CodeAt(ctx, *receipt.ContractAddress, nil)
	if err != nil {
		return fmt.Errorf("%w: read code at %s: %w", ErrTransportFailure, receipt.ContractAddress.Hex(), err)
	}
	if len(code) == 0 {
		d.lggr.Warnw("Created contract has no code",
			"address", receipt.ContractAddress.Hex(),
			"txHash", receipt.TxHash.Hex(),
		)
		receipt.ContractAddress = nil
	}

	return nil
}

// confirmError classifies an error from waiting on a receipt.
func confirmError(err error) error {
	switch {
	case errors.Is(err, ErrDispatchTimeout),
		errors.Is(err, ErrSubmissionRejected),
		errors.Is(err, ErrTransportFailure):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrDispatchTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
}

func targetString(req TransactionRequest) string {
	if req.IsCreation() {
		return "<create>"
	}

	return req.To.Hex()
}
