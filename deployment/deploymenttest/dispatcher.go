// Package deploymenttest provides a fake transaction dispatcher for deployment tests.
package deploymenttest

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider"
)

// Dispatcher mines every request as soon as it is dispatched. Creations get the address the
// account and nonce would produce on chain.
type Dispatcher struct {
	mu sync.Mutex

	account    evm.Account
	startNonce uint64
	requests   []evm.PartialRequest

	noAddressAt map[int]bool
	failAt      map[int]error
}

// NewDispatcher returns a Dispatcher for a random account whose first nonce is startNonce.
func NewDispatcher(t testing.TB, startNonce uint64) *Dispatcher {
	t.Helper()

	account, err := provider.AccountRandom().Generate()
	if err != nil {
		t.Fatalf("failed to generate account: %v", err)
	}

	return &Dispatcher{
		account:     account,
		startNonce:  startNonce,
		noAddressAt: map[int]bool{},
		failAt:      map[int]error{},
	}
}

// WithoutAddressAt makes the receipt of the call at index (0 based) carry no contract address.
func (d *Dispatcher) WithoutAddressAt(index int) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.noAddressAt[index] = true

	return d
}

// FailAt makes the call at index (0 based) return err.
func (d *Dispatcher) FailAt(index int, err error) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failAt[index] = err

	return d
}

// Account returns the sending account.
func (d *Dispatcher) Account() evm.Account {
	return d.account
}

// Dispatch records partial and returns its receipt.
func (d *Dispatcher) Dispatch(_ context.Context, partial evm.PartialRequest) (evm.Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := len(d.requests)
	d.requests = append(d.requests, partial)

	if err, ok := d.failAt[i]; ok {
		return evm.Receipt{}, err
	}

	nonce := d.startNonce + uint64(i) //nolint:gosec // G115: call index is never negative
	receipt := evm.Receipt{
		TxHash:      common.BigToHash(big.NewInt(int64(i + 1))),
		Status:      1,
		BlockNumber: uint64(i + 1), //nolint:gosec // G115: call index is never negative
		Nonce:       nonce,
	}
	if partial.To == nil && !d.noAddressAt[i] {
		addr := d.AddressAt(nonce)
		receipt.ContractAddress = &addr
	}

	return receipt, nil
}

// Calls returns the dispatched requests in order.
func (d *Dispatcher) Calls() []evm.PartialRequest {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]evm.PartialRequest(nil), d.requests...)
}

// AddressAt returns the contract address of a creation sent with nonce.
func (d *Dispatcher) AddressAt(nonce uint64) common.Address {
	return crypto.CreateAddress(d.account.Address, nonce)
}
