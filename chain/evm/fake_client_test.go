package evm_test

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
)

// fakeClient is an in-memory node which mines every accepted transaction immediately.
type fakeClient struct {
	mu sync.Mutex

	chainID    *big.Int
	startNonce uint64
	sent       []*types.Transaction
	receipts   map[common.Hash]*types.Receipt
	nonceCalls int

	nonceErr  error
	sendErr   error
	codeErr   error
	revertAll bool
	// noCode leaves created contracts without runtime code.
	noCode bool
	code   map[common.Address][]byte
}

var _ evm.OnchainClient = (*fakeClient)(nil)

func newFakeClient(chainID int64, startNonce uint64) *fakeClient {
	return &fakeClient{
		chainID:    big.NewInt(chainID),
		startNonce: startNonce,
		receipts:   make(map[common.Hash]*types.Receipt),
		code:       make(map[common.Address][]byte),
	}
}

func (f *fakeClient) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nonceCalls++
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}

	return f.startNonce + uint64(len(f.sent)), nil
}

func (f *fakeClient) SendRawTransaction(_ context.Context, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return err
	}
	f.sent = append(f.sent, tx)

	status := types.ReceiptStatusSuccessful
	if f.revertAll {
		status = types.ReceiptStatusFailed
	}
	receipt := &types.Receipt{
		TxHash:      tx.Hash(),
		Status:      status,
		BlockNumber: big.NewInt(int64(len(f.sent))),
	}
	if tx.To() == nil {
		signer := types.NewEIP155Signer(f.chainID)
		from, err := types.Sender(signer, tx)
		if err != nil {
			return err
		}
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		if !f.noCode && !f.revertAll {
			f.code[receipt.ContractAddress] = []byte{0x00}
		}
	}
	f.receipts[tx.Hash()] = receipt

	return nil
}

func (f *fakeClient) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}

	return r, nil
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeClient) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.codeErr != nil {
		return nil, f.codeErr
	}

	return f.code[account], nil
}

func (f *fakeClient) sentTxs() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*types.Transaction(nil), f.sent...)
}

// confirmFromFake returns receipts straight from the fake node.
func confirmFromFake(f *fakeClient) evm.ConfirmFunc {
	return func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		r, err := f.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, err
		}
		if r.Status == types.ReceiptStatusFailed {
			return nil, evm.ErrSubmissionRejected
		}

		return r, nil
	}
}
