package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// Signer turns transaction requests into signed raw transactions for one account on one chain.
// Signing is deterministic: the same request always yields the same bytes.
type Signer struct {
	account  Account
	identity ChainIdentity
}

// NewSigner returns a Signer for the account. Every request it signs must carry identity.
func NewSigner(account Account, identity ChainIdentity) *Signer {
	return &Signer{account: account, identity: identity}
}

// Account returns the account the signer signs for.
func (s *Signer) Account() Account {
	return s.account
}

// Sign builds a legacy transaction from the request and signs it under the signer's chain
// identity. A request for any other identity is refused.
func (s *Signer) Sign(req TransactionRequest) (RawSignedTransaction, error) {
	if !req.Identity.Equal(s.identity) {
		return nil, fmt.Errorf("%w: request is for %s, signer is bound to %s",
			ErrInvalidChainIdentity, req.Identity, s.identity,
		)
	}

	txSigner, err := s.identity.TxSigner()
	if err != nil {
		return nil, err
	}
	if !s.account.CanSign() {
		return nil, fmt.Errorf("%w: account %s has no key", ErrSigningFailure, s.account)
	}
	if req.From != s.account.Address {
		return nil, fmt.Errorf("%w: request sender %s is not the signing account %s",
			ErrSigningFailure, req.From, s.account,
		)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    req.Nonce,
		GasPrice: orZero(req.GasPrice),
		Gas:      req.GasLimit,
		To:       req.To,
		Value:    orZero(req.Value),
		Data:     req.Data,
	})

	signed, err := types.SignTx(tx, txSigner, s.account.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: encode signed transaction: %w", ErrSigningFailure, err)
	}

	return raw, nil
}
