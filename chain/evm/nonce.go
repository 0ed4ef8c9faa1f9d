package evm

import (
	"context"
	"fmt"
)

// NonceSequencer reads the next nonce of the deploying account from the node. It keeps no
// local counter: every call is a fresh pending-nonce query, so each transaction must be
// confirmed before the next nonce is requested.
type NonceSequencer struct {
	reader NonceReader
}

// NewNonceSequencer returns a NonceSequencer querying reader.
func NewNonceSequencer(reader NonceReader) *NonceSequencer {
	return &NonceSequencer{reader: reader}
}

// NextNonce returns the pending transaction count of the account.
func (s *NonceSequencer) NextNonce(ctx context.Context, account Account) (uint64, error) {
	nonce, err := s.reader.PendingNonceAt(ctx, account.Address)
	if err != nil {
		return 0, fmt.Errorf("%w: pending nonce for %s: %w", ErrTransportFailure, account, err)
	}

	return nonce, nil
}
