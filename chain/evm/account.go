package evm

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is the single deploying account of a run. The private key never leaves the value:
// it is not exported, logged or serialized.
type Account struct {
	Address common.Address

	key *ecdsa.PrivateKey
}

// NewAccount derives the account address from the private key.
func NewAccount(key *ecdsa.PrivateKey) (Account, error) {
	if key == nil {
		return Account{}, fmt.Errorf("%w: private key is nil", ErrSigningFailure)
	}

	return Account{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}, nil
}

// CanSign reports whether the account holds key material.
func (a Account) CanSign() bool {
	return a.key != nil
}

// String returns the account address.
func (a Account) String() string {
	return a.Address.Hex()
}

// GoString prevents %#v from printing the key.
func (a Account) GoString() string {
	return fmt.Sprintf("evm.Account{Address: %s}", a.Address.Hex())
}
