package provider

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
)

// SignerGenerator produces the deploying account from some key source.
type SignerGenerator interface {
	Generate() (evm.Account, error)
}

var (
	_ SignerGenerator = (*accountFromRaw)(nil)
	_ SignerGenerator = (*accountRandom)(nil)
)

// AccountFromRaw returns a generator which loads the account from a hex encoded private key.
// A leading 0x or 0X is accepted.
func AccountFromRaw(privKey string) SignerGenerator {
	return &accountFromRaw{privKey: privKey}
}

// accountFromRaw is a SignerGenerator that creates an account from a hex private key.
type accountFromRaw struct {
	privKey string
}

// Generate parses the hex encoded private key.
func (g *accountFromRaw) Generate() (evm.Account, error) {
	raw := strings.TrimSpace(g.privKey)
	if len(raw) >= 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		raw = raw[2:]
	}

	privKey, err := crypto.HexToECDSA(raw)
	if err != nil {
		return evm.Account{}, fmt.Errorf("%w: failed to convert private key to ECDSA: %w", evm.ErrSigningFailure, err)
	}

	return evm.NewAccount(privKey)
}

// AccountRandom is a SignerGenerator that creates an account with a random private key.
// The key is generated the first time Generate is called, and the same key is used for
// subsequent calls.
func AccountRandom() SignerGenerator {
	return &accountRandom{}
}

// accountRandom is a SignerGenerator that creates an account from a random keypair.
type accountRandom struct {
	privKey *ecdsa.PrivateKey
}

// Generate generates a random key on first use.
func (g *accountRandom) Generate() (evm.Account, error) {
	if g.privKey == nil {
		privKey, err := crypto.GenerateKey()
		if err != nil {
			return evm.Account{}, fmt.Errorf("failed to generate random private key: %w", err)
		}
		g.privKey = privKey
	}

	return evm.NewAccount(g.privKey)
}
