package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

const (
	// DefaultForkName is the network the custom chain is based on.
	DefaultForkName = "mainnet"
	// DefaultBaseProfile is the hardfork ruleset used when none is configured.
	DefaultBaseProfile = "istanbul"
	// DefaultNetworkName is the display name of a chain unknown to chain-selectors.
	DefaultNetworkName = "fpt-lab"
)

// signerFactories maps a hardfork profile to the transaction signer for that ruleset. Profiles
// before Spurious Dragon are absent since their signatures do not commit to a chain ID.
var signerFactories = map[string]func(chainID *big.Int) types.Signer{
	"spuriousdragon": func(id *big.Int) types.Signer { return types.NewEIP155Signer(id) },
	"byzantium":      func(id *big.Int) types.Signer { return types.NewEIP155Signer(id) },
	"constantinople": func(id *big.Int) types.Signer { return types.NewEIP155Signer(id) },
	"petersburg":     func(id *big.Int) types.Signer { return types.NewEIP155Signer(id) },
	"istanbul":       func(id *big.Int) types.Signer { return types.NewEIP155Signer(id) },
	"muirglacier":    func(id *big.Int) types.Signer { return types.NewEIP155Signer(id) },
	"berlin":         func(id *big.Int) types.Signer { return types.NewEIP2930Signer(id) },
	"london":         func(id *big.Int) types.Signer { return types.NewLondonSigner(id) },
	"arrowglacier":   func(id *big.Int) types.Signer { return types.NewLondonSigner(id) },
	"grayglacier":    func(id *big.Int) types.Signer { return types.NewLondonSigner(id) },
	"paris":          func(id *big.Int) types.Signer { return types.NewLondonSigner(id) },
	"shanghai":       func(id *big.Int) types.Signer { return types.NewLondonSigner(id) },
	"cancun":         func(id *big.Int) types.Signer { return types.NewCancunSigner(id) },
}

// ChainIdentity binds signed transactions to exactly one network. It must be identical for
// every transaction of a deployment run.
type ChainIdentity struct {
	ChainID   *big.Int
	NetworkID *big.Int
	// ForkName is the well known network whose parameters the custom chain is based on.
	ForkName string
	// BaseProfile is the hardfork ruleset the signer follows, e.g. "istanbul".
	BaseProfile string
}

// NewChainIdentity returns the identity of a custom network where the chain ID and network ID
// share one value, using the default fork and hardfork profile.
func NewChainIdentity(networkID uint64) ChainIdentity {
	id := new(big.Int).SetUint64(networkID)

	return ChainIdentity{
		ChainID:     id,
		NetworkID:   new(big.Int).Set(id),
		ForkName:    DefaultForkName,
		BaseProfile: DefaultBaseProfile,
	}
}

// Validate checks that both identifiers are present, positive and equal, and that the base
// profile is a ruleset with replay protection.
func (c ChainIdentity) Validate() error {
	if c.ChainID == nil || c.NetworkID == nil {
		return fmt.Errorf("%w: chain id and network id are required", ErrInvalidChainIdentity)
	}
	if c.ChainID.Sign() <= 0 {
		return fmt.Errorf("%w: chain id must be positive, got %s", ErrInvalidChainIdentity, c.ChainID)
	}
	if c.ChainID.Cmp(c.NetworkID) != 0 {
		return fmt.Errorf("%w: chain id %s does not match network id %s",
			ErrInvalidChainIdentity, c.ChainID, c.NetworkID,
		)
	}
	if _, ok := signerFactories[c.profile()]; !ok {
		return fmt.Errorf("%w: unsupported base profile %q", ErrInvalidChainIdentity, c.BaseProfile)
	}

	return nil
}

// Equal reports whether both identities describe the same network and ruleset.
func (c ChainIdentity) Equal(other ChainIdentity) bool {
	return bigEqual(c.ChainID, other.ChainID) &&
		bigEqual(c.NetworkID, other.NetworkID) &&
		c.ForkName == other.ForkName &&
		c.profile() == other.profile()
}

// TxSigner returns the go-ethereum signer for the identity's chain ID and base profile.
func (c ChainIdentity) TxSigner() (types.Signer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return signerFactories[c.profile()](c.ChainID), nil
}

// Name returns the chain-selectors name of the chain if it is a known EVM chain, otherwise the
// custom network name.
func (c ChainIdentity) Name() string {
	details, err := c.details()
	if err != nil || details.ChainName == "" {
		return DefaultNetworkName
	}

	return details.ChainName
}

// details looks the chain ID up in chain-selectors.
func (c ChainIdentity) details() (chainsel.ChainDetails, error) {
	if c.ChainID == nil {
		return chainsel.ChainDetails{}, fmt.Errorf("%w: chain id is nil", ErrInvalidChainIdentity)
	}

	return chainsel.GetChainDetailsByChainIDAndFamily(c.ChainID.String(), chainsel.FamilyEVM)
}

// String returns "<name> (<chain id>)".
func (c ChainIdentity) String() string {
	return fmt.Sprintf("%s (%s)", c.Name(), c.ChainID)
}

// profile returns the normalized base profile, falling back to the default.
func (c ChainIdentity) profile() string {
	if c.BaseProfile == "" {
		return DefaultBaseProfile
	}

	return strings.ToLower(c.BaseProfile)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Cmp(b) == 0
}
