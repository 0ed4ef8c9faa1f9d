package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultGasLimit is the gas limit of every deployment transaction unless overridden.
const DefaultGasLimit uint64 = 0x47b7600

// TransactionRequest is a complete unsigned transaction, ready to be signed.
type TransactionRequest struct {
	Nonce    uint64
	From     common.Address
	To       *common.Address // nil for contract creation
	Value    *big.Int
	Data     []byte
	GasPrice *big.Int
	GasLimit uint64
	Identity ChainIdentity
}

// IsCreation reports whether the request deploys a contract.
func (r TransactionRequest) IsCreation() bool {
	return r.To == nil
}

// PartialRequest is what a caller hands to the dispatcher. Nil fields and a zero gas limit are
// completed from the dispatcher defaults.
type PartialRequest struct {
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasPrice *big.Int
	GasLimit uint64
}

// DispatchDefaults fills the fields a PartialRequest leaves unset.
type DispatchDefaults struct {
	To       *common.Address
	Value    *big.Int
	GasPrice *big.Int
	GasLimit uint64
}

// DefaultDispatchDefaults returns contract creation with no value, a zero gas price and
// DefaultGasLimit.
func DefaultDispatchDefaults() DispatchDefaults {
	return DispatchDefaults{
		To:       nil,
		Value:    big.NewInt(0),
		GasPrice: big.NewInt(0),
		GasLimit: DefaultGasLimit,
	}
}

// complete merges the partial request over the defaults.
func (d DispatchDefaults) complete(p PartialRequest) PartialRequest {
	out := p
	if out.To == nil {
		out.To = d.To
	}
	if out.Value == nil {
		out.Value = orZero(d.Value)
	}
	if out.GasPrice == nil {
		out.GasPrice = orZero(d.GasPrice)
	}
	if out.GasLimit == 0 {
		out.GasLimit = d.GasLimit
	}
	if out.GasLimit == 0 {
		out.GasLimit = DefaultGasLimit
	}

	return out
}

// RawSignedTransaction is the RLP encoding of a signed transaction, as sent with
// eth_sendRawTransaction.
type RawSignedTransaction []byte

// Hash returns the transaction hash, which is the keccak256 of the encoding.
func (r RawSignedTransaction) Hash() common.Hash {
	return crypto.Keccak256Hash(r)
}

// Decode parses the encoding back into a transaction.
func (r RawSignedTransaction) Decode() (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(r); err != nil {
		return nil, err
	}

	return tx, nil
}

// Receipt is the observed outcome of a mined transaction.
type Receipt struct {
	TxHash common.Hash `json:"transactionHash"`
	// ContractAddress is set only for a creation the node reported an address for.
	ContractAddress *common.Address `json:"contractAddress,omitempty"`
	Status          uint64          `json:"status"`
	BlockNumber     uint64          `json:"blockNumber"`
	Nonce           uint64          `json:"nonce"`
}

// newReceipt converts a node receipt.
func newReceipt(r *types.Receipt, nonce uint64, creation bool) Receipt {
	out := Receipt{
		TxHash: r.TxHash,
		Status: r.Status,
		Nonce:  nonce,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	if creation && r.ContractAddress != (common.Address{}) {
		addr := r.ContractAddress
		out.ContractAddress = &addr
	}

	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}

	return new(big.Int).Set(v)
}
