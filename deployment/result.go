package deployment

import (
	"encoding/json"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
)

// Result accumulates the receipts of a run in the order the nodes were deployed. Receipts are
// only ever added.
type Result struct {
	// RunID identifies the run in logs and reports.
	RunID string

	mu       sync.RWMutex
	receipts *linkedhashmap.Map // map[string]evm.Receipt
	link     *evm.Receipt
}

// NewResult returns an empty Result.
func NewResult(runID string) *Result {
	return &Result{
		RunID:    runID,
		receipts: linkedhashmap.New(),
	}
}

// record stores the receipt of a node. A node is deployed once per run, so an existing entry
// is never replaced.
func (r *Result) record(node string, receipt evm.Receipt) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.receipts.Get(node); found {
		return false
	}
	r.receipts.Put(node, receipt)

	return true
}

func (r *Result) recordLink(receipt evm.Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.link = &receipt
}

// Receipt returns the receipt of the named node.
func (r *Result) Receipt(node string) (evm.Receipt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, found := r.receipts.Get(node)
	if !found {
		return evm.Receipt{}, false
	}

	return v.(evm.Receipt), true
}

// Address returns the contract address deployed by the named node.
func (r *Result) Address(node string) (common.Address, bool) {
	receipt, ok := r.Receipt(node)
	if !ok || receipt.ContractAddress == nil {
		return common.Address{}, false
	}

	return *receipt.ContractAddress, true
}

// LinkReceipt returns the receipt of the link step once it is mined.
func (r *Result) LinkReceipt() (evm.Receipt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.link == nil {
		return evm.Receipt{}, false
	}

	return *r.link, true
}

// Nodes returns the names of the deployed nodes in deployment order.
func (r *Result) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, r.receipts.Size())
	for _, k := range r.receipts.Keys() {
		names = append(names, k.(string))
	}

	return names
}

// Addresses returns the deployed contract address of every node that has one.
func (r *Result) Addresses() map[string]common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := make(map[string]common.Address, r.receipts.Size())
	it := r.receipts.Iterator()
	for it.Next() {
		receipt := it.Value().(evm.Receipt)
		if receipt.ContractAddress != nil {
			addrs[it.Key().(string)] = *receipt.ContractAddress
		}
	}

	return addrs
}

// Len returns the number of deployed nodes.
func (r *Result) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.receipts.Size()
}

type resultEntry struct {
	Node    string      `json:"node"`
	Receipt evm.Receipt `json:"receipt"`
}

// MarshalJSON encodes the result with the receipts in deployment order.
func (r *Result) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]resultEntry, 0, r.receipts.Size())
	it := r.receipts.Iterator()
	for it.Next() {
		entries = append(entries, resultEntry{Node: it.Key().(string), Receipt: it.Value().(evm.Receipt)})
	}

	return json.Marshal(struct {
		RunID    string        `json:"runId"`
		Receipts []resultEntry `json:"receipts"`
		Link     *evm.Receipt  `json:"link,omitempty"`
	}{r.RunID, entries, r.link})
}
