package deployment

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/emirpasic/gods/utils"
)

// ErrInvalidGraph is returned when a deployment graph is malformed.
var ErrInvalidGraph = errors.New("invalid deployment graph")

type argKind int

const (
	argAccount argKind = iota
	argAddressOf
)

// ArgTemplate describes one constructor or call argument. It resolves to an address when the
// node using it runs.
type ArgTemplate struct {
	kind argKind
	node string
}

// AccountAddress is the address of the deploying account.
func AccountAddress() ArgTemplate {
	return ArgTemplate{kind: argAccount}
}

// AddressOf is the contract address deployed by the named node.
func AddressOf(node string) ArgTemplate {
	return ArgTemplate{kind: argAddressOf, node: node}
}

// Ref returns the node the argument refers to, if any.
func (a ArgTemplate) Ref() (string, bool) {
	return a.node, a.kind == argAddressOf
}

func (a ArgTemplate) String() string {
	if a.kind == argAccount {
		return "account"
	}

	return "address(" + a.node + ")"
}

// Node is one contract deployment.
type Node struct {
	// Name identifies the node in the graph and in the deployment result.
	Name string
	// Contract is the artifact deployed. Defaults to Name.
	Contract string
	// DependsOn lists nodes that must be deployed first in addition to those referenced by Args.
	DependsOn []string
	Args      []ArgTemplate
}

// ContractName returns the artifact name of the node.
func (n Node) ContractName() string {
	if n.Contract == "" {
		return n.Name
	}

	return n.Contract
}

// Dependencies returns DependsOn followed by the nodes referenced by Args, without duplicates.
func (n Node) Dependencies() []string {
	seen := make(map[string]struct{}, len(n.DependsOn)+len(n.Args))
	deps := make([]string, 0, len(n.DependsOn)+len(n.Args))
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		deps = append(deps, name)
	}

	for _, d := range n.DependsOn {
		add(d)
	}
	for _, a := range n.Args {
		if ref, ok := a.Ref(); ok {
			add(ref)
		}
	}

	return deps
}

// LinkStep is a method call on a deployed contract, sent after every node is deployed.
type LinkStep struct {
	// Target is the node whose contract is called.
	Target string
	Method string
	Args   []ArgTemplate
}

// Graph is a set of contract deployments with the dependencies between them.
type Graph struct {
	Nodes []Node
	// Link is optional.
	Link *LinkStep
	// Guard names the node whose missing contract address is reported as the failed guard.
	// Optional. A run aborts on any node whose receipt has no contract address, guard or not.
	Guard string
}

// Validate checks that node names are unique, every reference names a node of the graph and
// the dependencies have no cycle.
func (g Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}

	known := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Name == "" {
			return fmt.Errorf("%w: node with empty name", ErrInvalidGraph)
		}
		if _, ok := known[n.Name]; ok {
			return fmt.Errorf("%w: duplicate node %s", ErrInvalidGraph, n.Name)
		}
		known[n.Name] = struct{}{}
	}

	for _, n := range g.Nodes {
		for _, d := range n.Dependencies() {
			if _, ok := known[d]; !ok {
				return fmt.Errorf("%w: node %s depends on unknown node %s", ErrInvalidGraph, n.Name, d)
			}
		}
	}

	if g.Guard != "" {
		if _, ok := known[g.Guard]; !ok {
			return fmt.Errorf("%w: guard refers to unknown node %s", ErrInvalidGraph, g.Guard)
		}
	}

	if g.Link != nil {
		if g.Link.Method == "" {
			return fmt.Errorf("%w: link step has no method", ErrInvalidGraph)
		}
		if _, ok := known[g.Link.Target]; !ok {
			return fmt.Errorf("%w: link target refers to unknown node %s", ErrInvalidGraph, g.Link.Target)
		}
		for _, a := range g.Link.Args {
			if ref, ok := a.Ref(); ok {
				if _, found := known[ref]; !found {
					return fmt.Errorf("%w: link argument refers to unknown node %s", ErrInvalidGraph, ref)
				}
			}
		}
	}

	_, err := g.order()

	return err
}

// Order validates the graph and returns its nodes in dependency order. Among the nodes whose
// dependencies are all placed, the one declared first comes first, so a graph declared in
// dependency order is returned unchanged.
func (g Graph) Order() ([]Node, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g.order()
}

// order is Kahn's algorithm with the ready set ordered by declaration index.
func (g Graph) order() ([]Node, error) {
	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.Name] = i
	}

	indegree := make([]int, len(g.Nodes))
	dependents := make([][]int, len(g.Nodes))
	for i, n := range g.Nodes {
		for _, d := range n.Dependencies() {
			di := index[d]
			indegree[i]++
			dependents[di] = append(dependents[di], i)
		}
	}

	ready := priorityqueue.NewWith(utils.IntComparator)
	for i, deg := range indegree {
		if deg == 0 {
			ready.Enqueue(i)
		}
	}

	ordered := make([]Node, 0, len(g.Nodes))
	for !ready.Empty() {
		v, _ := ready.Dequeue()
		i := v.(int)
		ordered = append(ordered, g.Nodes[i])

		for _, dep := range dependents[i] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready.Enqueue(dep)
			}
		}
	}

	if len(ordered) != len(g.Nodes) {
		for i, deg := range indegree {
			if deg > 0 {
				return nil, fmt.Errorf("%w: dependency cycle through node %s", ErrInvalidGraph, g.Nodes[i].Name)
			}
		}
	}

	return ordered, nil
}
