package deployment

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/ksuid"

	"github.com/smartcontractkit/permissioning-deployer/artifacts"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/operations"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// Dispatcher sends one transaction at a time from a single account.
type Dispatcher interface {
	Account() evm.Account
	Dispatch(ctx context.Context, partial evm.PartialRequest) (evm.Receipt, error)
}

var _ Dispatcher = (*evm.Dispatcher)(nil)

// Orchestrator deploys a Graph node by node and then runs its link step. Nothing runs
// concurrently: each transaction is mined before the next one is built.
type Orchestrator struct {
	dispatcher Dispatcher
	resolver   artifacts.Resolver
	reporter   operations.Reporter
	lggr       logger.Logger
}

// NewOrchestrator returns an Orchestrator recording the steps of every run in reporter.
func NewOrchestrator(
	dispatcher Dispatcher, resolver artifacts.Resolver, reporter operations.Reporter, lggr logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		dispatcher: dispatcher,
		resolver:   resolver,
		reporter:   reporter,
		lggr:       lggr.Named("orchestrator"),
	}
}

// RunInput is the recorded input of a run.
type RunInput struct {
	RunID   string         `json:"runId"`
	Account common.Address `json:"account"`
	Order   []string       `json:"order"`
}

// RunOutput is the recorded output of a run.
type RunOutput struct {
	Addresses map[string]common.Address `json:"addresses"`
	LinkTx    *common.Hash              `json:"linkTx,omitempty"`
}

// RunDeps are the dependencies of DeployGraphSeq.
type RunDeps struct {
	Dispatcher Dispatcher
	Graph      Graph
	// Order is Graph's nodes in dependency order.
	Order     []Node
	Artifacts map[string]artifacts.Artifact
	Result    *Result
}

// DeployGraphSeq runs the deploy operation of every node in order, then the link operation.
var DeployGraphSeq = operations.NewSequence(
	"deploy-graph",
	semver.MustParse("1.0.0"),
	"Deploys a contract graph and runs its link step",
	deployGraph,
)

// Run deploys g. Every artifact is resolved before the first transaction is sent. The first
// error ends the run: no transaction is retried and nothing already deployed is undone. The
// returned Result holds the receipts obtained up to that point.
func (o *Orchestrator) Run(ctx context.Context, g Graph) (*Result, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	resolved, err := o.resolveArtifacts(g, order)
	if err != nil {
		return nil, err
	}

	result := NewResult(ksuid.New().String())
	names := make([]string, len(order))
	for i, n := range order {
		names[i] = n.Name
	}

	o.lggr.Infow("Starting deployment",
		"runID", result.RunID,
		"sequence", DeployGraphSeq.Def().ID,
		"account", o.dispatcher.Account().Address.Hex(),
		"contracts", len(order),
	)

	bundle := operations.NewBundle(func() context.Context { return ctx }, o.lggr, o.reporter)

	_, err = operations.ExecuteSequence(bundle, DeployGraphSeq, RunDeps{
		Dispatcher: o.dispatcher,
		Graph:      g,
		Order:      order,
		Artifacts:  resolved,
		Result:     result,
	}, RunInput{
		RunID:   result.RunID,
		Account: o.dispatcher.Account().Address,
		Order:   names,
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

func deployGraph(b operations.Bundle, deps RunDeps, in RunInput) (RunOutput, error) {
	ctx := b.GetContext()

	for _, node := range deps.Order {
		contract := node.ContractName()
		if err := ctx.Err(); err != nil {
			return RunOutput{}, stepError(contract, StepDeploy, err)
		}

		args, err := buildArgs(deps.Result, in.Account, node.Name, node.Args)
		if err != nil {
			return RunOutput{}, stepError(contract, StepDeploy, err)
		}

		report, err := operations.ExecuteOperation(b, DeployContractOp, StepDeps{
			Dispatcher: deps.Dispatcher,
			Artifact:   deps.Artifacts[contract],
		}, DeployInput{Node: node.Name, Contract: contract, Args: args})
		if err != nil {
			return RunOutput{}, err
		}

		receipt := report.Output
		if !deps.Result.record(node.Name, receipt) {
			return RunOutput{}, stepError(contract, StepDeploy, fmt.Errorf("node %s deployed twice", node.Name))
		}

		if receipt.ContractAddress == nil {
			if node.Name == deps.Graph.Guard {
				b.Logger.Errorf("Couldn't deploy %s contract", contract)
			} else {
				b.Logger.Errorw("Deployed contract has no address", "contract", contract, "tx", receipt.TxHash.Hex())
			}

			return RunOutput{}, stepError(contract, StepDeploy,
				fmt.Errorf("%w: no contract address in receipt of tx %s", ErrDeploymentAborted, receipt.TxHash.Hex()))
		}

		b.Logger.Infof("Deployed contract %s: %s", contract, receipt.ContractAddress.Hex())
	}

	out := RunOutput{Addresses: deps.Result.Addresses()}

	if deps.Graph.Link == nil {
		return out, nil
	}

	link := deps.Graph.Link
	target := contractOf(deps.Graph, link.Target)
	if err := ctx.Err(); err != nil {
		return RunOutput{}, stepError(target, StepLink, err)
	}

	to, ok := deps.Result.Address(link.Target)
	if !ok {
		return RunOutput{}, stepError(target, StepLink,
			fmt.Errorf("%w: link target %s has no contract address", ErrDeploymentAborted, link.Target))
	}

	args, err := buildArgs(deps.Result, in.Account, link.Target, link.Args)
	if err != nil {
		return RunOutput{}, stepError(target, StepLink, err)
	}

	report, err := operations.ExecuteOperation(b, LinkContractOp, StepDeps{
		Dispatcher: deps.Dispatcher,
		Artifact:   deps.Artifacts[target],
	}, LinkInput{Target: link.Target, Contract: target, To: to, Method: link.Method, Args: args})
	if err != nil {
		return RunOutput{}, err
	}

	deps.Result.recordLink(report.Output)
	b.Logger.Infof("Success call contract %s %s.", target, link.Method)

	hash := report.Output.TxHash
	out.LinkTx = &hash

	return out, nil
}

// buildArgs resolves argument templates against the addresses deployed so far.
func buildArgs(result *Result, account common.Address, user string, templates []ArgTemplate) ([]common.Address, error) {
	args := make([]common.Address, 0, len(templates))
	for _, t := range templates {
		ref, isRef := t.Ref()
		if !isRef {
			args = append(args, account)

			continue
		}

		addr, ok := result.Address(ref)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no contract address required by %s", ErrDeploymentAborted, ref, user)
		}
		args = append(args, addr)
	}

	return args, nil
}

func (o *Orchestrator) resolveArtifacts(g Graph, order []Node) (map[string]artifacts.Artifact, error) {
	resolved := make(map[string]artifacts.Artifact, len(order))
	for _, n := range order {
		contract := n.ContractName()
		if _, ok := resolved[contract]; ok {
			continue
		}

		a, err := o.resolver.Resolve(contract)
		if err != nil {
			return nil, stepError(contract, StepResolve, err)
		}
		resolved[contract] = a
	}

	if g.Link != nil {
		target := contractOf(g, g.Link.Target)
		if _, ok := resolved[target].ABI.Methods[g.Link.Method]; !ok {
			return nil, stepError(target, StepResolve,
				fmt.Errorf("method %q not found in ABI", g.Link.Method))
		}
	}

	return resolved, nil
}

func contractOf(g Graph, node string) string {
	for _, n := range g.Nodes {
		if n.Name == node {
			return n.ContractName()
		}
	}

	return node
}
