package deployment

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/permissioning-deployer/artifacts"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/operations"
)

// StepDeps are the dependencies of a deploy or link operation.
type StepDeps struct {
	Dispatcher Dispatcher
	Artifact   artifacts.Artifact
}

// DeployInput is the input of DeployContractOp.
type DeployInput struct {
	Node     string           `json:"node"`
	Contract string           `json:"contract"`
	Args     []common.Address `json:"args"`
}

// LinkInput is the input of LinkContractOp.
type LinkInput struct {
	Target   string           `json:"target"`
	Contract string           `json:"contract"`
	To       common.Address   `json:"to"`
	Method   string           `json:"method"`
	Args     []common.Address `json:"args"`
}

// DeployContractOp sends the creation transaction of one contract.
var DeployContractOp = operations.NewOperation(
	"deploy-contract",
	semver.MustParse("1.0.0"),
	"Deploys a contract with its constructor arguments",
	func(b operations.Bundle, deps StepDeps, in DeployInput) (evm.Receipt, error) {
		data, err := deps.Artifact.DeployData(addressArgs(in.Args)...)
		if err != nil {
			return evm.Receipt{}, stepError(in.Contract, StepDeploy, err)
		}

		receipt, err := deps.Dispatcher.Dispatch(b.GetContext(), evm.PartialRequest{Data: data})
		if err != nil {
			return evm.Receipt{}, stepError(in.Contract, StepDeploy, err)
		}

		return receipt, nil
	},
)

// LinkContractOp calls a method of an already deployed contract.
var LinkContractOp = operations.NewOperation(
	"link-contract",
	semver.MustParse("1.0.0"),
	"Calls a deployed contract to link it with other contracts",
	func(b operations.Bundle, deps StepDeps, in LinkInput) (evm.Receipt, error) {
		data, err := deps.Artifact.CallData(in.Method, addressArgs(in.Args)...)
		if err != nil {
			return evm.Receipt{}, stepError(in.Contract, StepLink, err)
		}

		to := in.To
		receipt, err := deps.Dispatcher.Dispatch(b.GetContext(), evm.PartialRequest{To: &to, Data: data})
		if err != nil {
			return evm.Receipt{}, stepError(in.Contract, StepLink, fmt.Errorf("call %s: %w", in.Method, err))
		}

		return receipt, nil
	},
)

func addressArgs(addrs []common.Address) []any {
	args := make([]any, len(addrs))
	for i, a := range addrs {
		args[i] = a
	}

	return args
}
