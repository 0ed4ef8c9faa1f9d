package deployment_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/permissioning-deployer/artifacts"
	"github.com/smartcontractkit/permissioning-deployer/artifacts/artifacttest"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/deployment"
	"github.com/smartcontractkit/permissioning-deployer/deployment/deploymenttest"
	"github.com/smartcontractkit/permissioning-deployer/operations"
	"github.com/smartcontractkit/permissioning-deployer/operations/optest"
)

func TestDeployContractOp(t *testing.T) {
	t.Parallel()

	d := deploymenttest.NewDispatcher(t, 3)
	b := optest.NewBundle(t)
	up := common.HexToAddress("0x0000000000000000000000000000000000000abc")

	report, err := operations.ExecuteOperation(b, deployment.DeployContractOp, deployment.StepDeps{
		Dispatcher: d,
		Artifact:   artifacttest.Artifact(t, deployment.OrgManager, artifacttest.StubBytecode),
	}, deployment.DeployInput{Node: deployment.OrgManager, Contract: deployment.OrgManager, Args: []common.Address{up}})
	require.NoError(t, err)

	calls := d.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].To)
	assert.Equal(t, deployData(t, deployment.OrgManager, up), calls[0].Data)

	require.NotNil(t, report.Output.ContractAddress)
	assert.Equal(t, d.AddressAt(3), *report.Output.ContractAddress)
	assert.Equal(t, uint64(3), report.Output.Nonce)

	reports := optest.Reports(t, b)
	require.Len(t, reports, 1)
	assert.Equal(t, "deploy-contract", reports[0].Def.ID)
	assert.Equal(t, "1.0.0", reports[0].Def.Version.String())
	assert.Nil(t, reports[0].Err)

	// the report survives the JSON report file
	raw, err := json.Marshal(reports[0])
	require.NoError(t, err)

	var decoded struct {
		Input  deployment.DeployInput `json:"input"`
		Output evm.Receipt            `json:"output"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, deployment.DeployInput{
		Node: deployment.OrgManager, Contract: deployment.OrgManager, Args: []common.Address{up},
	}, decoded.Input)
	assert.Equal(t, report.Output, decoded.Output)
}

func TestDeployContractOp_Errors(t *testing.T) {
	t.Parallel()

	errRejected := errors.New("rejected")

	tests := []struct {
		name      string
		giveArgs  []common.Address
		wantErr   error
		wantCalls int
	}{
		{
			name:      "dispatch fails",
			giveArgs:  []common.Address{{}},
			wantErr:   errRejected,
			wantCalls: 1,
		},
		{
			name:      "constructor arguments do not match",
			giveArgs:  nil,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := deploymenttest.NewDispatcher(t, 0).FailAt(0, errRejected)
			b := optest.NewBundle(t)

			_, err := operations.ExecuteOperation(b, deployment.DeployContractOp, deployment.StepDeps{
				Dispatcher: d,
				Artifact:   artifacttest.Artifact(t, deployment.RoleManager, artifacttest.StubBytecode),
			}, deployment.DeployInput{Node: deployment.RoleManager, Contract: deployment.RoleManager, Args: tt.giveArgs})
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			var stepErr *deployment.StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, deployment.RoleManager, stepErr.Contract)
			assert.Equal(t, deployment.StepDeploy, stepErr.Step)
			assert.Len(t, d.Calls(), tt.wantCalls)

			// a failed step is still reported
			reports := optest.Reports(t, b)
			require.Len(t, reports, 1)
			require.NotNil(t, reports[0].Err)
			assert.Equal(t, err.Error(), reports[0].Err.Message)
		})
	}
}

func TestLinkContractOp(t *testing.T) {
	t.Parallel()

	d := deploymenttest.NewDispatcher(t, 8)
	b := optest.NewBundle(t)
	upgradable := artifacttest.Artifact(t, deployment.PermissionsUpgradable, artifacttest.StubBytecode)

	to := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	iface := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	impl := common.HexToAddress("0x00000000000000000000000000000000000000c3")

	report, err := operations.ExecuteOperation(b, deployment.LinkContractOp, deployment.StepDeps{
		Dispatcher: d,
		Artifact:   upgradable,
	}, deployment.LinkInput{
		Target:   deployment.PermissionsUpgradable,
		Contract: deployment.PermissionsUpgradable,
		To:       to,
		Method:   "init",
		Args:     []common.Address{iface, impl},
	})
	require.NoError(t, err)
	assert.Nil(t, report.Output.ContractAddress)
	assert.Equal(t, uint64(8), report.Output.Nonce)

	wantData, err := upgradable.CallData("init", iface, impl)
	require.NoError(t, err)

	calls := d.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].To)
	assert.Equal(t, to, *calls[0].To)
	assert.Equal(t, wantData, calls[0].Data)

	reports := optest.Reports(t, b)
	require.Len(t, reports, 1)
	assert.Equal(t, "link-contract", reports[0].Def.ID)
}

func TestLinkContractOp_DispatchFails(t *testing.T) {
	t.Parallel()

	errTimeout := errors.New("no receipt")
	d := deploymenttest.NewDispatcher(t, 0).FailAt(0, errTimeout)
	b := optest.NewBundle(t)

	_, err := operations.ExecuteOperation(b, deployment.LinkContractOp, deployment.StepDeps{
		Dispatcher: d,
		Artifact:   artifacttest.Artifact(t, deployment.PermissionsUpgradable, artifacttest.StubBytecode),
	}, deployment.LinkInput{
		Target:   deployment.PermissionsUpgradable,
		Contract: deployment.PermissionsUpgradable,
		Method:   "init",
		Args:     []common.Address{{}, {}},
	})
	require.ErrorIs(t, err, errTimeout)
	assert.ErrorContains(t, err, "call init")

	var stepErr *deployment.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, deployment.StepLink, stepErr.Step)

	reports := optest.Reports(t, b)
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Err)
}

// runGraphSeq executes DeployGraphSeq over the permissions graph with the stub artifacts.
func runGraphSeq(t *testing.T, d *deploymenttest.Dispatcher) (operations.Report[deployment.RunInput, deployment.RunOutput], *deployment.Result, []operations.Report[any, any], error) {
	t.Helper()

	g := deployment.PermissionsGraph()
	order, err := g.Order()
	require.NoError(t, err)

	resolved := make(map[string]artifacts.Artifact, len(order))
	for _, n := range order {
		resolved[n.Name] = artifacttest.Artifact(t, n.Name, artifacttest.StubBytecode)
	}

	names := make([]string, len(order))
	for i, n := range order {
		names[i] = n.Name
	}

	b := optest.NewBundle(t)
	result := deployment.NewResult("run-1")
	report, err := operations.ExecuteSequence(b, deployment.DeployGraphSeq, deployment.RunDeps{
		Dispatcher: d,
		Graph:      g,
		Order:      order,
		Artifacts:  resolved,
		Result:     result,
	}, deployment.RunInput{RunID: result.RunID, Account: d.Account().Address, Order: names})

	return report, result, optest.Reports(t, b), err
}

func TestDeployGraphSeq(t *testing.T) {
	t.Parallel()

	d := deploymenttest.NewDispatcher(t, 0)
	report, result, reports, err := runGraphSeq(t, d)
	require.NoError(t, err)

	require.NotNil(t, report.Output.LinkTx)
	link, ok := result.LinkReceipt()
	require.True(t, ok)
	assert.Equal(t, link.TxHash, *report.Output.LinkTx)
	assert.Equal(t, result.Addresses(), report.Output.Addresses)

	// eight deployments, the link step, then the sequence
	require.Len(t, reports, 10)
	for i := range 8 {
		assert.Equal(t, deployment.DeployContractOp.Def().ID, reports[i].Def.ID)
	}
	assert.Equal(t, deployment.LinkContractOp.Def().ID, reports[8].Def.ID)

	seq := reports[9]
	assert.Equal(t, deployment.DeployGraphSeq.Def().ID, seq.Def.ID)
	assert.Equal(t, report.ID, seq.ID)
	require.Len(t, seq.Children, 9)
	for i, id := range seq.Children {
		assert.Equal(t, reports[i].ID, id)
	}
}

func TestDeployGraphSeq_FailedDispatch(t *testing.T) {
	t.Parallel()

	errRejected := errors.New("rejected")
	d := deploymenttest.NewDispatcher(t, 0).FailAt(3, errRejected)

	report, result, reports, err := runGraphSeq(t, d)
	require.ErrorIs(t, err, errRejected)
	assert.Equal(t, 3, result.Len())

	// three deployments, the failed one, then the sequence
	require.Len(t, reports, 5)
	require.NotNil(t, reports[3].Err)
	assert.Nil(t, reports[2].Err)

	seq := reports[4]
	assert.Equal(t, report.ID, seq.ID)
	require.NotNil(t, seq.Err)
	assert.Equal(t, []string{reports[0].ID, reports[1].ID, reports[2].ID, reports[3].ID}, seq.Children)
}
