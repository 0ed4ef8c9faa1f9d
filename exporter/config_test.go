package exporter_test

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/permissioning-deployer/artifacts/artifacttest"
	"github.com/smartcontractkit/permissioning-deployer/deployment"
	"github.com/smartcontractkit/permissioning-deployer/deployment/deploymenttest"
	"github.com/smartcontractkit/permissioning-deployer/exporter"
	"github.com/smartcontractkit/permissioning-deployer/operations"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// runPermissions deploys the permissions graph against a fake dispatcher starting at nonce 0.
func runPermissions(t *testing.T, d *deploymenttest.Dispatcher) (*deployment.Result, error) {
	t.Helper()

	o := deployment.NewOrchestrator(d, artifacttest.Resolver(t), operations.NewMemoryReporter(), logger.Nop())

	return o.Run(t.Context(), deployment.PermissionsGraph())
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := exporter.DefaultPolicy()
	assert.Equal(t, exporter.Policy{
		NetworkAdminOrg:  "ADMINORG",
		NetworkAdminRole: "ADMIN",
		OrgAdminRole:     "ORGADMIN",
		SubOrgBreadth:    4,
		SubOrgDepth:      4,
	}, p)
	require.NoError(t, p.Validate())
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	err := exporter.Policy{SubOrgDepth: -1}.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "network admin org is required")
	assert.ErrorContains(t, err, "network admin role is required")
	assert.ErrorContains(t, err, "org admin role is required")
	assert.ErrorContains(t, err, "sub org breadth must be positive, got 0")
	assert.ErrorContains(t, err, "sub org depth must be positive, got -1")
}

func TestBuild(t *testing.T) {
	t.Parallel()

	d := deploymenttest.NewDispatcher(t, 0)
	result, err := runPermissions(t, d)
	require.NoError(t, err)

	account := d.Account().Address
	cfg, err := exporter.Build(result, account, exporter.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, exporter.PermissionConfig{
		PermissionModel:   "v2",
		UpgradableAddress: d.AddressAt(0).Hex(),
		AccountMgrAddress: d.AddressAt(1).Hex(),
		NodeMgrAddress:    d.AddressAt(2).Hex(),
		OrgMgrAddress:     d.AddressAt(3).Hex(),
		InterfaceAddress:  d.AddressAt(4).Hex(),
		RoleMgrAddress:    d.AddressAt(5).Hex(),
		VoterMgrAddress:   d.AddressAt(6).Hex(),
		ImplAddress:       d.AddressAt(7).Hex(),
		NwAdminOrg:        "ADMINORG",
		NwAdminRole:       "ADMIN",
		OrgAdminRole:      "ORGADMIN",
		Accounts:          []string{account.Hex()},
		SubOrgBreadth:     4,
		SubOrgDepth:       4,
	}, cfg)

	b, err := json.Marshal(cfg)
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(b, &keys))
	want := []string{
		"permissionModel", "upgradableAddress", "interfaceAddress", "implAddress",
		"nodeMgrAddress", "accountMgrAddress", "roleMgrAddress", "voterMgrAddress", "orgMgrAddress",
		"nwAdminOrg", "nwAdminRole", "orgAdminRole", "accounts", "subOrgBreadth", "subOrgDepth",
	}
	got := make([]string, 0, len(keys))
	for k := range keys {
		got = append(got, k)
	}
	assert.ElementsMatch(t, want, got)
	assert.Equal(t, []any{account.Hex()}, keys["accounts"])
	assert.InDelta(t, 4, keys["subOrgDepth"], 0)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	aborted, err := runPermissions(t, deploymenttest.NewDispatcher(t, 0).WithoutAddressAt(0))
	require.ErrorIs(t, err, deployment.ErrDeploymentAborted)

	unlinked, err := runPermissions(t, deploymenttest.NewDispatcher(t, 0).FailAt(8, assert.AnError))
	require.ErrorIs(t, err, assert.AnError)

	complete, err := runPermissions(t, deploymenttest.NewDispatcher(t, 0))
	require.NoError(t, err)

	tests := []struct {
		name       string
		giveResult *deployment.Result
		givePolicy exporter.Policy
		wantErr    string
	}{
		{
			name:       "nil result",
			givePolicy: exporter.DefaultPolicy(),
			wantErr:    "incomplete deployment result: no result",
		},
		{
			name:       "missing addresses",
			giveResult: aborted,
			givePolicy: exporter.DefaultPolicy(),
			wantErr: "no address for PermissionsUpgradable, PermissionsInterface, PermissionsImplementation, " +
				"NodeManager, AccountManager, RoleManager, VoterManager, OrgManager",
		},
		{
			name:       "link not mined",
			giveResult: unlinked,
			givePolicy: exporter.DefaultPolicy(),
			wantErr:    "incomplete deployment result: link step not mined",
		},
		{
			name:       "invalid policy",
			giveResult: complete,
			givePolicy: exporter.Policy{},
			wantErr:    "invalid policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := exporter.Build(tt.giveResult, common.HexToAddress("0x01"), tt.givePolicy)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	d := deploymenttest.NewDispatcher(t, 0)
	result, err := runPermissions(t, d)
	require.NoError(t, err)

	sink := exporter.NewMemorySink()
	cfg, err := exporter.Export(t.Context(), sink, result, d.Account().Address, exporter.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, []exporter.PermissionConfig{cfg}, sink.Written())

	incomplete := exporter.NewMemorySink()
	_, err = exporter.Export(t.Context(), incomplete, nil, d.Account().Address, exporter.DefaultPolicy())
	require.ErrorIs(t, err, exporter.ErrIncompleteResult)
	assert.Empty(t, incomplete.Written(), "nothing is written for an incomplete result")
}
