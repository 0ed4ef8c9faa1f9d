// Package exporter turns a finished permissioning deployment into the permission configuration
// record read by the network's nodes.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/permissioning-deployer/deployment"
)

// PermissionModel is the permission model version tag of the exported record.
const PermissionModel = "v2"

// ErrIncompleteResult is returned when a deployment result lacks an address the record needs.
var ErrIncompleteResult = errors.New("incomplete deployment result")

// Policy holds the fixed network administration constants of the record.
type Policy struct {
	NetworkAdminOrg  string
	NetworkAdminRole string
	OrgAdminRole     string
	SubOrgBreadth    int
	SubOrgDepth      int
}

// DefaultPolicy returns the policy of a new permissioned network.
func DefaultPolicy() Policy {
	return Policy{
		NetworkAdminOrg:  "ADMINORG",
		NetworkAdminRole: "ADMIN",
		OrgAdminRole:     "ORGADMIN",
		SubOrgBreadth:    4,
		SubOrgDepth:      4,
	}
}

// Validate checks that every constant is set.
func (p Policy) Validate() error {
	var errs []error
	if p.NetworkAdminOrg == "" {
		errs = append(errs, errors.New("network admin org is required"))
	}
	if p.NetworkAdminRole == "" {
		errs = append(errs, errors.New("network admin role is required"))
	}
	if p.OrgAdminRole == "" {
		errs = append(errs, errors.New("org admin role is required"))
	}
	if p.SubOrgBreadth <= 0 {
		errs = append(errs, fmt.Errorf("sub org breadth must be positive, got %d", p.SubOrgBreadth))
	}
	if p.SubOrgDepth <= 0 {
		errs = append(errs, fmt.Errorf("sub org depth must be positive, got %d", p.SubOrgDepth))
	}

	return errors.Join(errs...)
}

// PermissionConfig is the exported record. Addresses are checksummed hex strings.
type PermissionConfig struct {
	PermissionModel   string   `json:"permissionModel" yaml:"permissionModel" toml:"permissionModel"`
	UpgradableAddress string   `json:"upgradableAddress" yaml:"upgradableAddress" toml:"upgradableAddress"`
	InterfaceAddress  string   `json:"interfaceAddress" yaml:"interfaceAddress" toml:"interfaceAddress"`
	ImplAddress       string   `json:"implAddress" yaml:"implAddress" toml:"implAddress"`
	NodeMgrAddress    string   `json:"nodeMgrAddress" yaml:"nodeMgrAddress" toml:"nodeMgrAddress"`
	AccountMgrAddress string   `json:"accountMgrAddress" yaml:"accountMgrAddress" toml:"accountMgrAddress"`
	RoleMgrAddress    string   `json:"roleMgrAddress" yaml:"roleMgrAddress" toml:"roleMgrAddress"`
	VoterMgrAddress   string   `json:"voterMgrAddress" yaml:"voterMgrAddress" toml:"voterMgrAddress"`
	OrgMgrAddress     string   `json:"orgMgrAddress" yaml:"orgMgrAddress" toml:"orgMgrAddress"`
	NwAdminOrg        string   `json:"nwAdminOrg" yaml:"nwAdminOrg" toml:"nwAdminOrg"`
	NwAdminRole       string   `json:"nwAdminRole" yaml:"nwAdminRole" toml:"nwAdminRole"`
	OrgAdminRole      string   `json:"orgAdminRole" yaml:"orgAdminRole" toml:"orgAdminRole"`
	Accounts          []string `json:"accounts" yaml:"accounts" toml:"accounts"`
	SubOrgBreadth     int      `json:"subOrgBreadth" yaml:"subOrgBreadth" toml:"subOrgBreadth"`
	SubOrgDepth       int      `json:"subOrgDepth" yaml:"subOrgDepth" toml:"subOrgDepth"`
}

// Build creates the record of a permissions graph run. It fails unless every contract has an
// address and the link step is mined.
func Build(result *deployment.Result, account common.Address, policy Policy) (PermissionConfig, error) {
	if result == nil {
		return PermissionConfig{}, fmt.Errorf("%w: no result", ErrIncompleteResult)
	}
	if err := policy.Validate(); err != nil {
		return PermissionConfig{}, fmt.Errorf("invalid policy: %w", err)
	}

	var missing []string
	addr := func(node string) string {
		a, ok := result.Address(node)
		if !ok {
			missing = append(missing, node)
			return ""
		}

		return a.Hex()
	}

	cfg := PermissionConfig{
		PermissionModel:   PermissionModel,
		UpgradableAddress: addr(deployment.PermissionsUpgradable),
		InterfaceAddress:  addr(deployment.PermissionsInterface),
		ImplAddress:       addr(deployment.PermissionsImplementation),
		NodeMgrAddress:    addr(deployment.NodeManager),
		AccountMgrAddress: addr(deployment.AccountManager),
		RoleMgrAddress:    addr(deployment.RoleManager),
		VoterMgrAddress:   addr(deployment.VoterManager),
		OrgMgrAddress:     addr(deployment.OrgManager),
		NwAdminOrg:        policy.NetworkAdminOrg,
		NwAdminRole:       policy.NetworkAdminRole,
		OrgAdminRole:      policy.OrgAdminRole,
		Accounts:          []string{account.Hex()},
		SubOrgBreadth:     policy.SubOrgBreadth,
		SubOrgDepth:       policy.SubOrgDepth,
	}

	if len(missing) > 0 {
		return PermissionConfig{}, fmt.Errorf("%w: no address for %s", ErrIncompleteResult, strings.Join(missing, ", "))
	}
	if _, linked := result.LinkReceipt(); !linked {
		return PermissionConfig{}, fmt.Errorf("%w: link step not mined", ErrIncompleteResult)
	}

	return cfg, nil
}

// Export builds the record of result and writes it to sink.
func Export(ctx context.Context, sink Sink, result *deployment.Result, account common.Address, policy Policy) (PermissionConfig, error) {
	cfg, err := Build(result, account, policy)
	if err != nil {
		return PermissionConfig{}, err
	}

	if err = sink.Write(ctx, cfg); err != nil {
		return PermissionConfig{}, err
	}

	return cfg, nil
}
