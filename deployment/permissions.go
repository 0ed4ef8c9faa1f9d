package deployment

// Permissioning contract names.
const (
	PermissionsUpgradable     = "PermissionsUpgradable"
	AccountManager            = "AccountManager"
	NodeManager               = "NodeManager"
	OrgManager                = "OrgManager"
	PermissionsInterface      = "PermissionsInterface"
	RoleManager               = "RoleManager"
	VoterManager              = "VoterManager"
	PermissionsImplementation = "PermissionsImplementation"
)

// ManagerContracts are the contracts constructed with only the upgradable contract address, in
// deployment order.
var ManagerContracts = []string{
	AccountManager,
	NodeManager,
	OrgManager,
	PermissionsInterface,
	RoleManager,
	VoterManager,
}

// PermissionsGraph returns the permissioning contract graph: PermissionsUpgradable guarded
// first, the managers and interface next, then PermissionsImplementation, and finally
// PermissionsUpgradable.init(interface, implementation).
func PermissionsGraph() Graph {
	nodes := make([]Node, 0, len(ManagerContracts)+2)
	nodes = append(nodes, Node{
		Name: PermissionsUpgradable,
		Args: []ArgTemplate{AccountAddress()},
	})
	for _, name := range ManagerContracts {
		nodes = append(nodes, Node{
			Name: name,
			Args: []ArgTemplate{AddressOf(PermissionsUpgradable)},
		})
	}
	nodes = append(nodes, Node{
		Name: PermissionsImplementation,
		Args: []ArgTemplate{
			AddressOf(PermissionsUpgradable),
			AddressOf(OrgManager),
			AddressOf(RoleManager),
			AddressOf(AccountManager),
			AddressOf(VoterManager),
			AddressOf(NodeManager),
		},
		// the managers that PermissionsImplementation does not take as arguments are deployed
		// before it too
		DependsOn: []string{PermissionsInterface},
	})

	return Graph{
		Nodes: nodes,
		Guard: PermissionsUpgradable,
		Link: &LinkStep{
			Target: PermissionsUpgradable,
			Method: "init",
			Args: []ArgTemplate{
				AddressOf(PermissionsInterface),
				AddressOf(PermissionsImplementation),
			},
		},
	}
}
