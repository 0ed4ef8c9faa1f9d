// Package artifacttest provides stub permissioning contract artifacts for tests.
package artifacttest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartcontractkit/permissioning-deployer/artifacts"
)

const (
	// StubBytecode is creation code that deploys a one byte runtime (STOP). Constructor
	// arguments appended to it are ignored, and every call to the deployed contract succeeds.
	StubBytecode = "6001600c60003960016000f300"

	// RevertingBytecode is creation code that always reverts.
	RevertingBytecode = "60006000fd"
)

const (
	upgradableABI = `[
  {"type":"constructor","inputs":[{"name":"_guardian","type":"address"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"init","inputs":[{"name":"_permInterface","type":"address"},{"name":"_permImpl","type":"address"}],"outputs":[],"stateMutability":"nonpayable"}
]`
	managerABI = `[
  {"type":"constructor","inputs":[{"name":"_permUpgradable","type":"address"}],"stateMutability":"nonpayable"}
]`
	implementationABI = `[
  {"type":"constructor","inputs":[
    {"name":"_permUpgradable","type":"address"},
    {"name":"_orgManager","type":"address"},
    {"name":"_rolesManager","type":"address"},
    {"name":"_accountManager","type":"address"},
    {"name":"_voterManager","type":"address"},
    {"name":"_nodeManager","type":"address"}
  ],"stateMutability":"nonpayable"}
]`
)

// ABIs maps each permissioning contract name to a JSON ABI with its constructor and, for
// PermissionsUpgradable, the init method.
var ABIs = map[string]string{
	"PermissionsUpgradable":     upgradableABI,
	"AccountManager":            managerABI,
	"NodeManager":               managerABI,
	"OrgManager":                managerABI,
	"PermissionsInterface":      managerABI,
	"RoleManager":               managerABI,
	"VoterManager":              managerABI,
	"PermissionsImplementation": implementationABI,
}

// Artifact builds the stub artifact of a permissioning contract with the given bytecode.
func Artifact(t testing.TB, name string, bytecode string) artifacts.Artifact {
	t.Helper()

	abiJSON, ok := ABIs[name]
	if !ok {
		t.Fatalf("no stub ABI for contract %s", name)
	}

	a, err := artifacts.New(name, []byte(abiJSON), bytecode)
	if err != nil {
		t.Fatalf("failed to build stub artifact %s: %v", name, err)
	}

	return a
}

// Resolver returns a MemoryResolver holding every permissioning contract with StubBytecode.
func Resolver(t testing.TB) *artifacts.MemoryResolver {
	t.Helper()

	r := artifacts.NewMemoryResolver()
	for name := range ABIs {
		r.Add(Artifact(t, name, StubBytecode))
	}

	return r
}

// WriteDir writes every permissioning contract as <Name>.abi and <Name>.bin files into dir.
func WriteDir(t testing.TB, dir string) {
	t.Helper()

	for name, abiJSON := range ABIs {
		if err := os.WriteFile(filepath.Join(dir, name+".abi"), []byte(abiJSON), 0o600); err != nil {
			t.Fatalf("failed to write %s.abi: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".bin"), []byte(StubBytecode+"\n"), 0o600); err != nil {
			t.Fatalf("failed to write %s.bin: %v", name, err)
		}
	}
}
