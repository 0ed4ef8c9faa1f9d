package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/smartcontractkit/permissioning-deployer/internal/jsonutils"
)

// Resolver looks up the artifact of a contract by name.
type Resolver interface {
	Resolve(name string) (Artifact, error)
}

var (
	_ Resolver = (*DirResolver)(nil)
	_ Resolver = (*MemoryResolver)(nil)
)

// DirResolver reads artifacts from a directory. A contract is stored either as a pair of
// <Name>.abi (JSON ABI) and <Name>.bin (hex bytecode) files, or as a single <Name>.json build
// file with "abi" and "bytecode" fields. Loaded artifacts are cached.
type DirResolver struct {
	fsys fs.ReadFileFS

	mu    sync.Mutex
	cache map[string]Artifact
}

// NewDirResolver returns a resolver over the directory at dir.
func NewDirResolver(dir string) *DirResolver {
	return NewFSResolver(os.DirFS(dir).(fs.ReadFileFS))
}

// NewFSResolver returns a resolver over fsys.
func NewFSResolver(fsys fs.ReadFileFS) *DirResolver {
	return &DirResolver{fsys: fsys, cache: make(map[string]Artifact)}
}

// Resolve returns the artifact of the contract, or ErrMissingArtifact when neither file layout
// exists for it.
func (r *DirResolver) Resolve(name string) (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.cache[name]; ok {
		return a, nil
	}

	a, err := r.load(name)
	if err != nil {
		return Artifact{}, err
	}
	r.cache[name] = a

	return a, nil
}

func (r *DirResolver) load(name string) (Artifact, error) {
	abiJSON, err := r.fsys.ReadFile(name + ".abi")
	switch {
	case err == nil:
		code, berr := r.fsys.ReadFile(name + ".bin")
		if berr != nil {
			if errors.Is(berr, fs.ErrNotExist) {
				return Artifact{}, fmt.Errorf("%w: %s.bin not found", ErrMissingArtifact, name)
			}

			return Artifact{}, fmt.Errorf("failed to read %s.bin: %w", name, berr)
		}

		return New(name, abiJSON, string(code))
	case errors.Is(err, fs.ErrNotExist):
		return r.loadBuildFile(name)
	default:
		return Artifact{}, fmt.Errorf("failed to read %s.abi: %w", name, err)
	}
}

// buildFile is the subset of a compiler build output read by the resolver.
type buildFile struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

func (r *DirResolver) loadBuildFile(name string) (Artifact, error) {
	path := name + ".json"
	if _, err := fs.Stat(r.fsys, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrMissingArtifact, name)
		}

		return Artifact{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	bf, err := jsonutils.LoadFromFS[buildFile](r.fsys, path)
	if err != nil {
		return Artifact{}, err
	}
	if len(bf.ABI) == 0 {
		return Artifact{}, fmt.Errorf("contract %s: %s has no abi field", name, path)
	}

	return New(name, bf.ABI, bf.Bytecode)
}

// MemoryResolver serves artifacts held in memory.
type MemoryResolver struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

// NewMemoryResolver returns a resolver serving the given artifacts, keyed by their names.
func NewMemoryResolver(artifacts ...Artifact) *MemoryResolver {
	r := &MemoryResolver{artifacts: make(map[string]Artifact, len(artifacts))}
	for _, a := range artifacts {
		r.artifacts[a.Name] = a
	}

	return r
}

// Add stores a, replacing any artifact with the same name.
func (r *MemoryResolver) Add(a Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.artifacts[a.Name] = a
}

// Resolve returns the stored artifact or ErrMissingArtifact.
func (r *MemoryResolver) Resolve(name string) (Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.artifacts[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s", ErrMissingArtifact, name)
	}

	return a, nil
}
