// Package artifacts loads the compiled contracts a deployment needs: the ABI describing a
// contract's constructor and methods, and the creation bytecode.
package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrMissingArtifact is returned when no artifact exists for a contract name.
var ErrMissingArtifact = errors.New("missing artifact")

// Artifact is a compiled contract. It is not modified after it is loaded.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// New parses a JSON ABI and hex encoded creation bytecode into an Artifact. The bytecode may
// carry a 0x prefix and surrounding whitespace.
func New(name string, abiJSON []byte, bytecodeHex string) (Artifact, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return Artifact{}, fmt.Errorf("contract %s: failed to parse ABI: %w", name, err)
	}

	code, err := decodeBytecode(bytecodeHex)
	if err != nil {
		return Artifact{}, fmt.Errorf("contract %s: %w", name, err)
	}

	return Artifact{Name: name, ABI: parsed, Bytecode: code}, nil
}

// DeployData returns the payload of a creation transaction: the bytecode followed by the ABI
// encoded constructor arguments.
func (a Artifact) DeployData(args ...any) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("contract %s: failed to encode constructor arguments: %w", a.Name, err)
	}

	data := make([]byte, 0, len(a.Bytecode)+len(packed))
	data = append(data, a.Bytecode...)

	return append(data, packed...), nil
}

// CallData returns the ABI encoded call of method with args.
func (a Artifact) CallData(method string, args ...any) ([]byte, error) {
	if _, ok := a.ABI.Methods[method]; !ok {
		return nil, fmt.Errorf("contract %s: method %q not found in ABI", a.Name, method)
	}

	data, err := a.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("contract %s: failed to encode %s arguments: %w", a.Name, method, err)
	}

	return data, nil
}

func decodeBytecode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	if len(code) == 0 {
		return nil, errors.New("bytecode is empty")
	}

	return code, nil
}
