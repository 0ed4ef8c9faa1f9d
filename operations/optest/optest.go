// Package optest provides utilities for operations testing.
package optest

import (
	"testing"

	"github.com/smartcontractkit/permissioning-deployer/operations"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// NewBundle creates a new operations bundle for testing with a test logger and a memory
// reporter.
func NewBundle(t *testing.T) operations.Bundle {
	t.Helper()

	return operations.NewBundle(t.Context, logger.Test(t), operations.NewMemoryReporter())
}

// Reports returns every report recorded by the bundle, failing the test if they cannot be read.
func Reports(t *testing.T, b operations.Bundle) []operations.Report[any, any] {
	t.Helper()

	reports, err := b.Reporter().GetReports()
	if err != nil {
		t.Fatalf("failed to read reports: %v", err)
	}

	return reports
}
