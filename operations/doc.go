/*
Package operations records each step of a deployment as a versioned, reportable operation.

# Core Components

Operation:
  - A single step with typed input, dependencies and output, identified by ID and semver version
  - Performs at most one side effect, e.g. sending one transaction

Sequence:
  - Groups the operations of one run; its report links to the reports of its operations

Reporter:
  - Stores the report of every executed operation and sequence
  - MemoryReporter keeps them in memory and can write them to a JSON file

Operations are executed once. A failed operation is reported and its error returned; it is
never retried.

# Basic Usage

	op := operations.NewOperation("deploy-contract", semver.MustParse("1.0.0"), "Deploy a contract", handler)

	bundle := operations.NewBundle(ctx, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(bundle, op, deps, input)
*/
package operations
