package deployment

import (
	"errors"
	"fmt"
)

// ErrDeploymentAborted is returned when a node yields no contract address that the rest of the
// run needs.
var ErrDeploymentAborted = errors.New("deployment aborted")

// Step names the phase of a run an error occurred in.
type Step string

const (
	StepResolve Step = "resolve"
	StepDeploy  Step = "deploy"
	StepLink    Step = "link"
)

// StepError reports the contract and step a run failed at.
type StepError struct {
	Contract string
	Step     Step
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("contract %s: %s: %v", e.Contract, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(contract string, step Step, err error) error {
	return &StepError{Contract: contract, Step: step, Err: err}
}
