package operations

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// Bundle is what a step handler gets besides its dependencies and input: the logger, the
// run context and, unexported, the reporter its execution is recorded in.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context
	reporter   Reporter
}

// NewBundle returns a Bundle. A nil reporter is only valid for handlers called directly.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter) Bundle {
	return Bundle{
		Logger:     lggr,
		GetContext: getContext,
		reporter:   reporter,
	}
}

// Reporter returns the reporter steps of this bundle are recorded in.
func (b Bundle) Reporter() Reporter {
	return b.reporter
}

// Definition identifies a step in reports.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// OperationHandler performs one step. It should send at most one transaction.
type OperationHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Operation is a single reported step. Create it with NewOperation and run it with
// ExecuteOperation.
type Operation[IN, OUT, DEP any] struct {
	def     Definition
	handler OperationHandler[IN, OUT, DEP]
}

// NewOperation returns an operation running handler.
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler OperationHandler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		def:     Definition{ID: id, Version: version, Description: description},
		handler: handler,
	}
}

// Def returns the definition the operation is reported under.
func (o *Operation[IN, OUT, DEP]) Def() Definition {
	return o.def
}

func (o *Operation[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (OUT, error) {
	b.Logger.Debugw("Executing operation",
		"id", o.def.ID, "version", o.def.Version, "description", o.def.Description)

	return o.handler(b, deps, input)
}

// SequenceHandler runs operations, in order, with the bundle it is given.
type SequenceHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Sequence is a reported group of operations. Create it with NewSequence and run it with
// ExecuteSequence.
type Sequence[IN, OUT, DEP any] struct {
	def     Definition
	handler SequenceHandler[IN, OUT, DEP]
}

// NewSequence returns a sequence running handler.
func NewSequence[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler SequenceHandler[IN, OUT, DEP],
) *Sequence[IN, OUT, DEP] {
	return &Sequence[IN, OUT, DEP]{
		def:     Definition{ID: id, Version: version, Description: description},
		handler: handler,
	}
}

// Def returns the definition the sequence is reported under.
func (s *Sequence[IN, OUT, DEP]) Def() Definition {
	return s.def
}
