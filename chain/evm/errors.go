package evm

import "errors"

var (
	// ErrInvalidChainIdentity is returned when a chain identity is incomplete or inconsistent.
	ErrInvalidChainIdentity = errors.New("invalid chain identity")
	// ErrSigningFailure is returned when key material is malformed or a transaction cannot be
	// signed.
	ErrSigningFailure = errors.New("signing failure")
	// ErrTransportFailure is returned when a nonce query or receipt poll fails at the transport.
	ErrTransportFailure = errors.New("transport failure")
	// ErrSubmissionRejected is returned when the node refuses a raw transaction, or mines it
	// with a failed status.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrDispatchTimeout is returned when no receipt is observed before the wait deadline.
	ErrDispatchTimeout = errors.New("dispatch timeout")
)
