package orchestrator

import (
	"errors"
	"fmt"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/callback"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
)

var (
	// ErrAuth rejects a request before any session mutation.
	ErrAuth = errors.New("authentication failed")
	// ErrValidation rejects a malformed request with no side effects.
	ErrValidation = errors.New("invalid request")
	// ErrOracleUnavailable is recovered inside the cycle and never returned
	// by Handle. It only appears as an assessment or reply reason.
	ErrOracleUnavailable = oracle.ErrUnavailable
	// ErrPersistence means the cycle did not durably complete.
	ErrPersistence = errors.New("persistence failure")
	// ErrCallbackDelivery is logged by the dispatcher and never returned.
	ErrCallbackDelivery = callback.ErrCallbackDelivery
)

// AuthError describes a rejected credential. Missing distinguishes an absent
// key from a wrong one.
type AuthError struct {
	Missing bool
}

func (e *AuthError) Error() string {
	if e.Missing {
		return "missing API key"
	}
	return "invalid API key"
}

func (e *AuthError) Unwrap() error { return ErrAuth }

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PersistenceError wraps a store failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }
