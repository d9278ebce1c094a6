package ledger

import (
	"errors"
	"fmt"

	"github.com/roach88/provledger/internal/ir"
)

// Error is a ledger operation failure with enough context to tell the
// taxonomy kind apart and to locate the affected event.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Stage is the last lifecycle stage the event reached.
	Stage Stage

	// Message is a human-readable description.
	Message string

	Subject string
	Object  string
	Hash    string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeInvalidInput: empty or malformed input, rejected before persistence.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeDuplicateHash: the digest already exists; the event was not stored.
	ErrCodeDuplicateHash ErrorCode = "DUPLICATE_HASH"

	// ErrCodeStorageUnavailable: the store could not be opened, read or written.
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// ErrCodeProofSystemUnavailable: circuit artifacts are missing or invalid.
	ErrCodeProofSystemUnavailable ErrorCode = "PROOF_SYSTEM_UNAVAILABLE"

	// ErrCodeProofTimeout: proof generation exceeded its deadline.
	ErrCodeProofTimeout ErrorCode = "PROOF_TIMEOUT"

	// ErrCodeNotFound: no event matches the lookup.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInternal: anything else.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Hash != "" {
		msg += fmt.Sprintf(" (hash=%s)", e.Hash)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause so errors.Is sees the ir sentinels.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf classifies err. It returns "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return codeForCause(err)
}

func codeForCause(err error) ErrorCode {
	switch {
	case errors.Is(err, ir.ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, ir.ErrDuplicateHash):
		return ErrCodeDuplicateHash
	case errors.Is(err, ir.ErrStorageUnavailable):
		return ErrCodeStorageUnavailable
	case errors.Is(err, ir.ErrProofSystemUnavailable):
		return ErrCodeProofSystemUnavailable
	case errors.Is(err, ir.ErrProofTimeout):
		return ErrCodeProofTimeout
	case errors.Is(err, ir.ErrEventNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInternal
	}
}

// newError wraps cause, deriving the code from it.
func newError(stage Stage, msg string, cause error) *Error {
	return &Error{
		Code:    codeForCause(cause),
		Stage:   stage,
		Message: msg,
		Err:     cause,
	}
}

func invalidInput(msg string) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Stage:   StagePending,
		Message: msg,
		Err:     ir.ErrInvalidInput,
	}
}
