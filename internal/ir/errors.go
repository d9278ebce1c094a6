package ir

import "errors"

// Error taxonomy shared by every layer. Callers classify with errors.Is.
var (
	// ErrInvalidInput marks empty or malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateHash marks an append whose digest is already stored.
	ErrDuplicateHash = errors.New("duplicate hash")

	// ErrStorageUnavailable marks a store that cannot be opened or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrProofSystemUnavailable marks missing or corrupt circuit artifacts.
	ErrProofSystemUnavailable = errors.New("proof system unavailable")

	// ErrProofTimeout marks proof generation abandoned at its deadline.
	ErrProofTimeout = errors.New("proof timeout")

	// ErrEventNotFound marks a lookup for an event that was never recorded.
	ErrEventNotFound = errors.New("event not found")
)
