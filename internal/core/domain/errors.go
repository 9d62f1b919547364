package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotImplemented indicates a service was built without a required store.
	ErrNotImplemented = errors.New("not implemented")

	// Sync Errors.

	// ErrSourceUnavailable indicates the remote source could not be reached.
	// Recoverable through the cached snapshot or a later retry.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceMalformed indicates the remote responded with unusable data.
	// It is surfaced to the caller and never retried automatically.
	ErrSourceMalformed = errors.New("source malformed")

	// ErrMappingIncomplete indicates required fields could not be mapped with
	// enough confidence. It is informational: processing continues with
	// best-effort values.
	ErrMappingIncomplete = errors.New("mapping incomplete")

	// ErrMutationRejected indicates the remote store refused a status push.
	// The pending change stays queued.
	ErrMutationRejected = errors.New("mutation rejected")

	// ErrNoSource indicates no remote source is configured and nothing is cached.
	ErrNoSource = errors.New("no source configured")

	// ErrOffline indicates an operation that needs the network was attempted
	// while connectivity is down.
	ErrOffline = fmt.Errorf("offline: %w", ErrSourceUnavailable)

	// ErrDrainInProgress indicates another drain pass currently owns the queue.
	ErrDrainInProgress = errors.New("drain in progress")
)

// MappingIncompleteError lists the required fields that need manual resolution.
// It matches ErrMappingIncomplete with errors.Is.
type MappingIncompleteError struct {
	SourceID string
	Fields   []Field
}

// Error implements the error interface.
func (e *MappingIncompleteError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: source %s needs manual mapping for %s",
		ErrMappingIncomplete, e.SourceID, strings.Join(names, ", "))
}

// Unwrap lets errors.Is match ErrMappingIncomplete.
func (e *MappingIncompleteError) Unwrap() error {
	return ErrMappingIncomplete
}
