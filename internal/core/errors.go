package core

import "fmt"

// ValidationError reports a malformed or missing field on user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a referenced entity that does not exist or is not
// owned by the caller. Ownership misses are deliberately indistinguishable
// from missing rows.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NewNotFoundError builds a NotFoundError for an entity kind and id.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports an operation blocked by existing state, such as
// deleting a category that still has transactions or reparenting a category
// under one of its own descendants.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// NewConflictError builds a ConflictError with a human-readable reason.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// TransferError reports a failed dual-entry transfer operation. By the time it
// surfaces, neither half of the pair has been persisted.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewTransferError wraps err as a TransferError for the given operation.
func NewTransferError(op string, err error) *TransferError {
	return &TransferError{Op: op, Err: err}
}
