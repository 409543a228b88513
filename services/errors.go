package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kendall-kelly/transformers-api/models"
)

// Error codes carried by every domain error. The HTTP layer uses them as the
// "code" of the error envelope.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeInUse               = "IN_USE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeImmutableState      = "IMMUTABLE_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
)

// Error is implemented by every error the services return on purpose
type Error interface {
	error
	Code() string
}

// ValidationError reports malformed or out-of-range input, one message per field
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Code() string { return CodeValidation }

// ConflictError reports a duplicate record, e.g. a second BOM line for the
// same product and material
type ConflictError struct {
	Entity     string
	Message    string
	ExistingID uint // 0 when storage rejected the write without telling us which row won
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Code() string { return CodeConflict }

// InUseError reports a deletion blocked by dependent rows
type InUseError struct {
	Entity        string
	ID            uint
	DependentKind string
	Dependents    []string
}

func (e *InUseError) Error() string {
	if len(e.Dependents) == 0 {
		return fmt.Sprintf("%s %d is in use by %s", e.Entity, e.ID, e.DependentKind)
	}
	return fmt.Sprintf("%s %d is in use by %s: %s", e.Entity, e.ID, e.DependentKind, strings.Join(e.Dependents, ", "))
}

func (e *InUseError) Code() string { return CodeInUse }

// InvalidTransitionError reports a status change the lifecycle does not allow
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From.Label(), e.To.Label())
}

func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

// ImmutableStateError reports an edit of an order that is Completada or Cancelada
type ImmutableStateError struct {
	OrderID uint
	Status  models.OrderStatus
}

func (e *ImmutableStateError) Error() string {
	return fmt.Sprintf("order %d is %s and can no longer be modified", e.OrderID, e.Status.Label())
}

func (e *ImmutableStateError) Code() string { return CodeImmutableState }

// ConcurrencyConflictError reports that a row changed or disappeared between
// the read and the write of an edit
type ConcurrencyConflictError struct {
	Entity string
	ID     uint
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified by someone else, reload and try again", e.Entity, e.ID)
}

func (e *ConcurrencyConflictError) Code() string { return CodeConcurrencyConflict }

// NotFoundError reports a missing id
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

// StorageUnavailableError wraps a failure of the catalog store, including timeouts
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func (e *StorageUnavailableError) Code() string { return CodeStorageUnavailable }
