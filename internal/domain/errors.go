package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. It is recoverable at
// the caller and implies no state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string // "product", "order", "notification"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ProductNotFoundError is the stock-ledger variant of NotFoundError: an
// order line referenced a product id that is not in the catalog. It aborts
// the whole placement.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError reports a line whose requested quantity exceeds
// the available stock. Carries enough detail for the caller to act.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// StorageError wraps an infrastructure failure with operation/table context.
// It is surfaced generically to callers and always implies a rollback.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorageError attaches operation/table context to err. Returns nil for
// a nil err so call sites can wrap unconditionally.
func WrapStorageError(err error, op, table string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Table: table, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is any of the not-found variants.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	var pnf *ProductNotFoundError
	return errors.As(err, &nf) || errors.As(err, &pnf)
}

// IsStockError reports whether err is a business-rule failure raised by the
// stock ledger (either variant).
func IsStockError(err error) bool {
	var pnf *ProductNotFoundError
	var ins *InsufficientStockError
	return errors.As(err, &pnf) || errors.As(err, &ins)
}
