package models

import (
	"errors"
	"fmt"
)

// ConflictKind identifies the business rule a conflicting request ran into.
type ConflictKind string

const (
	ConflictInsufficientInventory ConflictKind = "insufficient_inventory"
	ConflictProductUnavailable    ConflictKind = "product_unavailable"
	ConflictAlreadyFullyRefunded  ConflictKind = "already_fully_refunded"
	ConflictInvalidTransition     ConflictKind = "invalid_transition"
	ConflictNothingOwed           ConflictKind = "nothing_owed"
)

// ValidationError reports bad input rejected before any mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError reports a request that is well-formed but conflicts with
// current state. No mutation has happened when one is returned.
type ConflictError struct {
	Kind    ConflictKind
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NotFoundError reports a missing cart, ticket, transaction or inventory unit.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// GatewayError wraps a failed call to the external payment gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ErrCheckoutCreationFailed is returned by checkout session creation after
// the in-progress flag has been rolled back. Reserved inventory is left
// intact so the shopper can retry.
var ErrCheckoutCreationFailed = errors.New("checkout session creation failed")

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError of the given kind.
func IsConflict(err error, kind ConflictKind) bool {
	var c *ConflictError
	if !errors.As(err, &c) {
		return false
	}
	return c.Kind == kind
}
