package cart

import (
	"errors"
	"fmt"
)

// Kind classifies cart failures for callers that map them to responses
type Kind int

const (
	// KindValidation: bad input, rejected before any remote write
	KindValidation Kind = iota + 1
	// KindRemoteFailure: the remote store call failed, local state unchanged
	KindRemoteFailure
	// KindConsistency: local and remote disagree on a row, caller should reload
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRemoteFailure:
		return "remote_failure"
	case KindConsistency:
		return "consistency"
	default:
		return "unknown"
	}
}

// Kind sentinels, matched with errors.Is
var (
	ErrValidation    = errors.New("cart: validation failed")
	ErrRemoteFailure = errors.New("cart: remote store failure")
	ErrConsistency   = errors.New("cart: local state out of sync with remote store")
)

// Causes
var (
	ErrMissingIdentity       = errors.New("no signed-in identity")
	ErrMissingProductID      = errors.New("product id is required")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrQuantityTooLarge      = errors.New("quantity exceeds the per-item limit")
	ErrProductNotFound       = errors.New("product not found")
	ErrProductNotPurchasable = errors.New("product is not for sale")
	ErrCartItemNotFound      = errors.New("cart item not found")
)

// Store sentinels. RemoteStore implementations wrap or return these.
var (
	ErrRowNotFound = errors.New("row not found")
	ErrRowExists   = errors.New("row already exists")
)

type Error struct {
	Kind      Kind
	Op        string
	ProductID string
	Err       error
}

func (e *Error) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("cart %s (product %s): %v", e.Op, e.ProductID, e.Err)
	}
	return fmt.Sprintf("cart %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels. A consistency violation is
// also a remote failure.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrRemoteFailure:
		return e.Kind == KindRemoteFailure || e.Kind == KindConsistency
	case ErrConsistency:
		return e.Kind == KindConsistency
	}
	return false
}

func validationError(op, productID string, err error) error {
	return &Error{Kind: KindValidation, Op: op, ProductID: productID, Err: err}
}

func remoteFailure(op, productID string, err error) error {
	return &Error{Kind: KindRemoteFailure, Op: op, ProductID: productID, Err: err}
}

func consistencyViolation(op, productID string, err error) error {
	return &Error{Kind: KindConsistency, Op: op, ProductID: productID, Err: err}
}

// KindOf returns the kind of a cart error, or 0 for anything else
func KindOf(err error) Kind {
	var cartErr *Error
	if errors.As(err, &cartErr) {
		return cartErr.Kind
	}
	return 0
}
