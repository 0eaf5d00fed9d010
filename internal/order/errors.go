package order

import (
	"errors"
	"fmt"
)

// Validation failures are rejected before any transaction opens.
var (
	ErrMissingRoom     = errors.New("room number is required")
	ErrEmptyItems      = errors.New("items are required")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrProductNotFound = errors.New("product not found")
	ErrCategoryClosed  = errors.New("category is not accepting orders")
	ErrOrderNotFound   = errors.New("order not found")
	ErrTicketNotFound  = errors.New("no active ticket for room")
)

// ClosedCategoryError names the product so the guest-facing layer can say
// which item cannot be ordered right now.
type ClosedCategoryError struct {
	ProductName string
	CategoryID  int64
}

func (e *ClosedCategoryError) Error() string {
	return fmt.Sprintf("%q is outside its ordering hours", e.ProductName)
}

func (e *ClosedCategoryError) Unwrap() error { return ErrCategoryClosed }

// UnknownProductError carries the identifier the caller sent.
type UnknownProductError struct {
	Ref string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s not found or inactive", e.Ref)
}

func (e *UnknownProductError) Unwrap() error { return ErrProductNotFound }
