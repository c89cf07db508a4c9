package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamFetch is returned when the ledger client fails. A trace or
	// cluster call that hits it is aborted without a partial result.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrInvalidAddress is returned when an address fails format validation.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidDepth is returned for a negative trace depth.
	ErrInvalidDepth = errors.New("invalid depth")
)

// FetchError wraps a ledger client failure with the operation and address it
// happened on. It matches both ErrUpstreamFetch and the underlying cause.
type FetchError struct {
	Op      string
	Address string
	Err     error
}

// NewFetchError creates a FetchError.
func NewFetchError(op, address string, err error) *FetchError {
	return &FetchError{Op: op, Address: address, Err: err}
}

func (e *FetchError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("%s: %s: %v", ErrUpstreamFetch, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrUpstreamFetch, e.Op, e.Address, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *FetchError) Unwrap() []error {
	return []error{ErrUpstreamFetch, e.Err}
}
