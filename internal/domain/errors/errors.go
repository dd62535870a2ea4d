// Package errors defines the bridge ledger error taxonomy. Every failure a
// caller can observe is one of these sentinels, optionally wrapped in a
// DomainError carrying a stable code and extra context.
package errors

import (
	"errors"
	"fmt"
)

// Authorization errors
var (
	// ErrUnauthorized indicates the caller lacks the required capability
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRelayerNotRegistered indicates the caller is not an active relayer
	ErrRelayerNotRegistered = errors.New("relayer not registered")

	// ErrChainNotRegistered indicates the target chain is not active
	ErrChainNotRegistered = errors.New("chain not registered")
)

// Not-found errors
var (
	// ErrTransferNotFound indicates no transfer exists for the given id
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrChainNotFound indicates the chain was never registered
	ErrChainNotFound = errors.New("chain not found")

	// ErrRelayerNotFound indicates the relayer was never registered
	ErrRelayerNotFound = errors.New("relayer not found")

	// ErrAccountNotFound indicates the account does not exist
	ErrAccountNotFound = errors.New("account not found")
)

// State-conflict errors
var (
	// ErrInvalidTransferState indicates the transfer is in the wrong
	// lifecycle stage for the attempted operation
	ErrInvalidTransferState = errors.New("invalid transfer state")

	// ErrAlreadyReleased indicates funds for this id were already disbursed
	ErrAlreadyReleased = errors.New("transfer already released")

	// ErrAlreadyRegistered indicates the chain or relayer is already present
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrBridgeFrozen indicates the bridge is frozen by an admin
	ErrBridgeFrozen = errors.New("bridge is frozen")
)

// Value errors
var (
	// ErrInvalidAmount indicates a zero, negative, fractional or
	// below-minimum amount
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRate indicates a fee rate with a zero denominator or a
	// numerator greater than its denominator
	ErrInvalidRate = errors.New("invalid fee rate")

	// ErrInsufficientBalance indicates the sender cannot cover the amount
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientEscrowBalance indicates the escrow account cannot
	// cover the disbursement
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")

	// ErrArithmeticOverflow indicates a value left the supported domain
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// DomainError wraps a sentinel with a stable code and context details
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying sentinel
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether the error wraps the target sentinel
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// WithDetails attaches context details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// New creates a DomainError around a sentinel
func New(err error, code, message string) *DomainError {
	return &DomainError{Err: err, Code: code, Message: message}
}

// Code returns the stable code for an error, falling back to the sentinel
// mapping when the error is a bare sentinel.
func Code(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrRelayerNotRegistered):
		return "RELAYER_NOT_REGISTERED"
	case errors.Is(err, ErrChainNotRegistered):
		return "CHAIN_NOT_REGISTERED"
	case errors.Is(err, ErrTransferNotFound):
		return "TRANSFER_NOT_FOUND"
	case errors.Is(err, ErrChainNotFound):
		return "CHAIN_NOT_FOUND"
	case errors.Is(err, ErrRelayerNotFound):
		return "RELAYER_NOT_FOUND"
	case errors.Is(err, ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	case errors.Is(err, ErrInvalidTransferState):
		return "INVALID_TRANSFER_STATE"
	case errors.Is(err, ErrAlreadyReleased):
		return "ALREADY_RELEASED"
	case errors.Is(err, ErrAlreadyRegistered):
		return "ALREADY_REGISTERED"
	case errors.Is(err, ErrBridgeFrozen):
		return "BRIDGE_FROZEN"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrInvalidRate):
		return "INVALID_RATE"
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrInsufficientEscrowBalance):
		return "INSUFFICIENT_ESCROW_BALANCE"
	case errors.Is(err, ErrArithmeticOverflow):
		return "ARITHMETIC_OVERFLOW"
	default:
		return "INTERNAL_ERROR"
	}
}

// IsNotFound reports whether the error is one of the not-found sentinels
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransferNotFound) ||
		errors.Is(err, ErrChainNotFound) ||
		errors.Is(err, ErrRelayerNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsConflict reports whether the error is a state-conflict sentinel
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransferState) ||
		errors.Is(err, ErrAlreadyReleased) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrBridgeFrozen)
}

// IsValueError reports whether the error is a value-validation sentinel
func IsValueError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientEscrowBalance) ||
		errors.Is(err, ErrArithmeticOverflow)
}

// IsAuthorization reports whether the error is an authorization sentinel
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrRelayerNotRegistered) ||
		errors.Is(err, ErrChainNotRegistered)
}

// Wrap adds a message prefix while keeping the sentinel chain intact
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
