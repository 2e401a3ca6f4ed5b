// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Infrastructure errors
	ErrPersistence        = errors.New("persistence failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "reward", "award", "ledger"
	Op      string // Operation that failed, e.g., "Award", "Consume"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e == t
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User errors
var (
	ErrUserNotFound = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrInvalidUser  = NewDomainError("user", "Validate", ErrInvalidID, "invalid user ID")
)

// Reward catalog errors
var (
	ErrRewardNotFound     = NewDomainError("reward", "Find", ErrNotFound, "reward definition not found")
	ErrRewardInactive     = NewDomainError("reward", "Find", ErrNotFound, "reward definition is inactive")
	ErrRewardExists       = NewDomainError("reward", "Create", ErrAlreadyExists, "reward definition already exists")
	ErrValueTypeMismatch  = NewDomainError("reward", "Validate", ErrValidation, "reward value type does not match reward type")
	ErrInvalidRewardType  = NewDomainError("reward", "Validate", ErrValidation, "unknown reward type")
	ErrInvalidTrigger     = NewDomainError("reward", "Validate", ErrValidation, "unknown reward trigger")
	ErrInvalidLimitWindow = NewDomainError("reward", "Validate", ErrValidation, "limited reward requires a quantity or a validity window")
	ErrRewardNotAvailable = NewDomainError("reward", "Award", ErrInvalidState, "reward is outside its validity window")
	ErrRewardSoldOut      = NewDomainError("reward", "Award", ErrInvalidState, "limited reward quantity exhausted")
)

// Award ledger errors
var (
	ErrAwardNotFound         = NewDomainError("award", "Find", ErrNotFound, "award record not found")
	ErrRewardAlreadyAwarded  = NewDomainError("award", "Award", ErrAlreadyExists, "reward already awarded to user")
	ErrRewardAlreadyConsumed = NewDomainError("award", "Consume", ErrInvalidState, "reward already consumed")
	ErrRewardExpired         = WrapError("award", "Consume", ErrInvalidState, "reward expired", ErrExpired)
	ErrRewardNotRedeemable   = NewDomainError("award", "Consume", ErrInvalidState, "reward type is granted at award time and cannot be redeemed")
)

// Points ledger errors
var (
	ErrLedgerNotFound = NewDomainError("ledger", "Find", ErrNotFound, "level ledger entry not found")
	ErrLedgerConflict = NewDomainError("ledger", "Save", ErrOptimisticLock, "level ledger entry was modified concurrently")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidState checks if the error reports an illegal lifecycle operation.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrExpired)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsPersistence checks if the error came from the underlying store.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// ErrorClass is the coarse category callers map to their own status codes.
type ErrorClass string

const (
	ClassNone         ErrorClass = ""
	ClassNotFound     ErrorClass = "not_found"
	ClassInvalidState ErrorClass = "invalid_state"
	ClassConflict     ErrorClass = "conflict"
	ClassValidation   ErrorClass = "validation"
	ClassPersistence  ErrorClass = "persistence"
)

// Classify maps an error to its class. Unknown errors are treated as persistence failures.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case IsNotFound(err):
		return ClassNotFound
	case IsAlreadyExists(err):
		return ClassConflict
	case IsInvalidState(err):
		return ClassInvalidState
	case IsValidation(err):
		return ClassValidation
	default:
		return ClassPersistence
	}
}
