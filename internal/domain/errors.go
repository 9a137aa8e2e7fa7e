package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation              = errors.New("validation error")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrDuplicatePendingRequest = errors.New("duplicate pending request")
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrNotFound                = errors.New("not found")
	ErrConcurrencyConflict     = errors.New("concurrency conflict")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientBalanceError reports a mutation that would breach balance + creditLimit >= 0.
type InsufficientBalanceError struct {
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// DuplicateRequestError reports a second outstanding request for the same key.
type DuplicateRequestError struct {
	Key        string
	ExistingID string
}

func (e *DuplicateRequestError) Error() string {
	if e.ExistingID == "" {
		return fmt.Sprintf("duplicate pending request for %s", e.Key)
	}
	return fmt.Sprintf("duplicate pending request for %s: %s is still outstanding", e.Key, e.ExistingID)
}

func (e *DuplicateRequestError) Is(target error) bool {
	return target == ErrDuplicatePendingRequest
}

// InvalidTransitionError reports a state change outside the allowed table.
type InvalidTransitionError struct {
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.Current, e.Requested)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
