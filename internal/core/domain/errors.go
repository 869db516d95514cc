package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. Raised before any store access.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an asset, holder, or token id with no recorded history.
	ErrNotFound = errors.New("not found")

	// ErrDependency marks a failure of the event store (unavailable, timed out, cancelled).
	ErrDependency = errors.New("dependency error")
)

// ValidationError describes a rejected parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the resource that has no history.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DependencyError wraps a failure of the event store. It is always retryable.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

// Retryable reports whether the caller may retry the operation.
func (e *DependencyError) Retryable() bool {
	return true
}

// WrapDependency classifies a store error. Validation and not-found errors pass through
// unchanged; everything else, including context cancellation, becomes a DependencyError.
func WrapDependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDependency) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

// IsTimeout reports whether err came from an exceeded deadline or a cancelled context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// WarningKind classifies an integrity anomaly.
type WarningKind string

const (
	WarningNegativeBalance   WarningKind = "negative_balance"
	WarningOwnershipConflict WarningKind = "ownership_conflict"
)

// IntegrityWarning reports an anomaly in derived state. The value was clamped and the
// query still succeeded.
type IntegrityWarning struct {
	Kind    WarningKind `json:"kind"`
	Asset   Address     `json:"asset"`
	Subject string      `json:"subject"`
	Detail  string      `json:"detail"`
}

func (w IntegrityWarning) Error() string {
	return fmt.Sprintf("%s on %s (%s): %s", w.Kind, w.Asset, w.Subject, w.Detail)
}
