package models

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	BadRequestError    ErrorCode = "BadRequest"
	InternalError      ErrorCode = "InternalError"
	NotFoundError      ErrorCode = "NotFound"
	AccessDeniedError  ErrorCode = "AccessDenied"
	NetworkFailure     ErrorCode = "NetworkFailure"
	TimeoutError       ErrorCode = "Timeout"
	ValidationFailed   ErrorCode = "ValidationFailed"
	IOFailure          ErrorCode = "IOFailure"
	ConfigurationError ErrorCode = "ConfigurationError"
	VersionMismatch    ErrorCode = "VersionMismatch"
)

type HasHint interface {
	// Hint A human-readable string that advises the user on how they might solve the error.
	Hint() string
}

type HasRetryable interface {
	// Retryable Whether the error could be retried, assuming the same input;
	// i.e. the error is transient and due to network capacity or service outage.
	//
	// If a component raises an error with Retryable() as true, the caller may
	// retry the last action after some length of time. If it is false, it
	// should not try the action again.
	Retryable() bool
}

type HasDetails interface {
	// Details An extra set of metadata provided by the error.
	Details() map[string]string
}

type HasCode interface {
	// Code a unique code identifying the error class
	Code() ErrorCode
}

// BaseError is a custom error type that provides additional fields
// and methods for more detailed error handling. It implements the error
// interface, as well as additional interfaces for providing a hint,
// indicating whether the error is retryable, and for providing
// additional details.
type BaseError struct {
	message   string
	hint      string
	retryable bool
	component string
	details   map[string]string
	code      ErrorCode
}

// IsBaseError is a helper function that checks if an error is a BaseError.
func IsBaseError(err error) bool {
	var baseError *BaseError
	ok := errors.As(err, &baseError)
	return ok
}

// NewBaseError is a constructor function that creates a new BaseError with
// only the message field set.
func NewBaseError(format string, a ...any) *BaseError {
	return &BaseError{
		component: "slurmsync",
		message:   fmt.Sprintf(format, a...),
	}
}

// WithHint is a method that sets the hint field of BaseError and returns
// the BaseError itself for chaining.
func (e *BaseError) WithHint(hint string) *BaseError {
	e.hint = hint
	return e
}

// WithRetryable is a method that sets the retryable field of BaseError and
// returns the BaseError itself for chaining.
func (e *BaseError) WithRetryable() *BaseError {
	e.retryable = true
	return e
}

// WithDetails is a method that sets the details field of BaseError and
// returns the BaseError itself for chaining.
func (e *BaseError) WithDetails(details map[string]string) *BaseError {
	e.details = details
	return e
}

// WithCode is a method that sets the code field of BaseError and
// returns the BaseError itself for chaining.
func (e *BaseError) WithCode(code ErrorCode) *BaseError {
	e.code = code
	return e
}

// WithComponent is a method that sets the component field of BaseError and
// returns the BaseError itself for chaining. This method allows specifying
// which component of the pipeline generated the error, providing more
// context for diagnostics.
func (e *BaseError) WithComponent(component string) *BaseError {
	e.component = component
	return e
}

// Error is a method that returns the message field of BaseError. This
// method makes BaseError satisfy the error interface.
func (e *BaseError) Error() string {
	return e.message
}

// Hint is a method that returns the hint field of BaseError.
func (e *BaseError) Hint() string {
	return e.hint
}

// Retryable is a method that returns the retryable field of BaseError.
func (e *BaseError) Retryable() bool {
	return e.retryable
}

// Details is a method that returns the details field of BaseError.
func (e *BaseError) Details() map[string]string {
	return e.details
}

// Code returns a unique code to identify the error
func (e *BaseError) Code() ErrorCode {
	return e.code
}

// Component is a method that returns the component field of BaseError.
func (e *BaseError) Component() string {
	return e.component
}

func IsErrorWithCode(err error, code ErrorCode) bool {
	var baseErr *BaseError
	if errors.As(err, &baseErr) {
		return baseErr.Code() == code
	}
	return false
}

// IsRetryable reports whether err advertises itself as transient.
func IsRetryable(err error) bool {
	var hasRetryable HasRetryable
	if errors.As(err, &hasRetryable) {
		return hasRetryable.Retryable()
	}
	return false
}
