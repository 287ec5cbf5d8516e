package errors

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeValidation     ErrorType = "VALIDATION"
	ErrTypeNotFound       ErrorType = "NOT_FOUND"
	ErrTypeUnauthorized   ErrorType = "UNAUTHORIZED"
	ErrTypeDuplicate      ErrorType = "DUPLICATE"
	ErrTypePastDate       ErrorType = "PAST_DATE"
	ErrTypeJobInactive    ErrorType = "JOB_INACTIVE"
	ErrTypeJobFull        ErrorType = "JOB_FULL"
	ErrTypeFinalized      ErrorType = "ALREADY_FINALIZED"
	ErrTypeCapacity       ErrorType = "CAPACITY_EXCEEDED"
	ErrTypeReconciliation ErrorType = "CAPACITY_RECONCILIATION"
	ErrTypeInternal       ErrorType = "INTERNAL"
	ErrTypeUnavailable    ErrorType = "UNAVAILABLE"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// IsType reports whether err (or anything it wraps) is a DomainError of the
// given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

func Validation(message string, err error) *DomainError {
	return New(ErrTypeValidation, message, err)
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

func Unauthorized(message string, err error) *DomainError {
	return New(ErrTypeUnauthorized, message, err)
}

func Duplicate(message string, err error) *DomainError {
	return New(ErrTypeDuplicate, message, err)
}

func PastDate(message string, err error) *DomainError {
	return New(ErrTypePastDate, message, err)
}

func JobInactive(message string, err error) *DomainError {
	return New(ErrTypeJobInactive, message, err)
}

func JobFull(message string, err error) *DomainError {
	return New(ErrTypeJobFull, message, err)
}

// AlreadyFinalized marks an attempt to re-transition a write-once-terminal
// application status.
func AlreadyFinalized(message string, err error) *DomainError {
	return New(ErrTypeFinalized, message, err)
}

// CapacityExceeded marks a lost race for the last open slot on a job. Callers
// surface it as "job just got filled", never as a generic failure.
func CapacityExceeded(message string, err error) *DomainError {
	return New(ErrTypeCapacity, message, err)
}

// Reconciliation marks drift between a job's filled counter and its count of
// accepted applications detected by the repair pass.
func Reconciliation(message string, err error) *DomainError {
	return New(ErrTypeReconciliation, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

func Unavailable(message string, err error) *DomainError {
	return New(ErrTypeUnavailable, message, err)
}
