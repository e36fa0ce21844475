package errors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidArgument Code = "invalid"
	CodeLockNotOwned    Code = "lock_not_owned"
	CodeCancelled       Code = "cancelled"
	CodeAborted         Code = "aborted"
	CodeInternal        Code = "internal"
)

type Status struct {
	// Source error
	Err error `json:"source_error,omitempty"`

	// Machine-readable status code.
	Code Code `json:"code"`

	// Human-readable error message.
	Message string `json:"message"`

	// Payload
	Payload any `json:"detail,omitempty"`
}

// Unwrap status error and return source error.
func (e *Status) Unwrap() error {
	return e.Err
}

// Source sets the origin err and return error.
func (e *Status) Source(err error) *Status {
	e.Err = err
	return e
}

// Error implements the error interface.
func (e *Status) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Status) Detail(arg any) *Status {
	e.Payload = arg
	return e
}

// AsCode unwraps an error and returns its code.
// Non-application errors always return CodeInternal.
func AsCode(err error) Code {
	if err == nil {
		return ""
	}
	e := AsStatus(err)
	if e != nil {
		return e.Code
	}
	return CodeInternal
}

// Message unwraps an error and returns its message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	e := AsStatus(err)
	if e != nil {
		return e.Message
	}
	return err.Error()
}

// Detail returns generic type stored in details.
func Detail[T any](err error) (detail *T) {
	if err == nil {
		return nil
	}
	e := AsStatus(err)
	if e != nil {
		v, ok := e.Payload.(T)
		if ok {
			return &v
		}
	}
	return nil
}

// AsStatus return err as Status error.
func AsStatus(err error) (e *Status) {
	if err == nil {
		return nil
	}
	if errors.As(err, &e) {
		return
	}
	return
}

// Source read status error source.
func Source(err error) error {
	if e := AsStatus(err); e != nil {
		return e.Err
	}
	return err
}

// IsStatus checks if err is Status type.
func IsStatus(err error) bool {
	return AsStatus(err) != nil
}

// Format is a helper function to return an Error with a given status and formatted message.
func Format(code Code, format string, args ...any) *Status {
	msg := fmt.Sprintf(format, args...)
	newErr := &Status{
		Code:    code,
		Message: msg,
	}
	return newErr
}

// InvalidArgument is a helper function to return an invalid argument Error.
func InvalidArgument(format string, args ...any) *Status {
	return Format(CodeInvalidArgument, format, args...)
}

// LockNotOwned is returned when a lock is released by someone who
// does not hold it.
func LockNotOwned(format string, args ...any) *Status {
	return Format(CodeLockNotOwned, format, args...)
}

// Cancelled is a helper function to return cancelled error status.
// The context error is attached with Source.
func Cancelled(format string, args ...any) *Status {
	return Format(CodeCancelled, format, args...)
}

// Aborted is a helper function to return aborted error status.
func Aborted(format string, args ...any) *Status {
	return Format(CodeAborted, format, args...)
}

// Internal is a helper function to return an internal Error.
func Internal(format string, args ...any) *Status {
	return Format(CodeInternal, format, args...)
}

// IsInvalidArgument checks if err is invalid argument error.
func IsInvalidArgument(err error) bool {
	return AsCode(err) == CodeInvalidArgument
}

// IsLockNotOwned checks if err is lock not owned error.
func IsLockNotOwned(err error) bool {
	return AsCode(err) == CodeLockNotOwned
}

// IsCancelled checks if err is cancelled error.
func IsCancelled(err error) bool {
	return AsCode(err) == CodeCancelled
}

// IsAborted checks if err is aborted error.
func IsAborted(err error) bool {
	return AsCode(err) == CodeAborted
}

// IsInternal checks if err is internal error.
func IsInternal(err error) bool {
	return AsCode(err) == CodeInternal
}
