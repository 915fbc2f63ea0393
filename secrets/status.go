package secrets

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is a numeric result code reported by a secret store. The values
// follow the Security framework's OSStatus codes so that messages read the
// same whichever backend produced them.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusUnimplemented         Status = -4
	StatusParam                 Status = -50
	StatusAllocate              Status = -108
	StatusNotAvailable          Status = -25291
	StatusAuthFailed            Status = -25293
	StatusDuplicateItem         Status = -25299
	StatusItemNotFound          Status = -25300
	StatusInteractionNotAllowed Status = -25308
	StatusDecode                Status = -26275
	StatusInternalComponent     Status = -26276
	StatusMissingEntitlement    Status = -34018
)

var statusMessages = map[Status]string{
	StatusSuccess:               "No error.",
	StatusUnimplemented:         "Function or operation not implemented.",
	StatusParam:                 "One or more parameters passed to a function were not valid.",
	StatusAllocate:              "Failed to allocate memory.",
	StatusNotAvailable:          "No secret store is available.",
	StatusAuthFailed:            "The user name or passphrase you entered is not correct.",
	StatusDuplicateItem:         "The specified item already exists in the secret store.",
	StatusItemNotFound:          "The specified item could not be found in the secret store.",
	StatusInteractionNotAllowed: "User interaction is not allowed.",
	StatusDecode:                "Unable to decode the provided data.",
	StatusInternalComponent:     "An internal component failed.",
	StatusMissingEntitlement:    "A required entitlement isn't present.",
}

// ErrorMessage returns a human readable description of code.
func ErrorMessage(code Status) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Secret store error: %d", code)
}

// ErrNotFound is returned, possibly wrapped, when no entry matches a query.
var ErrNotFound = &StatusError{Code: StatusItemNotFound}

// StatusError is a store failure carrying a status code.
type StatusError struct {
	Code Status
	// Message overrides the default message for Code when set.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// NewStatusError returns a StatusError for code wrapping cause.
func NewStatusError(code Status, cause error) *StatusError {
	return &StatusError{Code: code, Err: cause}
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrorMessage(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Is reports not-found status errors as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && t == ErrNotFound && e.Code == StatusItemNotFound
}

// StatusOf extracts the status code carried by err. A nil error is
// StatusSuccess and an error without a code is StatusInternalComponent.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return StatusInternalComponent
}

// Describe returns the message reported to callers for err. Status errors
// are described by their status message and cause, without any wrapping
// context added on the way up. Other errors are reported as a failed
// internal component.
func Describe(err error) string {
	if err == nil {
		return ErrorMessage(StatusSuccess)
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return fmt.Sprintf("%s (%v)", ErrorMessage(StatusInternalComponent), err)
}
