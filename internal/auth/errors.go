// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/pkg/errutil"
)

// Error codes attached to every error returned by this package.
const (
	CodeValidation         = "AUTH_VALIDATION"
	CodeAlreadyExists      = "AUTH_ALREADY_EXISTS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodeStorageFailure     = "AUTH_STORAGE_FAILURE"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
)

// Validation failure kinds carried by ValidationError.
const (
	FieldMissing          = "missingField"
	FieldPasswordTooShort = "passwordTooShort"
)

// Sentinel errors. Returned errors wrap these, so match with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an email is already registered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSessionInvalid is returned when a session token cannot be resolved.
	ErrSessionInvalid = errors.New("session invalid")
)

// errInvalidCredentials is shared by every failed login path so callers
// receive the exact same value whether the email or the password was wrong.
var errInvalidCredentials = oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)

// ValidationError reports client-correctable input.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Field {
	case FieldMissing:
		return "all fields are required"
	case FieldPasswordTooShort:
		return "password is too short"
	default:
		return "invalid input: " + e.Field
	}
}

func validationError(field string) error {
	return oops.Code(CodeValidation).With("field", field).Wrap(&ValidationError{Field: field})
}

// ValidationField reports the failing field when err is a ValidationError.
func ValidationField(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field, true
	}
	return "", false
}

// AlreadyExistsError builds the error stores return for a duplicate email.
func AlreadyExistsError(email string) error {
	return oops.Code(CodeAlreadyExists).With("email", email).Wrap(ErrAlreadyExists)
}

// StorageFailure tags err as an I/O-layer failure. Errors that already carry
// the storage code only gain the operation context.
func StorageFailure(op string, err error) error {
	if errutil.Code(err) == CodeStorageFailure {
		return oops.With("operation", op).Wrap(err)
	}
	return oops.Code(CodeStorageFailure).With("operation", op).Wrap(err)
}

// IsStorageFailure reports whether err is, or wraps, a storage failure.
func IsStorageFailure(err error) bool {
	return errutil.Code(err) == CodeStorageFailure
}

func sessionInvalid(reason string) error {
	return oops.Code(CodeSessionInvalid).With("reason", reason).Wrap(ErrSessionInvalid)
}
