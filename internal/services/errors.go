// Package services defines the business logic for registration, funding
// requests, donations, and the cached dashboards. This file centralizes
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/edupay/internal/auth"
)

// Validation errors (400).
var (
	// ErrMissingFields is returned when a required input field is blank.
	ErrMissingFields = errors.New("all fields marked with * are required")

	// ErrInvalidAmount is returned for a non-positive amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRequest is returned when a donation targets a request that
	// does not exist or is no longer open.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRequestLocked is returned when the owner edits or deletes a request
	// that already has donations.
	ErrRequestLocked = errors.New("cannot change a request that has donations")

	// ErrFieldTooLong is returned when a title exceeds the configured limit.
	ErrFieldTooLong = errors.New("field too long")

	// ErrInvalidDeadline is returned for an unparsable deadline.
	ErrInvalidDeadline = errors.New("invalid deadline")
)

// Not-found errors (404).
var (
	// ErrRequestNotFound indicates that the request does not exist or is not
	// owned by the caller.
	ErrRequestNotFound = errors.New("request not found")
)

// Credential errors.
var (
	// ErrEmailTaken is returned when registering an email that is in use.
	ErrEmailTaken = errors.New("email already in use")

	// ErrAdminRegistration is returned when someone tries to register as admin.
	ErrAdminRegistration = errors.New("admin registration is not allowed")

	// ErrInvalidEmail is returned for an unparsable email address.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidRole is returned for roles other than student or donor.
	ErrInvalidRole = errors.New("role must be student or donor")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAdminLogin is returned when a stored admin account tries to log in;
	// only the configured system admin may.
	ErrAdminLogin = errors.New("invalid credentials")

	// ErrUnknownPrincipal is returned when a verified token names a user that
	// no longer exists.
	ErrUnknownPrincipal = auth.ErrUnknownPrincipal
)
