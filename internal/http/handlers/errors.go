// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics; the domain
// codes name business rule violations that a status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "request_locked",
//	  "message": "cannot change a request that has donations"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation     = "validation_failed"
	ErrCodeInvalidAmount  = "invalid_amount"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeRequestLocked  = "request_locked"
	ErrCodeEmailTaken     = "email_taken"
	ErrCodeBadCredentials = "invalid_credentials"
)
