// Package handlers provides HTTP handler implementations for EduPay.
//
// This file defines the response utilities shared by all endpoints: the
// ErrorResponse envelope, fail() for errors, render() for pages, respond()
// for endpoints that answer both browsers and API clients, and the mapping
// of service errors to statuses and codes.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "invalid_amount",
//	  "message": "invalid amount"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/services"
)

// ErrorResponse is the standard error envelope returned to API clients.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"invalid_amount"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"invalid amount"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// fail aborts with the error page (browsers) or the ErrorResponse envelope.
// 5xx are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	if middleware.WantsHTML(c) {
		middleware.RenderErrorPage(c, status, msg)
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error with classify and fails the request. Store
// errors are logged with their cause and reported generically.
func failErr(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		middleware.LoggerFrom(c).Error().Err(err).Msg("request failed")
	}
	fail(c, status, code, msg)
}

// classify translates a service error into status, code and a message that is
// safe to show.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, services.ErrRequestLocked):
		return http.StatusBadRequest, ErrCodeRequestLocked, err.Error()
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, ErrCodeInvalidAmount, err.Error()
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, ErrCodeInvalidRequest, err.Error()
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusBadRequest, ErrCodeEmailTaken, err.Error()
	case errors.Is(err, services.ErrAdminRegistration), errors.Is(err, services.ErrAdminLogin):
		return http.StatusForbidden, ErrCodeForbidden, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusBadRequest, ErrCodeBadCredentials, err.Error()
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrFieldTooLong),
		errors.Is(err, services.ErrInvalidDeadline),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidRole):
		return http.StatusBadRequest, ErrCodeValidation, err.Error()
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}

// render writes page with data, adding the signed-in principal as .User.
func render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if p, ok := middleware.PrincipalFrom(c); ok {
		data["User"] = p
	}
	c.HTML(status, page, data)
}

// respond renders page for browsers and writes body as JSON otherwise.
func respond(c *gin.Context, status int, page string, data gin.H, body any) {
	if middleware.WantsHTML(c) {
		render(c, status, page, data)
		return
	}
	c.JSON(status, body)
}

// redirectOr sends browsers to location with 303 See Other (post/redirect/get)
// and writes body as JSON with status otherwise.
func redirectOr(c *gin.Context, location string, status int, body any) {
	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, location)
		return
	}
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
