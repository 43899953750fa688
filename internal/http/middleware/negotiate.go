// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file decides between the two kinds of clients the application serves:
// browsers, which get rendered pages and redirects, and API clients, which
// get the JSON error envelope. Middleware and handlers share these helpers so
// every rejection looks the same regardless of where it happened.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/http/views"
)

// WantsHTML reports whether the client prefers an HTML page over JSON. A
// request without an Accept header is treated as an API client.
func WantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

// RequestIDFrom returns the correlation id assigned by RequestID.
func RequestIDFrom(c *gin.Context) string {
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// AbortWithError ends the request with the error envelope
// {request_id, code, message}, or with the matching error page for browsers.
func AbortWithError(c *gin.Context, status int, code, msg string) {
	if WantsHTML(c) {
		RenderErrorPage(c, status, msg)
		return
	}
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}

// RenderErrorPage aborts with the error page for status.
func RenderErrorPage(c *gin.Context, status int, msg string) {
	c.Abort()
	data := gin.H{
		"Title":     http.StatusText(status),
		"Status":    status,
		"Message":   msg,
		"RequestID": RequestIDFrom(c),
	}
	if p, ok := PrincipalFrom(c); ok {
		data["User"] = p
	}
	c.HTML(status, views.ErrorPage(status), data)
}
