package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWantsHTML(t *testing.T) {
	cases := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/json", false},
		{"text/html", true},
		{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", true},
	}
	for _, tc := range cases {
		t.Run(tc.accept, func(t *testing.T) {
			r := newEngine()
			var got bool
			r.GET("/", func(c *gin.Context) {
				got = WantsHTML(c)
				c.Status(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("WantsHTML(%q) = %v, want %v", tc.accept, got, tc.want)
			}
		})
	}
}

func TestAbortWithError_JSONEnvelope(t *testing.T) {
	r := newEngine()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		AbortWithError(c, http.StatusConflict, "conflict", "already exists")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "conflict" || body["message"] != "already exists" || body["request_id"] != w.Header().Get(requestIDHeader) {
		t.Fatalf("unexpected envelope: %v", body)
	}
}

func TestAbortWithError_PagesByStatus(t *testing.T) {
	cases := []struct {
		status int
		marker string
	}{
		{http.StatusForbidden, "Access denied"},
		{http.StatusNotFound, "Not found"},
		{http.StatusBadRequest, "400"},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			r := newEngine()
			r.GET("/", func(c *gin.Context) {
				AbortWithError(c, tc.status, "x", "custom message")
			})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept", "text/html")
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status = %d", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, tc.marker) || !strings.Contains(body, "custom message") {
				t.Fatalf("page lacks %q or message: %s", tc.marker, body)
			}
		})
	}
}
