// Package utils holds small helpers shared by the HTTP layer.
package utils

import (
	"strconv"
	"strings"
)

// Pagination defaults for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as an int, returning def when s is blank or invalid.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Window is a bounded 1-based page request.
type Window struct {
	Page int
	Size int
}

// ParseWindow reads raw page and page_size values. Missing or unparsable
// values take the defaults; page is at least 1 and size is within
// [1, MaxPageSize].
func ParseWindow(page, size string) Window {
	w := Window{
		Page: AtoiDefault(page, DefaultPage),
		Size: AtoiDefault(size, DefaultPageSize),
	}
	if w.Page < 1 {
		w.Page = 1
	}
	switch {
	case w.Size < 1:
		w.Size = 1
	case w.Size > MaxPageSize:
		w.Size = MaxPageSize
	}
	return w
}

// Offset is the number of rows before the page.
func (w Window) Offset() int { return (w.Page - 1) * w.Size }

// TotalPages is the page count for total rows.
func (w Window) TotalPages(total int64) int {
	if total <= 0 || w.Size <= 0 {
		return 0
	}
	return int((total + int64(w.Size) - 1) / int64(w.Size))
}

// HasNext reports whether a page follows w.
func (w Window) HasNext(total int64) bool {
	return w.Page < w.TotalPages(total)
}
