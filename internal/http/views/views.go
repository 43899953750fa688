// Package views holds the server-rendered pages and their static assets,
// embedded into the binary. Pages are parsed once into a single template set
// and installed on the Gin engine with SetHTMLTemplate.
package views

import (
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Page names.
const (
	PageLanding          = "landing.html"
	PageLogin            = "login.html"
	PageRegister         = "register.html"
	PageStudentDashboard = "student_dashboard.html"
	PageCreateRequest    = "student_create.html"
	PageMyRequests       = "student_requests.html"
	PageDonorDashboard   = "donor_dashboard.html"
	PageDonorHistory     = "donor_history.html"
	PageAdminDashboard   = "admin_dashboard.html"
	PageAdminCache       = "admin_cache.html"
	PageError            = "error.html"
	PageForbidden        = "forbidden.html"
	PageNotFound         = "not_found.html"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ErrorPage picks the page rendered for an error status.
func ErrorPage(status int) string {
	switch status {
	case http.StatusForbidden:
		return PageForbidden
	case http.StatusNotFound:
		return PageNotFound
	}
	return PageError
}

// Templates parses every page. It panics on a malformed template, which can
// only happen at build time.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html"))
}

// Static serves /static assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Funcs are the helpers available to every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": Money,
		"date":  formatDate,
		"json":  toJSON,
		"add":   func(a, b int) int { return a + b },
	}
}

var printer = message.NewPrinter(language.English)

// Money formats whole currency units with thousands separators.
func Money(v int64) string {
	return printer.Sprintf("%d", v)
}

// formatDate accepts time.Time or *time.Time; nil renders as "-".
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006")
	case *time.Time:
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006")
	}
	return "-"
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(b)
}
