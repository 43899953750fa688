package views

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestMoneyAndDate(t *testing.T) {
	if got := Money(1234567); got != "1,234,567" {
		t.Fatalf("Money = %q", got)
	}
	d := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := formatDate(d); got != "04 Mar 2026" {
		t.Fatalf("formatDate = %q", got)
	}
	var nilTime *time.Time
	if formatDate(nilTime) != "-" || formatDate(time.Time{}) != "-" || formatDate("x") != "-" {
		t.Fatalf("empty dates must render as -")
	}
}

func TestTemplates_ParseAll(t *testing.T) {
	tpl := Templates()
	for _, name := range []string{PageLanding, PageDonorDashboard, PageStudentDashboard, PageDonorHistory, PageAdminCache, PageError} {
		if tpl.Lookup(name) == nil {
			t.Fatalf("template %s missing", name)
		}
	}
}

// The live updates must agree with the server-rendered progress and read
// the payload fields the server emits.
func TestAppJS_LiveUpdates(t *testing.T) {
	f, err := Static().Open("app.js")
	if err != nil {
		t.Fatalf("open app.js: %v", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read app.js: %v", err)
	}
	js := string(b)
	if strings.Contains(js, "Math.floor(") || !strings.Contains(js, "Math.round((u.amountFunded * 100) / requested)") {
		t.Fatalf("progress must be rounded from amountFunded")
	}
	for _, field := range []string{"n.studentName", "n.amountRequested", "n.title"} {
		if !strings.Contains(js, field) {
			t.Fatalf("app.js does not read %s", field)
		}
	}
	if strings.Contains(js, "amount_funded") || strings.Contains(js, "student_name") {
		t.Fatalf("app.js reads snake_case payload fields")
	}
}
