package domain

import "time"

// RequestSummary is the read-model of a Request used by both dashboards and
// stored in the cache. Field names are the cache payload contract; renaming a
// JSON tag invalidates existing entries (they decode as a miss).
type RequestSummary struct {
	ID              string        `json:"id"`
	StudentID       string        `json:"studentId"`
	StudentName     string        `json:"studentName,omitempty"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	AmountRequested int64         `json:"amountRequested"`
	AmountFunded    int64         `json:"amountFunded"`
	Progress        int           `json:"progress"`
	Deadline        *time.Time    `json:"deadline,omitempty"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Summarize projects r into its read-model. The student name is taken from
// the preloaded owner when present.
func Summarize(r Request) RequestSummary {
	return RequestSummary{
		ID:              r.ID,
		StudentID:       r.StudentID,
		StudentName:     r.Student.Name,
		Title:           r.Title,
		Description:     r.Description,
		AmountRequested: r.AmountRequested,
		AmountFunded:    r.AmountFunded,
		Progress:        r.Progress(),
		Deadline:        r.Deadline,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
	}
}

// SummarizeAll projects a slice, never returning nil.
func SummarizeAll(rs []Request) []RequestSummary {
	out := make([]RequestSummary, 0, len(rs))
	for _, r := range rs {
		out = append(out, Summarize(r))
	}
	return out
}

// StudentDashboard is the per-student summary: owned requests (newest first)
// and the sums over them.
type StudentDashboard struct {
	Requests       []RequestSummary `json:"requests"`
	TotalRequested int64            `json:"totalRequested"`
	TotalFunded    int64            `json:"totalFunded"`
}

// NewStudentDashboard assembles the summary and its totals from rs.
func NewStudentDashboard(rs []Request) StudentDashboard {
	d := StudentDashboard{Requests: SummarizeAll(rs)}
	for _, r := range rs {
		d.TotalRequested += r.AmountRequested
		d.TotalFunded += r.AmountFunded
	}
	return d
}

// DonationSummary is a donation as listed in donor history and the admin
// dashboard. Names and titles come from preloaded associations.
type DonationSummary struct {
	ID            string    `json:"id"`
	DonorID       string    `json:"donorId"`
	DonorName     string    `json:"donorName,omitempty"`
	RequestID     string    `json:"requestId"`
	RequestTitle  string    `json:"requestTitle,omitempty"`
	RequestStatus string    `json:"requestStatus,omitempty"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SummarizeDonations projects ds, never returning nil.
func SummarizeDonations(ds []Donation) []DonationSummary {
	out := make([]DonationSummary, 0, len(ds))
	for _, d := range ds {
		out = append(out, DonationSummary{
			ID:            d.ID,
			DonorID:       d.DonorID,
			DonorName:     d.Donor.Name,
			RequestID:     d.RequestID,
			RequestTitle:  d.Request.Title,
			RequestStatus: string(d.Request.Status),
			Amount:        d.Amount,
			CreatedAt:     d.CreatedAt,
		})
	}
	return out
}
