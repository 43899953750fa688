// Package handlers implements the EduPay HTTP endpoints.
//
// Every endpoint serves two kinds of clients from the same route: browsers
// get server-rendered pages, redirects after successful form posts and error
// pages; API clients (Accept: application/json or no Accept header) get JSON
// bodies and the ErrorResponse envelope. Handlers are transport-thin: they
// bind input, take the principal from the access-control middleware, call a
// service and translate its result.
//
// User ids always come from the authenticated principal, never from the
// request.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/edupay/internal/auth"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService registers accounts and checks credentials.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (auth.Principal, error)
}

// DashboardService serves the cached dashboard views.
type DashboardService interface {
	OpenRequests(ctx context.Context, query string) ([]domain.RequestSummary, error)
	StudentDashboard(ctx context.Context, studentID string) (domain.StudentDashboard, error)
	MyRequests(ctx context.Context, studentID string) ([]domain.RequestSummary, error)
}

// RequestService mutates a student's funding requests.
type RequestService interface {
	Create(ctx context.Context, studentID string, in services.RequestInput) (*domain.Request, error)
	Update(ctx context.Context, studentID, id string, in services.RequestInput) error
	Delete(ctx context.Context, studentID, id string) error
}

// DonationService records donations and lists a donor's history.
type DonationService interface {
	Donate(ctx context.Context, in services.DonateInput) (services.DonateResult, error)
	HistoryPage(ctx context.Context, donorID string, page, pageSize int) ([]domain.DonationSummary, int64, error)
}

// AdminService backs the admin pages.
type AdminService interface {
	Overview(ctx context.Context) (services.AdminOverview, error)
	CacheEntries(ctx context.Context) services.CacheReport
}

// EventSource hands out room subscriptions for the event stream.
type EventSource interface {
	Subscribe(room string) *notify.Subscription
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers.
type Deps struct {
	Auth       AuthService
	Dashboards DashboardService
	Requests   RequestService
	Donations  DonationService
	Admin      AdminService
	Events     EventSource
	Tokens     *auth.TokenManager

	// CookieSecure marks the session cookie Secure (HTTPS deployments).
	CookieSecure bool
	// Heartbeat is the keep-alive interval of /events; defaults to 25s.
	Heartbeat time.Duration
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	authSvc      AuthService
	dashSvc      DashboardService
	reqSvc       RequestService
	donSvc       DonationService
	adminSvc     AdminService
	events       EventSource
	tokens       *auth.TokenManager
	cookieSecure bool
	heartbeat    time.Duration
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	hb := d.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	return &Handlers{
		authSvc:      d.Auth,
		dashSvc:      d.Dashboards,
		reqSvc:       d.Requests,
		donSvc:       d.Donations,
		adminSvc:     d.Admin,
		events:       d.Events,
		tokens:       d.Tokens,
		cookieSecure: d.CookieSecure,
		heartbeat:    hb,
	}
}
