package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/auth"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/http/views"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/services"
)

// ---- fakes ----

type fakeAuth struct {
	gotRegister services.RegisterInput
	registerErr error
	principal   auth.Principal
	loginErr    error
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*domain.User, error) {
	f.gotRegister = in
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &domain.User{ID: "u-1", Name: in.Name, Email: in.Email, Role: domain.Role(in.Role)}, nil
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (auth.Principal, error) {
	return f.principal, f.loginErr
}

type fakeDash struct {
	open      []domain.RequestSummary
	dash      domain.StudentDashboard
	mine      []domain.RequestSummary
	err       error
	lastQuery string
}

func (f *fakeDash) OpenRequests(_ context.Context, q string) ([]domain.RequestSummary, error) {
	f.lastQuery = q
	return f.open, f.err
}

func (f *fakeDash) StudentDashboard(context.Context, string) (domain.StudentDashboard, error) {
	return f.dash, f.err
}

func (f *fakeDash) MyRequests(context.Context, string) ([]domain.RequestSummary, error) {
	return f.mine, f.err
}

type fakeReqs struct {
	gotStudent string
	gotID      string
	gotInput   services.RequestInput
	err        error
	deleted    bool
}

func (f *fakeReqs) Create(_ context.Context, studentID string, in services.RequestInput) (*domain.Request, error) {
	f.gotStudent, f.gotInput = studentID, in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Request{
		ID: "r-1", StudentID: studentID, Title: in.Title, Description: in.Description,
		AmountRequested: in.AmountRequested, Deadline: in.Deadline, Status: domain.StatusOpen,
	}, nil
}

func (f *fakeReqs) Update(_ context.Context, studentID, id string, in services.RequestInput) error {
	f.gotStudent, f.gotID, f.gotInput = studentID, id, in
	return f.err
}

func (f *fakeReqs) Delete(_ context.Context, studentID, id string) error {
	f.gotStudent, f.gotID = studentID, id
	if f.err == nil {
		f.deleted = true
	}
	return f.err
}

type fakeDonations struct {
	got     services.DonateInput
	calls   int
	res     services.DonateResult
	err     error
	history []domain.DonationSummary
	total   int64
	gotPage int
	gotSize int
}

func (f *fakeDonations) Donate(_ context.Context, in services.DonateInput) (services.DonateResult, error) {
	f.calls++
	f.got = in
	return f.res, f.err
}

func (f *fakeDonations) HistoryPage(_ context.Context, _ string, page, size int) ([]domain.DonationSummary, int64, error) {
	f.gotPage, f.gotSize = page, size
	return f.history, f.total, f.err
}

type fakeAdmin struct {
	ov  services.AdminOverview
	err error
	rep services.CacheReport
}

func (f *fakeAdmin) Overview(context.Context) (services.AdminOverview, error) { return f.ov, f.err }
func (f *fakeAdmin) CacheEntries(context.Context) services.CacheReport        { return f.rep }

// ---- harness ----

type harness struct {
	t      *testing.T
	r      *gin.Engine
	tokens *auth.TokenManager
	auth   *fakeAuth
	dash   *fakeDash
	reqs   *fakeReqs
	dons   *fakeDonations
	admin  *fakeAdmin
	hub    *notify.Hub
}

var (
	student = auth.Principal{ID: "stu-1", Name: "Asha", Email: "asha@x.io", Role: domain.RoleStudent}
	donor   = auth.Principal{ID: "don-1", Name: "Ben", Email: "ben@x.io", Role: domain.RoleDonor}
	admin   = auth.Principal{ID: auth.SystemAdminID, Name: "Admin", Email: "admin@x.io", Role: domain.RoleAdmin, System: true}
)

// newHarness mounts the handlers on routes matching production, behind the
// real authentication middleware. Principals are trusted as issued.
func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		t:      t,
		tokens: auth.NewTokenManager("test-secret", "edupay-test", time.Hour),
		auth:   &fakeAuth{},
		dash:   &fakeDash{},
		reqs:   &fakeReqs{},
		dons:   &fakeDonations{},
		admin:  &fakeAdmin{},
		hub:    notify.NewHub(16),
	}
	ctx, cancel := context.WithCancel(context.Background())
	go h.hub.Run(ctx)
	t.Cleanup(cancel)

	hs := New(Deps{
		Auth: h.auth, Dashboards: h.dash, Requests: h.reqs, Donations: h.dons,
		Admin: h.admin, Events: h.hub, Tokens: h.tokens, Heartbeat: 20 * time.Millisecond,
	})

	r := gin.New()
	r.SetHTMLTemplate(views.Templates())
	r.Use(middleware.RequestID())
	r.Use(middleware.Authenticate(h.tokens, func(_ context.Context, p auth.Principal) (auth.Principal, error) {
		for _, known := range []auth.Principal{student, donor, admin} {
			if known.ID == p.ID {
				return known, nil
			}
		}
		return p, nil
	}))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	r.GET("/", hs.Home)
	r.GET("/auth/login", hs.LoginPage)
	r.GET("/auth/register", hs.RegisterPage)
	r.POST("/auth/register", hs.Register)
	r.POST("/auth/login", hs.Login)
	r.POST("/auth/logout", hs.Logout)

	st := r.Group("/student", middleware.RequireRole(domain.RoleStudent))
	st.GET("/dashboard", hs.StudentDashboard)
	st.GET("/create-request", hs.CreateRequestPage)
	st.POST("/create-request", hs.CreateRequest)
	st.GET("/my-requests", hs.MyRequests)
	st.POST("/update/:id", hs.UpdateRequest)
	st.POST("/delete/:id", hs.DeleteRequest)

	dn := r.Group("/donor", middleware.RequireRole(domain.RoleDonor))
	dn.GET("/dashboard", hs.DonorDashboard)
	dn.POST("/donate", hs.Donate)
	dn.GET("/history", hs.DonorHistory)

	ad := r.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	ad.GET("/dashboard", hs.AdminDashboard)
	ad.GET("/cache", hs.AdminCache)

	r.GET("/events", middleware.RequireAuth(), hs.Events)

	h.r = r
	return h
}

type reqOpt func(*http.Request)

// as authenticates the request as p with a bearer token.
func (h *harness) as(p auth.Principal) reqOpt {
	tok, err := h.tokens.Issue(p)
	if err != nil {
		h.t.Fatalf("issue token: %v", err)
	}
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func asHTML(r *http.Request) { r.Header.Set("Accept", "text/html") }

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (h *harness) do(method, target string, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func form(kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v.Encode()
}
