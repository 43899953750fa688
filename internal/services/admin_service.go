package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
)

// AdminOverview is everything the admin dashboard shows.
type AdminOverview struct {
	Users     []domain.User            `json:"users"`
	Requests  []domain.RequestSummary  `json:"requests"`
	Donations []domain.DonationSummary `json:"donations"`
	Totals    repo.Totals              `json:"totals"`
}

// CacheReport describes the dashboard cache for the admin.
type CacheReport struct {
	Enabled   bool          `json:"enabled"`
	Reachable bool          `json:"reachable"`
	Entries   []cache.Entry `json:"entries"`
}

// AdminService serves read-only platform views. It never writes.
type AdminService struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

// NewAdminService constructs an AdminService. A nil cache reads as disabled.
func NewAdminService(db *gorm.DB, c *cache.Cache) *AdminService {
	if c == nil {
		c = cache.Disabled()
	}
	return &AdminService{DB: db, Cache: c}
}

// Overview loads users, requests, donations, and totals straight from the
// store.
func (s *AdminService) Overview(ctx context.Context) (AdminOverview, error) {
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "Overview")
	defer span.End()

	users, err := repo.ListUsers(ctx, s.DB)
	if err != nil {
		return AdminOverview{}, err
	}
	reqs, err := repo.ListAllRequests(ctx, s.DB)
	if err != nil {
		return AdminOverview{}, err
	}
	dons, err := repo.ListDonations(ctx, s.DB)
	if err != nil {
		return AdminOverview{}, err
	}
	totals, err := repo.PlatformTotals(ctx, s.DB)
	if err != nil {
		return AdminOverview{}, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return AdminOverview{
		Users:     users,
		Requests:  domain.SummarizeAll(reqs),
		Donations: domain.SummarizeDonations(dons),
		Totals:    totals,
	}, nil
}

// CacheEntries lists the dashboard entries with their remaining TTL. A
// backend failure is reported through Reachable, not as an error.
func (s *AdminService) CacheEntries(ctx context.Context) CacheReport {
	if !s.Cache.Enabled() {
		return CacheReport{Entries: []cache.Entry{}}
	}
	entries, ok := s.Cache.Entries(ctx, cache.StudentPattern, cache.DonorPattern)
	if entries == nil {
		entries = []cache.Entry{}
	}
	return CacheReport{Enabled: true, Reachable: ok, Entries: entries}
}
