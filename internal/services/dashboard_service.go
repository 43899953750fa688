// Package services – DashboardService
//
// This file implements the read path of the donor and student dashboards.
// Both views are derived data: they are served from the cache when present
// and recomputed from the store otherwise. Search results are never cached
// and a search never reads the cached open list.
//
// Observability: public methods are OpenTelemetry-instrumented; spans record
// whether the cache answered.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/repo"
	"github.com/tbourn/edupay/internal/search"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default entry lifetimes.
const (
	DefaultTTLOpen    = 300 * time.Second
	DefaultTTLStudent = 300 * time.Second
)

// DashboardService serves the two cached dashboard views.
type DashboardService struct {
	DB    *gorm.DB
	Cache *cache.Cache

	TTLOpen    time.Duration
	TTLStudent time.Duration
}

// NewDashboardService constructs the service with default TTLs. A nil cache
// is replaced by a disabled one.
func NewDashboardService(db *gorm.DB, c *cache.Cache) *DashboardService {
	if c == nil {
		c = cache.Disabled()
	}
	return &DashboardService{
		DB:         db,
		Cache:      c,
		TTLOpen:    DefaultTTLOpen,
		TTLStudent: DefaultTTLStudent,
	}
}

// OpenRequests returns open requests, newest first. With a blank query the
// cached list is used and repopulated on a miss; with a query the store is
// searched directly and the cache is left untouched.
func (s *DashboardService) OpenRequests(ctx context.Context, query string) ([]domain.RequestSummary, error) {
	tr := otel.Tracer("services/DashboardService")
	pattern := search.LikePattern(query)
	ctx, span := tr.Start(ctx, "OpenRequests",
		trace.WithAttributes(attribute.Bool("search", pattern != "")),
	)
	defer span.End()

	if pattern != "" {
		rs, err := repo.ListOpenRequests(ctx, s.DB, pattern)
		if err != nil {
			return nil, err
		}
		return domain.SummarizeAll(rs), nil
	}

	var cached []domain.RequestSummary
	if s.Cache.Get(ctx, cache.DonorOpenKey, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if cached == nil {
			cached = []domain.RequestSummary{}
		}
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	view, err := s.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, cache.DonorOpenKey, view, s.TTLOpen)
	return view, nil
}

// StudentDashboard returns the owner's requests and totals, from the cache
// when present.
func (s *DashboardService) StudentDashboard(ctx context.Context, studentID string) (domain.StudentDashboard, error) {
	tr := otel.Tracer("services/DashboardService")
	ctx, span := tr.Start(ctx, "StudentDashboard",
		trace.WithAttributes(attribute.String("user.id", studentID)),
	)
	defer span.End()

	key := cache.StudentKey(studentID)
	var cached domain.StudentDashboard
	if s.Cache.Get(ctx, key, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if cached.Requests == nil {
			cached.Requests = []domain.RequestSummary{}
		}
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	view, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return domain.StudentDashboard{}, err
	}
	s.Cache.Set(ctx, key, view, s.TTLStudent)
	return view, nil
}

// MyRequests lists the owner's requests straight from the store.
func (s *DashboardService) MyRequests(ctx context.Context, studentID string) ([]domain.RequestSummary, error) {
	rs, err := repo.ListRequestsByStudent(ctx, s.DB, studentID)
	if err != nil {
		return nil, err
	}
	return domain.SummarizeAll(rs), nil
}

func (s *DashboardService) loadOpen(ctx context.Context) ([]domain.RequestSummary, error) {
	rs, err := repo.ListOpenRequests(ctx, s.DB, "")
	if err != nil {
		return nil, err
	}
	return domain.SummarizeAll(rs), nil
}

func (s *DashboardService) loadStudent(ctx context.Context, studentID string) (domain.StudentDashboard, error) {
	rs, err := repo.ListRequestsByStudent(ctx, s.DB, studentID)
	if err != nil {
		return domain.StudentDashboard{}, err
	}
	return domain.NewStudentDashboard(rs), nil
}
