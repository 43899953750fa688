// Package services – DonationService
//
// This file implements the donor-side write path. A donation increments the
// request's funding atomically in the store, records a completed payment,
// settles the dashboard caches, and notifies donors and students.
//
// Idempotency: when a key is supplied, its record is inserted in the same
// transaction as the donation. A second request with the same key finds the
// record (or collides on its unique index) and is answered as a replay
// without recording anything.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DonateInput is a donor's donation. Scope and IdempotencyKey are optional
// and only meaningful together.
type DonateInput struct {
	DonorID        string
	RequestID      string
	Amount         int64
	Scope          string
	IdempotencyKey string
}

// DonateResult reports the recorded (or replayed) donation.
type DonateResult struct {
	DonationID string
	Replayed   bool
	Request    *domain.Request // nil on replay
}

// DonationService records donations.
type DonationService struct {
	DB     *gorm.DB
	Hooks  *Invalidator
	Events notify.Publisher

	// IdempotencyTTL bounds how long a key is remembered.
	IdempotencyTTL time.Duration
}

// NewDonationService constructs a DonationService with a 24h key window.
func NewDonationService(db *gorm.DB, hooks *Invalidator, events notify.Publisher) *DonationService {
	return &DonationService{DB: db, Hooks: hooks, Events: events, IdempotencyTTL: 24 * time.Hour}
}

var errReplay = errors.New("idempotent replay")

// Donate funds a request. Missing or non-open requests yield
// ErrInvalidRequest; non-positive amounts yield ErrInvalidAmount.
func (s *DonationService) Donate(ctx context.Context, in DonateInput) (DonateResult, error) {
	tr := otel.Tracer("services/DonationService")
	ctx, span := tr.Start(ctx, "Donate",
		trace.WithAttributes(
			attribute.String("user.id", in.DonorID),
			attribute.String("request.id", in.RequestID),
			attribute.Int64("amount", in.Amount),
		),
	)
	defer span.End()

	if in.RequestID == "" {
		return DonateResult{}, ErrInvalidRequest
	}
	if in.Amount <= 0 {
		return DonateResult{}, ErrInvalidAmount
	}

	keyed := in.IdempotencyKey != "" && in.Scope != ""
	if keyed {
		if res, ok := s.replay(ctx, in); ok {
			span.SetAttributes(attribute.Bool("idempotency.replay", true))
			return res, nil
		}
	}

	var (
		don *domain.Donation
		req *domain.Request
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		don, req, err = repo.RecordDonation(ctx, tx, in.DonorID, in.RequestID, in.Amount)
		if err != nil {
			return err
		}
		if keyed {
			_, err = repo.CreateIdempotency(ctx, tx, in.DonorID, in.Scope, in.IdempotencyKey, don.ID, http.StatusOK, s.IdempotencyTTL)
			if errors.Is(err, repo.ErrDuplicate) {
				return errReplay
			}
		}
		return err
	})
	switch {
	case errors.Is(err, errReplay):
		if res, ok := s.replay(ctx, in); ok {
			return res, nil
		}
		return DonateResult{Replayed: true}, nil
	case errors.Is(err, repo.ErrNotFound):
		return DonateResult{}, ErrInvalidRequest
	case err != nil:
		return DonateResult{}, err
	}

	s.Hooks.OnDonationRecorded(ctx, req.StudentID)

	publish(s.Events, notify.EventRequestUpdated, notify.RequestUpdate{
		ID:           req.ID,
		AmountFunded: req.AmountFunded,
		Status:       string(req.Status),
	}, notify.RoomDonors, notify.RoomStudents)

	return DonateResult{DonationID: don.ID, Request: req}, nil
}

// HistoryPage returns one page of donorID's donations (1-based page) and the
// total count.
func (s *DonationService) HistoryPage(ctx context.Context, donorID string, page, pageSize int) ([]domain.DonationSummary, int64, error) {
	tr := otel.Tracer("services/DonationService")
	ctx, span := tr.Start(ctx, "HistoryPage",
		trace.WithAttributes(attribute.String("user.id", donorID), attribute.Int("page", page)),
	)
	defer span.End()

	total, err := repo.CountDonationsByDonor(ctx, s.DB, donorID)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	ds, err := repo.ListDonationsByDonorPage(ctx, s.DB, donorID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return domain.SummarizeDonations(ds), total, nil
}

// HasReplay reports whether a still-valid key record exists. Lookup
// failures count as "no".
func (s *DonationService) HasReplay(ctx context.Context, donorID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, donorID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *DonationService) replay(ctx context.Context, in DonateInput) (DonateResult, bool) {
	rec, err := repo.GetIdempotency(ctx, s.DB, in.DonorID, in.Scope, in.IdempotencyKey, time.Now().UTC())
	if err != nil {
		return DonateResult{}, false
	}
	return DonateResult{DonationID: rec.DonationID, Replayed: true}, true
}
