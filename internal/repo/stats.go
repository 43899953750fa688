// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate queries behind the admin
// dashboard. Each function is context-aware and safe to call from services.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/edupay/internal/domain"
)

// Totals summarizes the whole platform.
type Totals struct {
	Users           int64 `json:"users"`
	Students        int64 `json:"students"`
	Donors          int64 `json:"donors"`
	Requests        int64 `json:"requests"`
	OpenRequests    int64 `json:"open_requests"`
	FundedRequests  int64 `json:"funded_requests"`
	Donations       int64 `json:"donations"`
	AmountRequested int64 `json:"amount_requested"`
	AmountDonated   int64 `json:"amount_donated"`
}

// PlatformTotals computes counts per role and status plus the requested and
// donated sums.
//
// Sums go through COALESCE so an empty table yields 0 instead of NULL.
func PlatformTotals(ctx context.Context, db *gorm.DB) (Totals, error) {
	var t Totals
	q := db.WithContext(ctx)

	counts := []struct {
		dst   *int64
		model any
		where []any
	}{
		{&t.Users, &domain.User{}, nil},
		{&t.Students, &domain.User{}, []any{"role = ?", domain.RoleStudent}},
		{&t.Donors, &domain.User{}, []any{"role = ?", domain.RoleDonor}},
		{&t.Requests, &domain.Request{}, nil},
		{&t.OpenRequests, &domain.Request{}, []any{"status = ?", domain.StatusOpen}},
		{&t.FundedRequests, &domain.Request{}, []any{"status = ?", domain.StatusFunded}},
		{&t.Donations, &domain.Donation{}, nil},
	}
	for _, c := range counts {
		tx := q.Model(c.model)
		if len(c.where) > 0 {
			tx = tx.Where(c.where[0], c.where[1:]...)
		}
		if err := tx.Count(c.dst).Error; err != nil {
			return Totals{}, err
		}
	}

	if err := q.Model(&domain.Request{}).
		Select("COALESCE(SUM(amount_requested), 0)").
		Scan(&t.AmountRequested).Error; err != nil {
		return Totals{}, err
	}
	if err := q.Model(&domain.Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&t.AmountDonated).Error; err != nil {
		return Totals{}, err
	}
	return t, nil
}
