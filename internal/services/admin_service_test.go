package services

import (
	"context"
	"testing"

	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/config"
	"github.com/tbourn/edupay/internal/domain"
)

func TestAdminService_Overview(t *testing.T) {
	s := newStack(t, config.StrategyRefresh)
	ctx := context.Background()
	stu := seedUser(t, s.db, "ana", domain.RoleStudent)
	donor := seedUser(t, s.db, "ben", domain.RoleDonor)
	r, _ := s.requests.Create(ctx, stu.ID, RequestInput{Title: "Books", Description: "d", AmountRequested: 100})
	if _, err := s.donations.Donate(ctx, DonateInput{DonorID: donor.ID, RequestID: r.ID, Amount: 100}); err != nil {
		t.Fatalf("Donate: %v", err)
	}

	a := NewAdminService(s.db, s.cache)
	ov, err := a.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(ov.Users) != 2 || len(ov.Requests) != 1 || len(ov.Donations) != 1 {
		t.Fatalf("unexpected overview sizes: %+v", ov)
	}
	if ov.Requests[0].StudentName != "ana" {
		t.Fatalf("request missing student name: %+v", ov.Requests[0])
	}
	d := ov.Donations[0]
	if d.DonorName != "ben" || d.RequestTitle != "Books" || d.Amount != 100 {
		t.Fatalf("donation missing joins: %+v", d)
	}
	if ov.Totals.FundedRequests != 1 || ov.Totals.AmountDonated != 100 || ov.Totals.Users != 2 {
		t.Fatalf("unexpected totals: %+v", ov.Totals)
	}
}

func TestAdminService_Overview_Empty(t *testing.T) {
	a := NewAdminService(newSvcDB(t), nil)
	ov, err := a.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.Users == nil || ov.Requests == nil || ov.Donations == nil {
		t.Fatalf("expected non-nil slices: %+v", ov)
	}
}

func TestAdminService_CacheEntries(t *testing.T) {
	s := newStack(t, config.StrategyRefresh)
	ctx := context.Background()
	stu := seedUser(t, s.db, "cat", domain.RoleStudent)
	_, _ = s.dash.OpenRequests(ctx, "")
	_, _ = s.dash.StudentDashboard(ctx, stu.ID)
	_ = s.mr.Set("unrelated", "x")

	a := NewAdminService(s.db, s.cache)
	rep := a.CacheEntries(ctx)
	if !rep.Enabled || !rep.Reachable || len(rep.Entries) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	seen := map[string]int64{}
	for _, e := range rep.Entries {
		seen[e.Key] = e.TTLSeconds
	}
	if seen[cache.DonorOpenKey] <= 0 || seen[cache.StudentKey(stu.ID)] <= 0 {
		t.Fatalf("expected both dashboard keys with TTL, got %v", seen)
	}

	s.mr.Close()
	rep = a.CacheEntries(ctx)
	if !rep.Enabled || rep.Reachable || len(rep.Entries) != 0 {
		t.Fatalf("expected unreachable report, got %+v", rep)
	}
}

func TestAdminService_CacheEntries_Disabled(t *testing.T) {
	a := NewAdminService(newSvcDB(t), nil)
	rep := a.CacheEntries(context.Background())
	if rep.Enabled || rep.Entries == nil {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
