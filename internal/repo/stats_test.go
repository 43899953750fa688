package repo

import (
	"context"
	"testing"

	"github.com/tbourn/edupay/internal/domain"
)

func TestPlatformTotals_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := PlatformTotals(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing tables")
	}
}

func TestPlatformTotals_Empty(t *testing.T) {
	db := newMigratedDB(t)
	got, err := PlatformTotals(context.Background(), db)
	if err != nil {
		t.Fatalf("PlatformTotals: %v", err)
	}
	if got != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestPlatformTotals_Counts(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)
	d := seedUser(t, db, "d@example.com", domain.RoleDonor)
	seedUser(t, db, "d2@example.com", domain.RoleDonor)
	books := seedRequest(t, db, s.ID, "Books", 1000)
	seedRequest(t, db, s.ID, "Laptop", 500)

	if _, _, err := RecordDonation(ctx, db, d.ID, books.ID, 1000); err != nil {
		t.Fatalf("RecordDonation: %v", err)
	}

	got, err := PlatformTotals(ctx, db)
	if err != nil {
		t.Fatalf("PlatformTotals: %v", err)
	}
	want := Totals{
		Users: 3, Students: 1, Donors: 2,
		Requests: 2, OpenRequests: 1, FundedRequests: 1,
		Donations: 1, AmountRequested: 1500, AmountDonated: 1000,
	}
	if got != want {
		t.Fatalf("totals = %+v; want %+v", got, want)
	}
}
