package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/search"
)

func TestCreateRequest_SetsDefaults(t *testing.T) {
	db := newMigratedDB(t)
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	r, err := CreateRequest(context.Background(), db, s.ID, "Books", "Semester books", 1000, &deadline)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if r.ID == "" || r.Status != domain.StatusOpen || r.AmountFunded != 0 || r.AmountRequested != 1000 {
		t.Fatalf("unexpected request: %+v", r)
	}
	got, err := GetRequest(context.Background(), db, r.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Student.ID != s.ID || got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateRequest_UnknownStudent_FailsOnForeignKey(t *testing.T) {
	db := newMigratedDB(t)
	if _, err := CreateRequest(context.Background(), db, "ghost", "t", "d", 10, nil); err == nil {
		t.Fatalf("expected FK violation for unknown student")
	}
}

func TestListOpenRequests_OrderFilterAndSearch(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)

	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	books := seedRequest(t, db, s.ID, "Books", 1000)
	laptop := seedRequest(t, db, s.ID, "Laptop", 500)
	funded := seedRequest(t, db, s.ID, "Bus pass", 50)
	pct := seedRequest(t, db, s.ID, "100% tuition", 70)
	ecole := seedRequest(t, db, s.ID, "École fees", 300)
	for i, r := range []*domain.Request{ecole, books, laptop, funded, pct} {
		db.Model(&domain.Request{}).Where("id = ?", r.ID).Update("created_at", t0.Add(time.Duration(i)*time.Hour))
	}
	if err := FundRequest(ctx, db, funded.ID, 50); err != nil {
		t.Fatalf("FundRequest: %v", err)
	}

	all, err := ListOpenRequests(ctx, db, "")
	if err != nil {
		t.Fatalf("ListOpenRequests: %v", err)
	}
	if len(all) != 4 || all[0].ID != pct.ID || all[1].ID != laptop.ID || all[2].ID != books.ID || all[3].ID != ecole.ID {
		t.Fatalf("unexpected open list order: %+v", all)
	}
	if all[0].Student.Name == "" {
		t.Fatalf("expected student to be preloaded")
	}

	// Matches description too ("Books description").
	hits, err := ListOpenRequests(ctx, db, "%books desc%")
	if err != nil || len(hits) != 1 || hits[0].ID != books.ID {
		t.Fatalf("search by description: hits=%+v err=%v", hits, err)
	}

	// Escaped wildcard only matches a literal percent sign.
	hits, err = ListOpenRequests(ctx, db, `%100\%%`)
	if err != nil || len(hits) != 1 || hits[0].ID != pct.ID {
		t.Fatalf("escaped search: hits=%+v err=%v", hits, err)
	}

	// Non-ASCII text matches regardless of case.
	for _, q := range []string{"école", "ÉCOLE", "École", "éCoLe FEES", "fees"} {
		hits, err = ListOpenRequests(ctx, db, search.LikePattern(q))
		if err != nil || len(hits) != 1 || hits[0].ID != ecole.ID {
			t.Fatalf("search %q: hits=%+v err=%v", q, hits, err)
		}
	}

	// A pattern never spans the title/description boundary.
	hits, err = ListOpenRequests(ctx, db, search.LikePattern("laptop laptop"))
	if err != nil || len(hits) != 0 {
		t.Fatalf("cross-field match: hits=%+v err=%v", hits, err)
	}
}

func TestListRequestsByStudent_OnlyOwned(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	a := seedUser(t, db, "a@example.com", domain.RoleStudent)
	b := seedUser(t, db, "b@example.com", domain.RoleStudent)
	seedRequest(t, db, a.ID, "A1", 10)
	seedRequest(t, db, a.ID, "A2", 20)
	seedRequest(t, db, b.ID, "B1", 30)

	out, err := ListRequestsByStudent(ctx, db, a.ID)
	if err != nil || len(out) != 2 {
		t.Fatalf("expected 2 owned requests, got %d (%v)", len(out), err)
	}
	for _, r := range out {
		if r.StudentID != a.ID {
			t.Fatalf("leaked request from another student: %+v", r)
		}
	}

	all, err := ListAllRequests(ctx, db)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAllRequests: %d %v", len(all), err)
	}
}

func TestGetOwnedRequest_ForeignOwnerIsNotFound(t *testing.T) {
	db := newMigratedDB(t)
	a := seedUser(t, db, "a@example.com", domain.RoleStudent)
	b := seedUser(t, db, "b@example.com", domain.RoleStudent)
	r := seedRequest(t, db, a.ID, "A1", 10)

	if _, err := GetOwnedRequest(context.Background(), db, r.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUnfundedRequest(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)
	r := seedRequest(t, db, s.ID, "Books", 1000)

	title := "Textbooks"
	amount := int64(1200)
	if err := UpdateUnfundedRequest(ctx, db, r.ID, s.ID, RequestPatch{Title: &title, AmountRequested: &amount}); err != nil {
		t.Fatalf("UpdateUnfundedRequest: %v", err)
	}
	got, _ := GetOwnedRequest(ctx, db, r.ID, s.ID)
	if got.Title != "Textbooks" || got.AmountRequested != 1200 || got.Description != "Books description" {
		t.Fatalf("unexpected after update: %+v", got)
	}
	if got.SearchText != search.Document("Textbooks", "Books description") {
		t.Fatalf("search text not rewritten: %q", got.SearchText)
	}
	hits, _ := ListOpenRequests(ctx, db, search.LikePattern("TEXTBOOKS"))
	if len(hits) != 1 {
		t.Fatalf("expected renamed request to be searchable, got %d hits", len(hits))
	}

	// Empty patch is a no-op.
	if err := UpdateUnfundedRequest(ctx, db, r.ID, s.ID, RequestPatch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}

	// Missing -> ErrNotFound
	if err := UpdateUnfundedRequest(ctx, db, "missing", s.ID, RequestPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Funded -> ErrLocked
	if err := FundRequest(ctx, db, r.ID, 1); err != nil {
		t.Fatalf("FundRequest: %v", err)
	}
	if err := UpdateUnfundedRequest(ctx, db, r.ID, s.ID, RequestPatch{Title: &title}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestDeleteUnfundedRequest(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)
	other := seedUser(t, db, "o@example.com", domain.RoleStudent)
	r1 := seedRequest(t, db, s.ID, "One", 100)
	r2 := seedRequest(t, db, s.ID, "Two", 100)

	if err := DeleteUnfundedRequest(ctx, db, r1.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := DeleteUnfundedRequest(ctx, db, r1.ID, s.ID); err != nil {
		t.Fatalf("DeleteUnfundedRequest: %v", err)
	}
	if _, err := GetRequest(ctx, db, r1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}

	if err := FundRequest(ctx, db, r2.ID, 10); err != nil {
		t.Fatalf("FundRequest: %v", err)
	}
	if err := DeleteUnfundedRequest(ctx, db, r2.ID, s.ID); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestFundRequest_IncrementsAndTransitions(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)
	r := seedRequest(t, db, s.ID, "Books", 1000)

	if err := FundRequest(ctx, db, r.ID, 400); err != nil {
		t.Fatalf("FundRequest: %v", err)
	}
	got, _ := GetRequest(ctx, db, r.ID)
	if got.AmountFunded != 400 || got.Status != domain.StatusOpen {
		t.Fatalf("after partial funding: %+v", got)
	}

	if err := FundRequest(ctx, db, r.ID, 700); err != nil {
		t.Fatalf("FundRequest: %v", err)
	}
	got, _ = GetRequest(ctx, db, r.ID)
	if got.AmountFunded != 1100 || got.Status != domain.StatusFunded {
		t.Fatalf("after overfunding: %+v", got)
	}

	// No longer open.
	if err := FundRequest(ctx, db, r.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for funded request, got %v", err)
	}
	if err := FundRequest(ctx, db, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing request, got %v", err)
	}
}

func TestAutoMigrate_BackfillsSearchText(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	s := seedUser(t, db, "s@example.com", domain.RoleStudent)
	r := seedRequest(t, db, s.ID, "Ünïversity Fees", 100)
	db.Model(&domain.Request{}).Where("id = ?", r.ID).UpdateColumn("search_text", "")

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	hits, err := ListOpenRequests(ctx, db, search.LikePattern("ünïversity"))
	if err != nil || len(hits) != 1 || hits[0].ID != r.ID {
		t.Fatalf("backfilled row not searchable: hits=%+v err=%v", hits, err)
	}
}
