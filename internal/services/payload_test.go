package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/config"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/notify"
)

func jsonKeys(t *testing.T, raw []byte) []string {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Browser clients read these payloads by field name.
func TestPayloads_FieldNames(t *testing.T) {
	s := newStack(t, config.StrategyRefresh)
	ctx := context.Background()
	stu := seedUser(t, s.db, "stu", domain.RoleStudent)
	donor := seedUser(t, s.db, "don", domain.RoleDonor)

	r, err := s.requests.Create(ctx, stu.ID, RequestInput{Title: "Books", Description: "d", AmountRequested: 1000})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.donations.Donate(ctx, DonateInput{DonorID: donor.ID, RequestID: r.ID, Amount: 1000}); err != nil {
		t.Fatalf("Donate: %v", err)
	}

	created := s.events.byName(notify.EventStudentRequest)
	if len(created) == 0 {
		t.Fatalf("no %s event", notify.EventStudentRequest)
	}
	raw, _ := json.Marshal(created[0].Data)
	if got, want := strings.Join(jsonKeys(t, raw), ","), "amountFunded,amountRequested,createdAt,id,studentName,title"; got != want {
		t.Fatalf("%s keys = %s; want %s", notify.EventStudentRequest, got, want)
	}

	updated := s.events.byName(notify.EventRequestUpdated)
	if len(updated) == 0 {
		t.Fatalf("no %s event", notify.EventRequestUpdated)
	}
	raw, _ = json.Marshal(updated[0].Data)
	if got, want := strings.Join(jsonKeys(t, raw), ","), "amountFunded,id,status"; got != want {
		t.Fatalf("%s keys = %s; want %s", notify.EventRequestUpdated, got, want)
	}
	if !strings.Contains(string(raw), `"amountFunded":1000`) || !strings.Contains(string(raw), `"status":"funded"`) {
		t.Fatalf("unexpected update payload: %s", raw)
	}

	entry, err := s.mr.Get(cache.StudentKey(stu.ID))
	if err != nil {
		t.Fatalf("student entry missing: %v", err)
	}
	if got, want := strings.Join(jsonKeys(t, []byte(entry)), ","), "requests,totalFunded,totalRequested"; got != want {
		t.Fatalf("student entry keys = %s; want %s", got, want)
	}
	for _, k := range []string{`"amountRequested":1000`, `"amountFunded":1000`, `"title":"Books"`} {
		if !strings.Contains(entry, k) {
			t.Fatalf("student entry lacks %s: %s", k, entry)
		}
	}
}
