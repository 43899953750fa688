// Package services – Invalidator
//
// Every mutation of a request (create, donation, edit, delete) touches the
// same two cached views: the owner's student dashboard and the global open
// list. The hooks below name the mutation; all of them settle both keys in
// one step with the configured strategy:
//
//   - refresh: recompute both views from the store and write them in one
//     MULTI/EXEC, so the next read is a fresh hit.
//   - delete: remove both keys with one DEL; the next reader repopulates.
//
// If a refresh cannot be computed or written, both keys are deleted instead,
// so a failed refresh never leaves one fresh and one stale entry. The same
// happens when a later settle starts while a refresh is in flight: its
// snapshot may be older than the later one's, so it is dropped rather than
// allowed to land last. Within one process the entries therefore end up
// either fresh or absent; across processes they are last-write-wins until
// the TTL. Cache failures are logged and never reach the caller.
package services

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/config"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mutation names, used in logs and spans.
const (
	mutationCreated  = "request_created"
	mutationDonation = "donation_recorded"
	mutationEdited   = "request_edited"
	mutationDeleted  = "request_deleted"
)

// Invalidator keeps the dashboard cache consistent with the store after
// writes. It reads through Dashboards to recompute views.
type Invalidator struct {
	Dashboards *DashboardService
	Strategy   string // config.StrategyRefresh | config.StrategyDelete

	// seq numbers settles in start order.
	seq atomic.Uint64
}

type refreshResult int

const (
	refreshed refreshResult = iota
	refreshFailed
	refreshSuperseded
)

// NewInvalidator builds hooks over d. An unknown strategy falls back to
// refresh.
func NewInvalidator(d *DashboardService, strategy string) *Invalidator {
	if strategy != config.StrategyDelete {
		strategy = config.StrategyRefresh
	}
	return &Invalidator{Dashboards: d, Strategy: strategy}
}

// OnRequestCreated settles the views after studentID created a request.
func (v *Invalidator) OnRequestCreated(ctx context.Context, studentID string) {
	v.settle(ctx, mutationCreated, studentID)
}

// OnDonationRecorded settles the views after a request owned by studentID
// was funded.
func (v *Invalidator) OnDonationRecorded(ctx context.Context, studentID string) {
	v.settle(ctx, mutationDonation, studentID)
}

// OnRequestEdited settles the views after studentID edited a request.
func (v *Invalidator) OnRequestEdited(ctx context.Context, studentID string) {
	v.settle(ctx, mutationEdited, studentID)
}

// OnRequestDeleted settles the views after studentID deleted a request.
func (v *Invalidator) OnRequestDeleted(ctx context.Context, studentID string) {
	v.settle(ctx, mutationDeleted, studentID)
}

func (v *Invalidator) settle(ctx context.Context, mutation, studentID string) {
	d := v.Dashboards
	if !d.Cache.Enabled() {
		return
	}
	tr := otel.Tracer("services/Invalidator")
	ctx, span := tr.Start(ctx, "settle",
		trace.WithAttributes(
			attribute.String("mutation", mutation),
			attribute.String("strategy", v.Strategy),
			attribute.String("user.id", studentID),
		),
	)
	defer span.End()

	keys := []string{cache.StudentKey(studentID), cache.DonorOpenKey}
	gen := v.seq.Add(1)

	if v.Strategy == config.StrategyRefresh {
		switch v.refresh(ctx, studentID, gen) {
		case refreshed:
			return
		case refreshSuperseded:
			span.SetAttributes(attribute.Bool("cache.superseded", true))
			log.Debug().Str("mutation", mutation).Strs("keys", keys).Msg("concurrent settle; deleting entries")
		default:
			log.Warn().Str("mutation", mutation).Strs("keys", keys).Msg("cache refresh failed; deleting entries")
		}
	}
	if !d.Cache.Delete(ctx, keys...) {
		span.SetAttributes(attribute.Bool("cache.stale", true))
		log.Warn().Str("mutation", mutation).Strs("keys", keys).Msg("cache invalidation failed; entries expire by TTL")
	}
}

// refresh recomputes both views and writes them together. It reports
// refreshSuperseded when a settle numbered after gen started before the
// write finished; the caller then deletes whatever this one wrote.
func (v *Invalidator) refresh(ctx context.Context, studentID string, gen uint64) refreshResult {
	d := v.Dashboards
	student, err := d.loadStudent(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", studentID).Msg("recompute student dashboard failed")
		return refreshFailed
	}
	open, err := d.loadOpen(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("recompute open requests failed")
		return refreshFailed
	}
	if v.seq.Load() != gen {
		return refreshSuperseded
	}
	ok := d.Cache.SetMany(ctx,
		cache.Item{Key: cache.StudentKey(studentID), Value: student, TTL: d.TTLStudent},
		cache.Item{Key: cache.DonorOpenKey, Value: open, TTL: d.TTLOpen},
	)
	switch {
	case !ok:
		return refreshFailed
	case v.seq.Load() != gen:
		return refreshSuperseded
	}
	return refreshed
}
