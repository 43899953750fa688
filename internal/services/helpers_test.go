package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/config"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newSvcCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb, 200*time.Millisecond), mr
}

// recorder is a notify.Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(name string, data any, rooms ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range rooms {
		r.events = append(r.events, notify.Event{Name: name, Room: room, Data: data})
	}
	return true
}

func (r *recorder) byName(name string) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// stack wires the services the way the router does.
type stack struct {
	db        *gorm.DB
	cache     *cache.Cache
	mr        *miniredis.Miniredis
	events    *recorder
	dash      *DashboardService
	hooks     *Invalidator
	requests  *RequestService
	donations *DonationService
}

func newStack(t *testing.T, strategy string) *stack {
	t.Helper()
	db := newSvcDB(t)
	c, mr := newSvcCache(t)
	return buildStack(db, c, mr, strategy)
}

func newStackNoCache(t *testing.T) *stack {
	t.Helper()
	return buildStack(newSvcDB(t), nil, nil, config.StrategyRefresh)
}

func buildStack(db *gorm.DB, c *cache.Cache, mr *miniredis.Miniredis, strategy string) *stack {
	ev := &recorder{}
	dash := NewDashboardService(db, c)
	hooks := NewInvalidator(dash, strategy)
	return &stack{
		db:        db,
		cache:     dash.Cache,
		mr:        mr,
		events:    ev,
		dash:      dash,
		hooks:     hooks,
		requests:  NewRequestService(db, hooks, ev),
		donations: NewDonationService(db, hooks, ev),
	}
}

func seedUser(t *testing.T, db *gorm.DB, name string, role domain.Role) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, name, name+"@example.com", "hash", role)
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func summaryIDs(rs []domain.RequestSummary) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
