package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/edupay/internal/domain"
)

// newTestDB returns a unique in-memory database per test to avoid schema
// leaking across tests. With no models it stays empty.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newTestDB(t, &domain.User{}, &domain.Request{}, &domain.Donation{}, &domain.Payment{}, &domain.Idempotency{})
}

func seedUser(t *testing.T, db *gorm.DB, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, "User "+email, email, "hash", role)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func seedRequest(t *testing.T, db *gorm.DB, studentID, title string, amount int64) *domain.Request {
	t.Helper()
	r, err := CreateRequest(context.Background(), db, studentID, title, title+" description", amount, nil)
	if err != nil {
		t.Fatalf("seed request %s: %v", title, err)
	}
	return r
}
