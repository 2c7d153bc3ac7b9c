package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saucebot/saucebot/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// newFileDB opens a migrated on-disk database through OpenSQLite so pooled
// connections behave like production.
func newFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "guilds.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGetAPIKey_UnknownGuild_ReturnsNil(t *testing.T) {
	db := newTestDB(t, &domain.GuildRecord{})
	key, err := GetAPIKey(context.Background(), db, 1234)
	if err != nil || key != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", key, err)
	}
}

func TestGetAPIKey_RecordWithoutOverride(t *testing.T) {
	db := newTestDB(t, &domain.GuildRecord{})
	ctx := context.Background()
	if err := IncrementQueryCount(ctx, db, 5); err != nil {
		t.Fatalf("IncrementQueryCount: %v", err)
	}
	key, err := GetAPIKey(ctx, db, 5)
	if err != nil || key != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", key, err)
	}
}

func TestGetAPIKey_DBError(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := GetAPIKey(context.Background(), db, 1); err == nil {
		t.Fatalf("expected error due to missing table")
	}
}

func TestSetAPIKey_InsertThenUpdate_PreservesCounter(t *testing.T) {
	db := newTestDB(t, &domain.GuildRecord{})
	ctx := context.Background()

	if err := SetAPIKey(ctx, db, 9, "first"); err != nil {
		t.Fatalf("SetAPIKey insert: %v", err)
	}
	if err := IncrementQueryCount(ctx, db, 9); err != nil {
		t.Fatalf("IncrementQueryCount: %v", err)
	}
	if err := SetAPIKey(ctx, db, 9, "second"); err != nil {
		t.Fatalf("SetAPIKey update: %v", err)
	}

	rec, err := GetGuild(ctx, db, 9)
	if err != nil {
		t.Fatalf("GetGuild: %v", err)
	}
	if rec.APIKey == nil || *rec.APIKey != "second" {
		t.Fatalf("api key = %v; want second", rec.APIKey)
	}
	if rec.QueryCount != 1 {
		t.Fatalf("query count = %d; want 1", rec.QueryCount)
	}

	var rows int64
	db.Model(&domain.GuildRecord{}).Where("guild_id = ?", 9).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected exactly one record, got %d", rows)
	}
}

func TestGetGuild_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.GuildRecord{})
	if _, err := GetGuild(context.Background(), db, 77); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrementQueryCount_CreatesAndIncrements(t *testing.T) {
	db := newTestDB(t, &domain.GuildRecord{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := IncrementQueryCount(ctx, db, domain.DMGuildID); err != nil {
			t.Fatalf("IncrementQueryCount #%d: %v", i, err)
		}
	}
	rec, err := GetGuild(ctx, db, domain.DMGuildID)
	if err != nil {
		t.Fatalf("GetGuild: %v", err)
	}
	if rec.QueryCount != 3 {
		t.Fatalf("query count = %d; want 3", rec.QueryCount)
	}
}

func TestIncrementQueryCount_ConcurrentNoLostUpdates(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	// Seed a starting value so the test covers both the insert and update arms.
	if err := IncrementQueryCount(ctx, db, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- IncrementQueryCount(ctx, db, 1)
		}()
		go func() {
			defer wg.Done()
			errs <- IncrementQueryCount(ctx, db, 2) // fresh guild, racing on creation
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent increment: %v", err)
		}
	}

	g1, _ := GetGuild(ctx, db, 1)
	g2, _ := GetGuild(ctx, db, 2)
	if g1 == nil || g1.QueryCount != n+1 {
		t.Fatalf("guild 1 count = %+v; want %d", g1, n+1)
	}
	if g2 == nil || g2.QueryCount != n {
		t.Fatalf("guild 2 count = %+v; want %d", g2, n)
	}
}
