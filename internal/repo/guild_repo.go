// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for GuildRecord.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Records are created lazily. Writes use a single INSERT ... ON CONFLICT
// statement keyed on guild_id, so concurrent writers for the same guild
// never lose updates and never race on record creation.
//
// Functions:
//
//   - GetAPIKey(ctx, db, guildID) -> *string, error
//     Returns the override credential, or nil when no record/override exists.
//
//   - SetAPIKey(ctx, db, guildID, key) -> error
//     Upserts the credential override.
//
//   - IncrementQueryCount(ctx, db, guildID) -> error
//     Atomically adds one to the counter, creating the record at 1.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saucebot/saucebot/internal/domain"
)

// ErrNotFound aliases gorm's not-found error.
var ErrNotFound = gorm.ErrRecordNotFound

var guildConflict = []clause.Column{{Name: "guild_id"}}

// GetGuild loads the record for guildID or returns ErrNotFound.
func GetGuild(ctx context.Context, db *gorm.DB, guildID int64) (*domain.GuildRecord, error) {
	var rec domain.GuildRecord
	if err := db.WithContext(ctx).Where("guild_id = ?", guildID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAPIKey returns the credential override for guildID. Absence of the
// record or of the override is not an error.
func GetAPIKey(ctx context.Context, db *gorm.DB, guildID int64) (*string, error) {
	rec, err := GetGuild(ctx, db, guildID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.APIKey, nil
}

// SetAPIKey stores key as the guild's credential override.
func SetAPIKey(ctx context.Context, db *gorm.DB, guildID int64, key string) error {
	now := time.Now().UTC()
	rec := domain.GuildRecord{GuildID: guildID, APIKey: &key, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: guildConflict,
			DoUpdates: clause.Assignments(map[string]any{
				"api_key":    key,
				"updated_at": now,
			}),
		}).
		Create(&rec).Error
}

// IncrementQueryCount adds one to the guild's counter in a single statement.
func IncrementQueryCount(ctx context.Context, db *gorm.DB, guildID int64) error {
	now := time.Now().UTC()
	rec := domain.GuildRecord{GuildID: guildID, QueryCount: 1, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: guildConflict,
			DoUpdates: clause.Assignments(map[string]any{
				"query_count": gorm.Expr("guild_records.query_count + 1"),
				"updated_at":  now,
			}),
		}).
		Create(&rec).Error
}
