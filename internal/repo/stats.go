// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used by the help
// command, the presence updater, and the public stats endpoint. Each function
// is context-aware and safe to call from services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/saucebot/saucebot/internal/domain"
)

// TotalQueryCount returns the sum of query_count across all guild records.
// An empty table yields 0.
func TotalQueryCount(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.GuildRecord{}).
		Select("COALESCE(SUM(query_count), 0)").
		Scan(&total).Error
	return total, err
}

// CountGuilds returns the number of guild records, excluding the DM sentinel.
func CountGuilds(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.GuildRecord{}).
		Where("guild_id <> ?", domain.DMGuildID).
		Count(&n).Error
	return n, err
}
