// Package domain defines the persistence model for per-guild records and the
// closed set of search outcomes produced by a source lookup. The record type
// is mapped with GORM and forms the data layer of the bot; outcomes are plain
// values shared by the cache, the lookup pipeline, and the formatter.
package domain

import "time"

// DMGuildID is the sentinel guild identity used for direct-message lookups
// and any other invocation that has no originating guild.
const DMGuildID int64 = 0

// GuildRecord holds the per-guild state of the bot: an optional upstream
// credential override and a cumulative lookup counter.
//
// Fields:
//   - ID: surrogate primary key.
//   - GuildID: platform guild identity, or DMGuildID; unique.
//   - APIKey: optional credential override; nil means "use the default key".
//   - QueryCount: cumulative number of lookups, never decremented.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//
// Records are created lazily on first write and never deleted, so the model
// carries no soft-delete column.
type GuildRecord struct {
	ID         uint64    `json:"id"          gorm:"primaryKey;autoIncrement"`
	GuildID    int64     `json:"guild_id"    gorm:"not null;uniqueIndex:ux_guild_records_guild"`
	APIKey     *string   `json:"-"           gorm:"type:varchar(40)"`
	QueryCount int64     `json:"query_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for GuildRecord.
func (GuildRecord) TableName() string { return "guild_records" }
