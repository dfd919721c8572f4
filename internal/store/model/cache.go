package model

import (
	"encoding/json"
	"time"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/cache"
)

// CacheEntry is one cached design keyed by the hash of its canonical request.
// Entries are never deleted on expiry; the lookup query excludes them instead.
type CacheEntry struct {
	CacheHash string                         `gorm:"primaryKey;column:cache_hash"`
	Circuits  *JSONField[cache.CanonicalKey] `gorm:"column:circuits;type:jsonb"`
	Design    *JSONField[api.Design]         `gorm:"column:design;type:jsonb"`
	HitCount  int64                          `gorm:"column:hit_count;not null;default:1"`
	CreatedAt time.Time                      `gorm:"column:created_at"`
	LastHitAt time.Time                      `gorm:"column:last_hit_at"`
}

func (CacheEntry) TableName() string {
	return "design_cache_entries"
}

func (e CacheEntry) String() string {
	val, _ := json.Marshal(e)
	return string(val)
}

func NewCacheEntry(key cache.CanonicalKey, design api.Design, now time.Time) *CacheEntry {
	return &CacheEntry{
		CacheHash: cache.Hash(key),
		Circuits:  MakeJSONField(key),
		Design:    MakeJSONField(design),
		HitCount:  1,
		CreatedAt: now,
		LastHitAt: now,
	}
}
