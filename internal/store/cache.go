package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradewatt/designer/internal/store/model"
)

// Cache is the design cache store. Get filters out expired entries; physical
// rows are never removed on expiry.
type Cache interface {
	Get(ctx context.Context, cacheHash string, ttl time.Duration) (*model.CacheEntry, error)
	Upsert(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error)
	RecordHit(ctx context.Context, cacheHash string) error
	PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error)
	InitialMigration() error
}

type CacheStore struct {
	db *gorm.DB
}

// Make sure we conform to Cache interface
var _ Cache = (*CacheStore)(nil)

func NewCacheStore(db *gorm.DB) Cache {
	return &CacheStore{db: db}
}

func (s *CacheStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.CacheEntry{})
}

// Get returns the entry for the hash when it exists and its created_at is
// still inside the TTL window. Absent and expired both come back as
// ErrRecordNotFound; callers cannot distinguish the two.
func (s *CacheStore) Get(ctx context.Context, cacheHash string, ttl time.Duration) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	cutoff := time.Now().Add(-ttl)
	result := s.getDB(ctx).Where("cache_hash = ? AND created_at > ?", cacheHash, cutoff).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying cache entry: %w", result.Error)
	}
	return &entry, nil
}

// Upsert writes the entry, overwriting any existing row with the same hash.
// Last-writer-wins: a racing duplicate computation is wasted work but never
// incorrect.
func (s *CacheStore) Upsert(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"circuits", "design", "hit_count", "created_at", "last_hit_at"}),
	}).Create(entry)
	if result.Error != nil {
		return nil, fmt.Errorf("upserting cache entry: %w", result.Error)
	}
	return entry, nil
}

// RecordHit bumps the hit counter and the last hit timestamp of an entry.
func (s *CacheStore) RecordHit(ctx context.Context, cacheHash string) error {
	result := s.getDB(ctx).Model(&model.CacheEntry{}).
		Where("cache_hash = ?", cacheHash).
		Updates(map[string]any{
			"hit_count":   gorm.Expr("hit_count + 1"),
			"last_hit_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("recording cache hit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// PurgeExpired removes rows outside the TTL window. Nothing schedules this;
// it exists for out-of-band reclamation.
func (s *CacheStore) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	result := s.getDB(ctx).Where("created_at <= ?", cutoff).Delete(&model.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("purging cache entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *CacheStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
