package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Cache() Cache
	Job() Job
	InitialMigration() error
	Close() error
}

type DataStore struct {
	cache Cache
	job   Job
	db    *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		cache: NewCacheStore(db),
		job:   NewJobStore(db),
		db:    db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Cache() Cache {
	return s.cache
}

func (s *DataStore) Job() Job {
	return s.job
}

// InitialMigration creates the schema through gorm. Postgres deployments run
// the goose migrations instead; this path covers sqlite and tests.
func (s *DataStore) InitialMigration() error {
	if err := s.cache.InitialMigration(); err != nil {
		return err
	}
	return s.job.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
