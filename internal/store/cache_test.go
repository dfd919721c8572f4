package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/cache"
	"github.com/tradewatt/designer/internal/config"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/store/model"
)

const cacheTTL = 7 * 24 * time.Hour

func testKey(power float64) cache.CanonicalKey {
	return cache.Normalize(api.DesignRequest{
		Circuits: []api.CircuitInput{
			{LoadType: "Shower", PowerW: power, LengthM: 17, VoltageV: 230, Phases: "single"},
		},
		Supply: api.SupplySpec{VoltageV: 230, Phases: "single", Ze: 0.34, Earthing: "TN-C-S"},
	})
}

func testDesign() api.Design {
	return api.Design{
		Circuits: []api.CircuitDesign{
			{LoadType: "shower", DeviceRatingA: 45, CableCSAmm2: 10, Compliant: true},
		},
		TotalDemandA: 41.2,
		GeneratedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

var _ = Describe("cache store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:cache_store_test?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db

		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM design_cache_entries;")
	})

	Context("upsert and get", func() {
		It("returns the stored payload for the same canonical key", func() {
			key := testKey(9480)
			entry := model.NewCacheEntry(key, testDesign(), time.Now())

			_, err := s.Cache().Upsert(context.TODO(), entry)
			Expect(err).To(BeNil())

			got, err := s.Cache().Get(context.TODO(), cache.Hash(key), cacheTTL)
			Expect(err).To(BeNil())
			Expect(got.HitCount).To(Equal(int64(1)))
			Expect(got.Design.Data.TotalDemandA).To(Equal(41.2))
		})

		It("hits the same entry for a request within the same buckets", func() {
			entry := model.NewCacheEntry(testKey(9480), testDesign(), time.Now())
			_, err := s.Cache().Upsert(context.TODO(), entry)
			Expect(err).To(BeNil())

			got, err := s.Cache().Get(context.TODO(), cache.Hash(testKey(9500)), cacheTTL)
			Expect(err).To(BeNil())
			Expect(got.CacheHash).To(Equal(entry.CacheHash))
		})

		It("overwrites on conflicting hash -- last writer wins", func() {
			key := testKey(9480)
			first := model.NewCacheEntry(key, testDesign(), time.Now())
			_, err := s.Cache().Upsert(context.TODO(), first)
			Expect(err).To(BeNil())

			second := testDesign()
			second.TotalDemandA = 55
			_, err = s.Cache().Upsert(context.TODO(), model.NewCacheEntry(key, second, time.Now()))
			Expect(err).To(BeNil())

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM design_cache_entries;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))

			got, err := s.Cache().Get(context.TODO(), cache.Hash(key), cacheTTL)
			Expect(err).To(BeNil())
			Expect(got.Design.Data.TotalDemandA).To(Equal(float64(55)))
		})

		It("misses on an unknown hash", func() {
			_, err := s.Cache().Get(context.TODO(), "deadbeef", cacheTTL)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("misses on an expired entry even though the row still exists", func() {
			key := testKey(9480)
			entry := model.NewCacheEntry(key, testDesign(), time.Now())
			_, err := s.Cache().Upsert(context.TODO(), entry)
			Expect(err).To(BeNil())

			stale := time.Now().Add(-cacheTTL - time.Hour)
			Expect(gormdb.Exec("UPDATE design_cache_entries SET created_at = ?", stale).Error).To(BeNil())

			_, err = s.Cache().Get(context.TODO(), cache.Hash(key), cacheTTL)
			Expect(err).To(MatchError(store.ErrRecordNotFound))

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM design_cache_entries;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})
	})

	Context("hit bookkeeping", func() {
		It("increments hit_count and updates last_hit_at", func() {
			key := testKey(9480)
			entry := model.NewCacheEntry(key, testDesign(), time.Now().Add(-time.Hour))
			_, err := s.Cache().Upsert(context.TODO(), entry)
			Expect(err).To(BeNil())

			Expect(s.Cache().RecordHit(context.TODO(), cache.Hash(key))).To(BeNil())
			Expect(s.Cache().RecordHit(context.TODO(), cache.Hash(key))).To(BeNil())

			got, err := s.Cache().Get(context.TODO(), cache.Hash(key), cacheTTL)
			Expect(err).To(BeNil())
			Expect(got.HitCount).To(Equal(int64(3)))
			Expect(got.LastHitAt.After(entry.CreatedAt)).To(BeTrue())
		})

		It("reports a missing entry", func() {
			err := s.Cache().RecordHit(context.TODO(), "deadbeef")
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("purge", func() {
		It("removes only rows outside the TTL window", func() {
			fresh := model.NewCacheEntry(testKey(9480), testDesign(), time.Now())
			_, err := s.Cache().Upsert(context.TODO(), fresh)
			Expect(err).To(BeNil())

			old := model.NewCacheEntry(testKey(3000), testDesign(), time.Now())
			_, err = s.Cache().Upsert(context.TODO(), old)
			Expect(err).To(BeNil())

			stale := time.Now().Add(-cacheTTL - time.Hour)
			Expect(gormdb.Exec("UPDATE design_cache_entries SET created_at = ? WHERE cache_hash = ?", stale, old.CacheHash).Error).To(BeNil())

			purged, err := s.Cache().PurgeExpired(context.TODO(), cacheTTL)
			Expect(err).To(BeNil())
			Expect(purged).To(Equal(int64(1)))

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM design_cache_entries;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})
	})
})
