package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/config"
	"github.com/tradewatt/designer/internal/service"
	"github.com/tradewatt/designer/internal/store"
)

func designRequest(powerW float64) api.DesignRequest {
	return api.DesignRequest{
		Circuits: []api.CircuitInput{
			{LoadType: "Shower", PowerW: powerW, LengthM: 17, VoltageV: 230, Phases: "single"},
		},
		Supply: api.SupplySpec{VoltageV: 230, Phases: "single", Ze: 0.34, Earthing: "TN-C-S"},
	}
}

var _ = Describe("design service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		svc    *service.DesignService
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:design_service_test?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		svc = service.NewDesignService(s, 7*24*time.Hour, nil)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM design_cache_entries;")
		gormdb.Exec("DELETE FROM design_jobs;")
	})

	Context("miss", func() {
		It("returns a pending job when nothing is cached", func() {
			resp, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())

			Expect(resp.Cached).To(BeFalse())
			Expect(resp.Design).To(BeNil())
			Expect(resp.Job).ToNot(BeNil())
			Expect(resp.Job.Status).To(Equal(api.JobStatusPending))
		})

		It("reuses the active job of an equivalent request", func() {
			first, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())

			// 9500 W lands in the same quantization bucket as 9480 W
			second, err := svc.CreateDesign(context.TODO(), designRequest(9500))
			Expect(err).To(BeNil())

			Expect(second.Job.ID).To(Equal(first.Job.ID))
		})

		It("commits the queued job so readers outside the request see it", func() {
			resp, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())

			job, err := s.Job().Get(context.TODO(), resp.Job.ID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusPending)))
		})

		It("rejects a request with no circuits", func() {
			_, err := svc.CreateDesign(context.TODO(), api.DesignRequest{
				Supply: api.SupplySpec{VoltageV: 230, Phases: "single", Ze: 0.34, Earthing: "TN-C-S"},
			})

			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("queues distinct work for a different bucket", func() {
			first, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())

			second, err := svc.CreateDesign(context.TODO(), designRequest(8700))
			Expect(err).To(BeNil())

			Expect(second.Job.ID).ToNot(Equal(first.Job.ID))
		})
	})

	Context("hit", func() {
		It("returns the stored design for an equivalent request", func() {
			design := api.Design{TotalDemandA: 41.2, GeneratedAt: time.Now().UTC()}
			svc.StoreDesign(context.TODO(), designRequest(9480), design)

			resp, err := svc.CreateDesign(context.TODO(), designRequest(9500))
			Expect(err).To(BeNil())

			Expect(resp.Cached).To(BeTrue())
			Expect(resp.Job).To(BeNil())
			Expect(resp.Design.TotalDemandA).To(Equal(41.2))
		})

		It("records the hit without blocking the caller", func() {
			svc.StoreDesign(context.TODO(), designRequest(9480), api.Design{TotalDemandA: 41.2})

			_, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())

			hitCount := func() int64 {
				var count int64
				gormdb.Raw("SELECT hit_count FROM design_cache_entries;").Scan(&count)
				return count
			}
			Eventually(hitCount, 2*time.Second).Should(Equal(int64(2)))
		})

		It("treats an expired entry as a miss", func() {
			svc.StoreDesign(context.TODO(), designRequest(9480), api.Design{TotalDemandA: 41.2})

			stale := time.Now().Add(-8 * 24 * time.Hour)
			gormdb.Exec("UPDATE design_cache_entries SET created_at = ?;", stale)

			resp, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())

			Expect(resp.Cached).To(BeFalse())
			Expect(resp.Job).ToNot(BeNil())
		})
	})

	Context("store", func() {
		It("overwrites an existing entry for the same request", func() {
			svc.StoreDesign(context.TODO(), designRequest(9480), api.Design{TotalDemandA: 41.2})
			svc.StoreDesign(context.TODO(), designRequest(9500), api.Design{TotalDemandA: 43.5})

			var count int64
			gormdb.Raw("SELECT COUNT(*) FROM design_cache_entries;").Scan(&count)
			Expect(count).To(Equal(int64(1)))

			resp, err := svc.CreateDesign(context.TODO(), designRequest(9480))
			Expect(err).To(BeNil())
			Expect(resp.Design.TotalDemandA).To(Equal(43.5))
		})
	})
})
