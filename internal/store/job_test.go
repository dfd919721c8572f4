package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/config"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/store/model"
)

func testRequest() api.DesignRequest {
	return api.DesignRequest{
		Circuits: []api.CircuitInput{
			{LoadType: "Shower", PowerW: 9480, LengthM: 17, VoltageV: 230, Phases: "single"},
		},
		Supply: api.SupplySpec{VoltageV: 230, Phases: "single", Ze: 0.34, Earthing: "TN-C-S"},
	}
}

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:job_store_test?mode=memory&cache=shared"

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
		gormdb.Exec("DELETE FROM design_jobs;")
	})

	Context("create and get", func() {
		It("creates a pending job", func() {
			id := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.NewJob(id, testRequest(), "hash-1"))
			Expect(err).To(BeNil())

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusPending)))
			Expect(job.Progress).To(Equal(0))
			Expect(job.StartedAt).To(BeNil())
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("claim", func() {
		It("moves the oldest pending job to processing", func() {
			id := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.NewJob(id, testRequest(), "hash-1"))
			Expect(err).To(BeNil())

			claimed, err := s.Job().ClaimPending(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed.ID).To(Equal(id))
			Expect(claimed.Status).To(Equal(string(api.JobStatusProcessing)))
			Expect(claimed.StartedAt).ToNot(BeNil())
		})

		It("reports not found when nothing is pending", func() {
			_, err := s.Job().ClaimPending(context.TODO())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("transitions", func() {
		var id uuid.UUID

		BeforeEach(func() {
			id = uuid.New()
			_, err := s.Job().Create(context.TODO(), model.NewJob(id, testRequest(), "hash-1"))
			Expect(err).To(BeNil())
			_, err = s.Job().ClaimPending(context.TODO())
			Expect(err).To(BeNil())
		})

		It("records progress and current step", func() {
			Expect(s.Job().UpdateProgress(context.TODO(), id, 40, "sizing cables")).To(BeNil())

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Progress).To(Equal(40))
			Expect(*job.CurrentStep).To(Equal("sizing cables"))
		})

		It("completes with a result payload", func() {
			design := api.Design{TotalDemandA: 41.2}
			Expect(s.Job().Complete(context.TODO(), id, model.MakeJSONField(design))).To(BeNil())

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusComplete)))
			Expect(job.Progress).To(Equal(100))
			Expect(job.Result.Data.TotalDemandA).To(Equal(41.2))
			Expect(job.CompletedAt).ToNot(BeNil())
		})

		It("fails with a message and a reason", func() {
			Expect(s.Job().Fail(context.TODO(), id, "boom", api.FailureReasonWorkerError)).To(BeNil())

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusFailed)))
			Expect(*job.ErrorMessage).To(Equal("boom"))
			Expect(*job.FailureReason).To(Equal(string(api.FailureReasonWorkerError)))
		})

		It("keeps terminal states absorbing", func() {
			Expect(s.Job().Complete(context.TODO(), id, model.MakeJSONField(api.Design{}))).To(BeNil())

			err := s.Job().Fail(context.TODO(), id, "too late", api.FailureReasonStallTimeout)
			Expect(err).To(MatchError(store.ErrNoRowsUpdated))

			err = s.Job().Cancel(context.TODO(), id)
			Expect(err).To(MatchError(store.ErrNoRowsUpdated))

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusComplete)))
		})

		It("ignores progress updates once the job left processing", func() {
			Expect(s.Job().Cancel(context.TODO(), id)).To(BeNil())

			err := s.Job().UpdateProgress(context.TODO(), id, 80, "late step")
			Expect(err).To(MatchError(store.ErrNoRowsUpdated))
		})
	})

	Context("counts", func() {
		It("groups jobs by status", func() {
			_, err := s.Job().Create(context.TODO(), model.NewJob(uuid.New(), testRequest(), "h1"))
			Expect(err).To(BeNil())
			_, err = s.Job().Create(context.TODO(), model.NewJob(uuid.New(), testRequest(), "h2"))
			Expect(err).To(BeNil())
			_, err = s.Job().ClaimPending(context.TODO())
			Expect(err).To(BeNil())

			counts, err := s.Job().CountByStatus(context.TODO())
			Expect(err).To(BeNil())
			Expect(counts[string(api.JobStatusPending)]).To(Equal(1))
			Expect(counts[string(api.JobStatusProcessing)]).To(Equal(1))
		})
	})
})
