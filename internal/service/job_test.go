package service_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/config"
	"github.com/tradewatt/designer/internal/service"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/store/model"
)

var _ = Describe("job service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		svc    *service.JobService
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:job_service_test?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		svc = service.NewJobService(s, nil)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM design_jobs;")
	})

	createJob := func() uuid.UUID {
		id := uuid.New()
		_, err := s.Job().Create(context.TODO(), model.NewJob(id, designRequest(9480), "hash-1"))
		Expect(err).To(BeNil())
		return id
	}

	Context("get", func() {
		It("returns a typed error for an unknown job", func() {
			_, err := svc.GetJob(context.TODO(), uuid.New())
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("list", func() {
		It("filters by status and honors the limit", func() {
			first := createJob()
			createJob()
			createJob()

			// oldest pending job moves to processing
			claimed, err := s.Job().ClaimPending(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed.ID).To(Equal(first))

			pending, err := svc.ListJobs(context.TODO(), string(api.JobStatusPending), 0)
			Expect(err).To(BeNil())
			Expect(pending).To(HaveLen(2))
			for _, job := range pending {
				Expect(job.Status).To(Equal(string(api.JobStatusPending)))
			}

			processing, err := svc.ListJobs(context.TODO(), string(api.JobStatusProcessing), 0)
			Expect(err).To(BeNil())
			Expect(processing).To(HaveLen(1))
			Expect(processing[0].ID).To(Equal(first))

			capped, err := svc.ListJobs(context.TODO(), "", 2)
			Expect(err).To(BeNil())
			Expect(capped).To(HaveLen(2))
		})

		It("returns everything without a filter", func() {
			createJob()
			createJob()

			jobs, err := svc.ListJobs(context.TODO(), "", 0)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
		})
	})

	Context("cancel", func() {
		It("cancels an active job", func() {
			id := createJob()

			job, err := svc.CancelJob(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusCancelled)))
		})

		It("rejects cancelling a terminal job", func() {
			id := createJob()

			_, err := svc.CancelJob(context.TODO(), id)
			Expect(err).To(BeNil())

			_, err = svc.CancelJob(context.TODO(), id)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrJobAlreadyFinished{}))
		})
	})

	Context("force fail", func() {
		It("fails a stalled job with the stall reason", func() {
			id := createJob()
			_, err := s.Job().ClaimPending(context.TODO())
			Expect(err).To(BeNil())

			job, err := svc.ForceFailJob(context.TODO(), id, service.StallTimeoutMessage)
			Expect(err).To(BeNil())

			Expect(job.Status).To(Equal(string(api.JobStatusFailed)))
			Expect(*job.ErrorMessage).To(Equal(service.StallTimeoutMessage))
			Expect(*job.FailureReason).To(Equal(string(api.FailureReasonStallTimeout)))
		})

		It("is a no-op on a job that already finished", func() {
			id := createJob()
			_, err := s.Job().ClaimPending(context.TODO())
			Expect(err).To(BeNil())
			Expect(s.Job().Complete(context.TODO(), id, model.MakeJSONField(api.Design{TotalDemandA: 41.2}))).To(BeNil())

			job, err := svc.ForceFailJob(context.TODO(), id, service.StallTimeoutMessage)
			Expect(err).To(BeNil())

			Expect(job.Status).To(Equal(string(api.JobStatusComplete)))
			Expect(job.ErrorMessage).To(BeNil())
			Expect(job.Result.Data.TotalDemandA).To(Equal(41.2))
		})
	})
})
