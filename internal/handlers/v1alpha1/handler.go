// Package v1alpha1 exposes the designer REST API.
package v1alpha1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/handlers/validator"
	"github.com/tradewatt/designer/internal/service"
	"github.com/tradewatt/designer/pkg/requestid"
)

type Handler struct {
	designSvc *service.DesignService
	jobSvc    *service.JobService
	validator *validator.Validator
}

func NewHandler(designSvc *service.DesignService, jobSvc *service.JobService) *Handler {
	v := validator.NewValidator()
	v.Register(validator.NewDesignValidationRules()...)

	return &Handler{
		designSvc: designSvc,
		jobSvc:    jobSvc,
		validator: v,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/designs", h.CreateDesign)
	router.Get("/api/v1/jobs", h.ListJobs)
	router.Get("/api/v1/jobs/{id}", h.GetJob)
	router.Post("/api/v1/jobs/{id}/cancel", h.CancelJob)
	router.Post("/api/v1/jobs/{id}/fail", h.FailJob)
}

// CreateDesign answers 200 with the design on a cache hit and 202 with a job
// reference on a miss.
func (h *Handler) CreateDesign(w http.ResponseWriter, r *http.Request) {
	var req api.DesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.designSvc.CreateDesign(r.Context(), req)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if resp.Cached {
		status = http.StatusOK
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// ListJobs answers the job queue ordered by creation time, optionally
// filtered by status (?status=pending) and capped (?limit=10).
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !api.JobStatus(status).IsValid() {
		renderError(w, r, http.StatusBadRequest, "unknown job status "+status)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			renderError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	jobs, err := h.jobSvc.ListJobs(r.Context(), status, limit)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	out := make([]api.Job, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobs[i].ToApiResource())
	}
	render.JSON(w, r, out)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, job.ToApiResource())
}

// CancelJob cancels the job itself, as opposed to a client merely stopping
// its polling. Terminal jobs answer 409.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSvc.CancelJob(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, job.ToApiResource())
}

// FailJob force-fails a stalled job. Pollers call it when a processing job
// shows no activity past the liveness threshold; it is idempotent against
// workers racing to a terminal state.
func (h *Handler) FailJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if body.Message == "" {
		body.Message = service.StallTimeoutMessage
	}

	job, err := h.jobSvc.ForceFailJob(r.Context(), id, body.Message)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, job.ToApiResource())
}

func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *service.ErrResourceNotFound
		finished *service.ErrJobAlreadyFinished
		invalid  *service.ErrInvalidRequest
	)
	switch {
	case errors.As(err, &notFound):
		renderError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &finished):
		renderError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &invalid):
		renderError(w, r, http.StatusBadRequest, err.Error())
	default:
		renderError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := api.Error{
		Message:   message,
		RequestId: requestid.FromContextPtr(r.Context()),
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}
