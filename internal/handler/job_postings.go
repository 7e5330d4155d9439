package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

// JobManager writes and moderates job postings.
type JobManager interface {
	Create(ctx context.Context, p security.Principal, in service.JobInput) (*domain.Job, error)
	Update(ctx context.Context, p security.Principal, id string, in service.JobInput) (*domain.Job, error)
	Close(ctx context.Context, p security.Principal, id string) (*domain.Job, error)
	Delete(ctx context.Context, p security.Principal, id string) error
	ListManaged(ctx context.Context, p security.Principal, status string) ([]*domain.Job, error)
	Approve(ctx context.Context, p security.Principal, id string) (*domain.Job, error)
	Reject(ctx context.Context, p security.Principal, id string) (*domain.Job, error)
}

// JobPostingsHandler handles company job writes and admin moderation
type JobPostingsHandler struct {
	jobs   JobManager
	logger *slog.Logger
}

// NewJobPostingsHandler creates a new job postings handler
func NewJobPostingsHandler(jobs JobManager, logger *slog.Logger) *JobPostingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobPostingsHandler{jobs: jobs, logger: logger}
}

// Create handles POST /api/jobs
func (h *JobPostingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.JobInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	job, err := h.jobs.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// Update handles PUT /api/jobs/{id}
func (h *JobPostingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.JobInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	h.respond(w, r, func() (*domain.Job, error) {
		return h.jobs.Update(r.Context(), p, r.PathValue("id"), in)
	})
}

// Close handles POST /api/jobs/{id}/close
func (h *JobPostingsHandler) Close(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*domain.Job, error) {
		return h.jobs.Close(r.Context(), p, r.PathValue("id"))
	})
}

// Delete handles DELETE /api/jobs/{id}
func (h *JobPostingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Delete(r.Context(), p, r.PathValue("id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/company/jobs and GET /api/admin/jobs?status=PENDING
func (h *JobPostingsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	jobs, err := h.jobs.ListManaged(r.Context(), p, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Approve handles POST /api/admin/jobs/{id}/approve
func (h *JobPostingsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*domain.Job, error) {
		return h.jobs.Approve(r.Context(), p, r.PathValue("id"))
	})
}

// Reject handles POST /api/admin/jobs/{id}/reject
func (h *JobPostingsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*domain.Job, error) {
		return h.jobs.Reject(r.Context(), p, r.PathValue("id"))
	})
}

func (h *JobPostingsHandler) respond(w http.ResponseWriter, r *http.Request, call func() (*domain.Job, error)) {
	job, err := call()
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
