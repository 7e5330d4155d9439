package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

// Matcher serves job reads and job/seeker matching.
type Matcher interface {
	ListJobs(ctx context.Context, q service.JobQuery) ([]*domain.Job, error)
	GetJob(ctx context.Context, p security.Principal, id string) (*domain.Job, error)
	MatchJob(ctx context.Context, p security.Principal, jobID, seekerID string) (*service.JobMatch, error)
	SearchSeekers(ctx context.Context, p security.Principal, q service.SeekerQuery) (*service.SeekerSearchResult, error)
}

// JobsHandler handles job browsing, matching and the company seeker search
type JobsHandler struct {
	matcher Matcher
	logger  *slog.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(matcher Matcher, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{matcher: matcher, logger: logger}
}

// List handles GET /api/jobs?forElderly=true&transitLine=BLUE
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	elderly, _ := strconv.ParseBool(q.Get("forElderly"))
	jobs, err := h.matcher.ListJobs(r.Context(), service.JobQuery{
		ForElderly:  elderly,
		TransitLine: q.Get("transitLine"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get handles GET /api/jobs/{id}. Anonymous callers only see active jobs.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := security.PrincipalFrom(r.Context())
	job, err := h.matcher.GetJob(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Match handles GET /api/jobs/{id}/match. Seekers match themselves; company
// and admin callers name the seeker with ?seekerId=.
func (h *JobsHandler) Match(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	seekerID := r.URL.Query().Get("seekerId")
	if seekerID == "" && p.Role == domain.RoleSeeker {
		seekerID = p.SeekerID
	}
	m, err := h.matcher.MatchJob(r.Context(), p, r.PathValue("id"), seekerID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// SearchSeekers handles GET /api/seekers
func (h *JobsHandler) SearchSeekers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.matcher.SearchSeekers(r.Context(), p, service.SeekerQuery{
		JobID:       q.Get("jobId"),
		Area:        q.Get("area"),
		TransitLine: q.Get("transitLine"),
		Category:    q.Get("category"),
		Sort:        q.Get("sort"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TransitLines handles GET /api/transit-lines
func (h *JobsHandler) TransitLines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.TransitLines)
}
