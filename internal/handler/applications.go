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

// ApplicationManager is the application lifecycle as seen by HTTP callers.
type ApplicationManager interface {
	Apply(ctx context.Context, p security.Principal, in service.ApplyInput) (*domain.Application, error)
	Transition(ctx context.Context, p security.Principal, id, status string) (*domain.Application, error)
	Withdraw(ctx context.Context, p security.Principal, id string) (*domain.Application, error)
	SupplyAdditionalInfo(ctx context.Context, p security.Principal, id string, info domain.AdditionalInfo) (*domain.Application, error)
	Get(ctx context.Context, p security.Principal, id string) (*service.ApplicationView, error)
	List(ctx context.Context, p security.Principal, f domain.ApplicationFilter) ([]*domain.Application, error)
	Save(ctx context.Context, p security.Principal, applicationID string) error
	Unsave(ctx context.Context, p security.Principal, applicationID string) error
	ListSaved(ctx context.Context, p security.Principal) ([]*domain.SavedApplication, error)
	Stats(ctx context.Context, p security.Principal, companyID string) (*service.CompanyStats, error)
}

// ApplicationsHandler handles application endpoints
type ApplicationsHandler struct {
	apps   ApplicationManager
	logger *slog.Logger
}

// NewApplicationsHandler creates a new applications handler
func NewApplicationsHandler(apps ApplicationManager, logger *slog.Logger) *ApplicationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationsHandler{apps: apps, logger: logger}
}

// StatusRequest is the body of a status change.
type StatusRequest struct {
	Status string `json:"status"`
}

// AdditionalInfoRequest is what an admin collected from a seeker.
type AdditionalInfoRequest struct {
	AdditionalSkills   string `json:"additionalSkills"`
	PreferredLocations string `json:"preferredLocations"`
	AdminNotes         string `json:"adminNotes"`
	NeedsMoreInfo      *bool  `json:"needsMoreInfo"`
}

// SaveRequest names the application a company saves or unsaves.
type SaveRequest struct {
	ApplicationID string `json:"applicationId"`
}

// List handles GET /api/applications?jobId=&status=&needsMoreInfo=&limit=
func (h *ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := domain.ApplicationFilter{JobID: q.Get("jobId")}
	if s := q.Get("status"); s != "" {
		status, err := domain.ParseApplicationStatus(s)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		f.Status = status
	}
	if p.IsAdmin() {
		f.SeekerID = q.Get("seekerId")
		f.CompanyID = q.Get("companyId")
	}
	if v := q.Get("needsMoreInfo"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "needsMoreInfo must be a boolean"})
			return
		}
		f.NeedsMoreInfo = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}

	apps, err := h.apps.List(r.Context(), p, f)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if apps == nil {
		apps = []*domain.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// Create handles POST /api/applications (a seeker applying for itself)
func (h *ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, domain.ChannelSelfApplied)
}

// HRSave handles POST /api/admin/applications (an admin applying on a
// seeker's behalf)
func (h *ApplicationsHandler) HRSave(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, domain.ChannelHRSaved)
}

func (h *ApplicationsHandler) apply(w http.ResponseWriter, r *http.Request, channel domain.ApplicationChannel) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.ApplyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	in.Channel = channel

	app, err := h.apps.Apply(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// Get handles GET /api/applications/{id}
func (h *ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	view, err := h.apps.Get(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateStatus handles PUT /api/applications/{id}/status
func (h *ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "status is required"})
		return
	}

	app, err := h.apps.Transition(r.Context(), p, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Withdraw handles POST /api/applications/{id}/withdraw
func (h *ApplicationsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	app, err := h.apps.Withdraw(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// AdditionalInfo handles PUT /api/applications/{id}/additional-info
func (h *ApplicationsHandler) AdditionalInfo(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req AdditionalInfoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	app, err := h.apps.SupplyAdditionalInfo(r.Context(), p, r.PathValue("id"), domain.AdditionalInfo{
		AdditionalSkills:   req.AdditionalSkills,
		PreferredLocations: req.PreferredLocations,
		AdminNotes:         req.AdminNotes,
		NeedsMoreInfo:      req.NeedsMoreInfo,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// ListSaved handles GET /api/company/saved-applications
func (h *ApplicationsHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	saved, err := h.apps.ListSaved(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if saved == nil {
		saved = []*domain.SavedApplication{}
	}
	writeJSON(w, http.StatusOK, saved)
}

// Save handles POST /api/company/saved-applications
func (h *ApplicationsHandler) Save(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req SaveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ApplicationID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "applicationId is required"})
		return
	}
	if err := h.apps.Save(r.Context(), p, req.ApplicationID); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// Unsave handles DELETE /api/company/saved-applications?applicationId=
func (h *ApplicationsHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("applicationId")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "applicationId is required"})
		return
	}
	if err := h.apps.Unsave(r.Context(), p, id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": false})
}

// Stats handles GET /api/company/stats
func (h *ApplicationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	st, err := h.apps.Stats(r.Context(), p, r.URL.Query().Get("companyId"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
