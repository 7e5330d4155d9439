package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

// ProfileManager reads and edits the caller's seeker profile.
type ProfileManager interface {
	Profile(ctx context.Context, p security.Principal) (*service.SeekerProfile, error)
	UpdateProfile(ctx context.Context, p security.Principal, in service.ProfileInput) (*service.SeekerProfile, error)
	IssueLinkCode(ctx context.Context, p security.Principal) (*service.LinkCode, error)
}

// SeekersHandler handles the seeker's own profile endpoints
type SeekersHandler struct {
	profiles ProfileManager
	logger   *slog.Logger
}

// NewSeekersHandler creates a new seekers handler
func NewSeekersHandler(profiles ProfileManager, logger *slog.Logger) *SeekersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeekersHandler{profiles: profiles, logger: logger}
}

// Me handles GET /api/seekers/me
func (h *SeekersHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.Profile(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update handles PUT /api/seekers/me
func (h *SeekersHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	profile, err := h.profiles.UpdateProfile(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// LinkCode handles POST /api/seekers/me/line-link
func (h *SeekersHandler) LinkCode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	code, err := h.profiles.IssueLinkCode(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}
