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

// Notifier lists, marks and creates in-app notifications.
type Notifier interface {
	List(ctx context.Context, p security.Principal, unreadOnly bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, p security.Principal, id string) error
	Create(ctx context.Context, p security.Principal, in service.NotificationInput) (*domain.Notification, error)
}

// NotificationsHandler handles notification endpoints
type NotificationsHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewNotificationsHandler creates a new notifications handler
func NewNotificationsHandler(notifier Notifier, logger *slog.Logger) *NotificationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationsHandler{notifier: notifier, logger: logger}
}

// List handles GET /api/notifications?unread=true
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	ns, err := h.notifier.List(r.Context(), p, unread)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if ns == nil {
		ns = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.notifier.MarkRead(r.Context(), p, r.PathValue("id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Create handles POST /api/admin/notifications
func (h *NotificationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.NotificationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	n, err := h.notifier.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
