package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
)

// NotificationService reads and writes in-app notifications.
type NotificationService struct {
	notifications domain.NotificationRepository
	perms         *security.AuthorizationService
	events        publisher
	logger        *slog.Logger
}

// NotificationInput is an admin authored notification.
type NotificationInput struct {
	UserID   string                  `json:"userId"`
	SeekerID string                  `json:"seekerId"`
	Title    string                  `json:"title"`
	Message  string                  `json:"message"`
	Type     domain.NotificationType `json:"type"`
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications domain.NotificationRepository, events domain.EventPublisher, logger *slog.Logger) *NotificationService {
	logger = orDefaultLogger(logger)
	return &NotificationService{
		notifications: notifications,
		perms:         security.NewAuthorizationService(logger),
		events:        publisher{events: events, logger: logger},
		logger:        logger,
	}
}

// RecipientOf is the notification address of a principal.
func RecipientOf(p security.Principal) domain.Recipient {
	return domain.Recipient{UserID: p.UserID, SeekerID: p.SeekerID}
}

// List returns the principal's newest notifications.
func (s *NotificationService) List(ctx context.Context, p security.Principal, unreadOnly bool) ([]*domain.Notification, error) {
	return s.notifications.ListFor(ctx, RecipientOf(p), unreadOnly, 50)
}

// MarkRead marks one notification read. Only its recipient or an admin may.
func (s *NotificationService) MarkRead(ctx context.Context, p security.Principal, id string) error {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && !RecipientOf(p).Matches(n) {
		return domain.Forbiddenf("notification %s", id)
	}
	return s.notifications.MarkRead(ctx, id)
}

// Create lets an admin address a notification to a user or a seeker.
func (s *NotificationService) Create(ctx context.Context, p security.Principal, in NotificationInput) (*domain.Notification, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermNotifyUsers); err != nil {
		return nil, err
	}
	if in.UserID == "" && in.SeekerID == "" {
		return nil, validation("userId or seekerId is required")
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, validation("title and message are required")
	}
	if in.Type == "" {
		in.Type = domain.NotifyAnnouncement
	}
	n := &domain.Notification{
		ID:       uuid.NewString(),
		UserID:   in.UserID,
		SeekerID: in.SeekerID,
		Title:    in.Title,
		Message:  in.Message,
		Type:     in.Type,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.events.publish(ctx, domain.Event{Type: domain.EventNotificationCreated, Notification: n})
	return n, nil
}
