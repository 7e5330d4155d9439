package domain

import (
	"context"
	"time"
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotifyNewApplication  NotificationType = "NEW_APPLICATION"
	NotifyElderlyNeedInfo NotificationType = "ELDERLY_NEEDS_INFO"
	NotifyStatusChanged   NotificationType = "APPLICATION_STATUS_CHANGED"
	NotifyPackageExpired  NotificationType = "PACKAGE_EXPIRED"
	NotifyAnnouncement    NotificationType = "ANNOUNCEMENT"
	NotifyJobModerated    NotificationType = "JOB_MODERATED"
)

// Notification is a persisted in-app message. It is addressed either to a
// user account or to a seeker; seekers reached only through the chat-bot
// have no user account.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId,omitempty"`
	SeekerID  string           `json:"seekerId,omitempty"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Recipient selects the notifications of one principal. A seeker with a user
// account sees both the notifications addressed to the account and those
// addressed to the seeker.
type Recipient struct {
	UserID   string
	SeekerID string
}

// Matches reports whether n is addressed to the recipient.
func (r Recipient) Matches(n *Notification) bool {
	return (r.UserID != "" && n.UserID == r.UserID) || (r.SeekerID != "" && n.SeekerID == r.SeekerID)
}

// NotificationRepository defines data access for notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListFor(ctx context.Context, r Recipient, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// MessagingTransport delivers text to a seeker's chat-bot identity. Push
// starts a conversation; Reply answers a webhook event by its reply token.
type MessagingTransport interface {
	Push(ctx context.Context, to string, texts ...string) error
	Reply(ctx context.Context, replyToken string, texts ...string) error
}
