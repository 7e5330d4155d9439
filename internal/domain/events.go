package domain

import (
	"context"
	"time"
)

// EventType names a post-commit event.
type EventType string

const (
	EventApplicationCreated  EventType = "application.created"
	EventApplicationStatus   EventType = "application.status_changed"
	EventNotificationCreated EventType = "notification.created"
	EventOrderPaid           EventType = "order.paid"
)

// Event is emitted after a lifecycle or ledger change has been committed.
// Consumers are best-effort; losing an event never undoes the change.
type Event struct {
	Type          EventType         `json:"type"`
	ApplicationID string            `json:"applicationId,omitempty"`
	JobID         string            `json:"jobId,omitempty"`
	JobTitle      string            `json:"jobTitle,omitempty"`
	CompanyID     string            `json:"companyId,omitempty"`
	CompanyName   string            `json:"companyName,omitempty"`
	SeekerID      string            `json:"seekerId,omitempty"`
	LineUserID    string            `json:"lineUserId,omitempty"`
	OldStatus     ApplicationStatus `json:"oldStatus,omitempty"`
	NewStatus     ApplicationStatus `json:"newStatus,omitempty"`
	Message       string            `json:"message,omitempty"`
	OrderID       string            `json:"orderId,omitempty"`
	Notification  *Notification     `json:"notification,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// EventPublisher hands events to the out-of-process consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// TxManager runs fn in a single storage transaction carried by ctx. If fn
// returns an error nothing fn wrote is persisted.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
