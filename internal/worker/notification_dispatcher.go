package worker

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/featureflags"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
)

// Broadcaster fans a new notification out to live connections.
type Broadcaster interface {
	Broadcast(n *domain.Notification)
}

// NotificationDispatcher consumes post-commit events: status changes are
// pushed through the chat-bot channel and new in-app notifications are
// streamed to connected clients. Every failure stops here.
type NotificationDispatcher struct {
	transport domain.MessagingTransport
	hub       Broadcaster
	pushOn    func() bool
	logger    *slog.Logger
}

// NewNotificationDispatcher creates a new dispatcher. hub may be nil.
func NewNotificationDispatcher(transport domain.MessagingTransport, hub Broadcaster, logger *slog.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationDispatcher{
		transport: transport,
		hub:       hub,
		pushOn:    func() bool { return featureflags.Enabled(featureflags.LinePush) },
		logger:    logger,
	}
}

// Fanout handles the events every replica receives: new in-app
// notifications go to the streams connected to this replica.
func (d *NotificationDispatcher) Fanout(_ context.Context, ev domain.Event) {
	if ev.Type == domain.EventNotificationCreated && d.hub != nil && ev.Notification != nil {
		d.hub.Broadcast(ev.Notification)
	}
}

// Deliver handles the events one replica receives: status changes are
// pushed through the chat-bot channel.
func (d *NotificationDispatcher) Deliver(ctx context.Context, ev domain.Event) {
	if ev.Type == domain.EventApplicationStatus {
		d.pushStatus(ctx, ev)
	}
}

func (d *NotificationDispatcher) pushStatus(ctx context.Context, ev domain.Event) {
	logger := d.logger.With(
		slog.String("application_id", ev.ApplicationID),
		slog.String("seeker_id", ev.SeekerID),
	)
	switch {
	case ev.LineUserID == "":
		metrics.ObserveDispatch("no_identity")
		return
	case !d.pushOn():
		metrics.ObserveDispatch("disabled")
		return
	case d.transport == nil:
		metrics.ObserveDispatch("no_transport")
		return
	}

	if err := d.transport.Push(ctx, ev.LineUserID, ev.Message); err != nil {
		logger.Warn("status push failed", slog.String("error", err.Error()))
		metrics.ObserveDispatch("error")
		return
	}
	logger.Info("status push sent", slog.String("status", string(ev.NewStatus)))
	metrics.ObserveDispatch("sent")
}
