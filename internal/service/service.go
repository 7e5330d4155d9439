package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// Stores bundles the repositories the services read and write.
type Stores struct {
	Users         domain.UserRepository
	Seekers       domain.SeekerRepository
	Jobs          domain.JobRepository
	Applications  domain.ApplicationRepository
	Saved         domain.SavedApplicationRepository
	Companies     domain.CompanyRepository
	Packages      domain.PackageRepository
	Orders        domain.OrderRepository
	Notifications domain.NotificationRepository
}

// publisher emits post-commit events. A nil publisher drops them; a failed
// publish is logged and never reaches the caller.
type publisher struct {
	events domain.EventPublisher
	logger *slog.Logger
}

func (p publisher) publish(ctx context.Context, evs ...domain.Event) {
	if p.events == nil {
		return
	}
	for _, ev := range evs {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = time.Now().UTC()
		}
		if err := p.events.Publish(ctx, ev); err != nil {
			p.logger.Warn("failed to publish event",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func notificationEvents(ns []*domain.Notification) []domain.Event {
	out := make([]domain.Event, 0, len(ns))
	for _, n := range ns {
		out = append(out, domain.Event{Type: domain.EventNotificationCreated, Notification: n})
	}
	return out
}

func orDefaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func validation(msg string) error {
	return &domain.ValidationError{Msg: msg}
}

// parseTransitLines rejects ids missing from the line catalog.
func parseTransitLines(raw []string) (domain.TransitLineSet, error) {
	lines := make([]domain.TransitLine, 0, len(raw))
	for _, r := range raw {
		l := domain.TransitLine(r)
		if !l.Valid() {
			return nil, validation("unknown transit line " + r)
		}
		lines = append(lines, l)
	}
	return domain.NewEnumSet(lines...), nil
}
