package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/security"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, action, resource, resourceID, status, details string) {
	p, _ := security.PrincipalFrom(ctx)
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", p.UserID),
		slog.String("role", string(p.Role)),
		slog.String("company_id", p.CompanyID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogTransition(ctx context.Context, applicationID, from, to string) {
	al.LogAction(ctx, "transition", "application", applicationID, "ok", from+" -> "+to)
}

func (al *Logger) LogPayment(ctx context.Context, orderID string, credits int) {
	al.LogAction(ctx, "pay", "order", orderID, "ok", "credits granted: "+strconv.Itoa(credits))
}

func (al *Logger) LogDenied(ctx context.Context, resource, resourceID, reason string) {
	al.LogAction(ctx, "access_denied", resource, resourceID, "denied", reason)
}
