package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

// PostgresNotificationRepository implements domain.NotificationRepository using PostgreSQL
type PostgresNotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresNotificationRepository creates a new notification repository
func NewPostgresNotificationRepository(db *sql.DB, logger *slog.Logger) *PostgresNotificationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationRepository{db: db, logger: logger}
}

const notificationColumns = `id, COALESCE(user_id::text, ''), COALESCE(seeker_id::text, ''), title, message, type, is_read, created_at`

// Create inserts a notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, seeker_id, title, message, type, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		n.ID, nullIfEmpty(n.UserID), nullIfEmpty(n.SeekerID), n.Title, n.Message, n.Type, n.IsRead,
	).Scan(&n.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create notification",
			slog.String("user_id", n.UserID),
			slog.String("seeker_id", n.SeekerID),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by ID
func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	n := &domain.Notification{}
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err := scanNotification(row, n); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("notification %s", id)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListFor lists the recipient's notifications, newest first
func (r *PostgresNotificationRepository) ListFor(ctx context.Context, rcpt domain.Recipient, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE (user_id = NULLIF($1, '')::uuid OR seeker_id = NULLIF($2, '')::uuid)`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $3`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, rcpt.UserID, rcpt.SeekerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := scanNotification(rows, n); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if isMissing(err) {
		return domain.NotFoundf("notification %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return requireAffected(res, "notification %s", id)
}

func scanNotification(row rowScanner, n *domain.Notification) error {
	return row.Scan(&n.ID, &n.UserID, &n.SeekerID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
}
