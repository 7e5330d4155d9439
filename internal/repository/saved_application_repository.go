package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

// PostgresSavedApplicationRepository implements domain.SavedApplicationRepository
// over the saved_applications and application_views tables.
type PostgresSavedApplicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSavedApplicationRepository creates a new saved application repository
func NewPostgresSavedApplicationRepository(db *sql.DB, logger *slog.Logger) *PostgresSavedApplicationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSavedApplicationRepository{db: db, logger: logger}
}

// Save marks an application as saved by the company. Saving twice is a no-op.
func (r *PostgresSavedApplicationRepository) Save(ctx context.Context, companyID, applicationID string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO saved_applications (company_id, application_id)
		VALUES ($1, $2)
		ON CONFLICT (company_id, application_id) DO NOTHING`,
		companyID, applicationID,
	)
	if isMissing(err) {
		return domain.NotFoundf("application %s", applicationID)
	}
	if err != nil {
		r.logger.Error("failed to save application",
			slog.String("company_id", companyID),
			slog.String("application_id", applicationID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to save application: %w", err)
	}
	return nil
}

// Remove deletes a saved mark
func (r *PostgresSavedApplicationRepository) Remove(ctx context.Context, companyID, applicationID string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM saved_applications WHERE company_id = $1 AND application_id = $2`, companyID, applicationID)
	if isMissing(err) {
		return domain.NotFoundf("saved application %s", applicationID)
	}
	if err != nil {
		return fmt.Errorf("failed to remove saved application: %w", err)
	}
	return requireAffected(res, "saved application %s", applicationID)
}

// IsSaved reports whether the company saved the application
func (r *PostgresSavedApplicationRepository) IsSaved(ctx context.Context, companyID, applicationID string) (bool, error) {
	var saved bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM saved_applications WHERE company_id = $1 AND application_id = $2)`,
		companyID, applicationID,
	).Scan(&saved)
	if err != nil {
		return false, fmt.Errorf("failed to check saved application: %w", err)
	}
	return saved, nil
}

// ListByCompany lists the company's saved applications, newest first
func (r *PostgresSavedApplicationRepository) ListByCompany(ctx context.Context, companyID string) ([]*domain.SavedApplication, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT company_id, application_id, created_at
		FROM saved_applications
		WHERE company_id = $1
		ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved applications: %w", err)
	}
	defer rows.Close()

	var out []*domain.SavedApplication
	for rows.Next() {
		s := &domain.SavedApplication{}
		if err := rows.Scan(&s.CompanyID, &s.ApplicationID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved application: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountByCompany counts the company's saved applications
func (r *PostgresSavedApplicationRepository) CountByCompany(ctx context.Context, companyID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM saved_applications WHERE company_id = $1`, companyID)
}

// RecordView stores at most one view per company, application and UTC day
func (r *PostgresSavedApplicationRepository) RecordView(ctx context.Context, companyID, applicationID string, at time.Time) error {
	day := at.UTC().Format(time.DateOnly)
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO application_views (company_id, application_id, view_date, viewed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id, application_id, view_date) DO NOTHING`,
		companyID, applicationID, day, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record application view: %w", err)
	}
	return nil
}

// CountViewsByCompany counts recorded application views of the company
func (r *PostgresSavedApplicationRepository) CountViewsByCompany(ctx context.Context, companyID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM application_views WHERE company_id = $1`, companyID)
}

func (r *PostgresSavedApplicationRepository) count(ctx context.Context, query, companyID string) (int, error) {
	var n int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, companyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}
