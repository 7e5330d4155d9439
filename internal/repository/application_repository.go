package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

// PostgresApplicationRepository implements domain.ApplicationRepository using PostgreSQL
type PostgresApplicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresApplicationRepository creates a new application repository
func NewPostgresApplicationRepository(db *sql.DB, logger *slog.Logger) *PostgresApplicationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresApplicationRepository{db: db, logger: logger}
}

const applicationColumns = `
	a.id, a.job_id, a.seeker_id, a.status, COALESCE(a.cover_letter, ''), a.needs_more_info,
	COALESCE(a.additional_skills, ''), COALESCE(a.preferred_locations, ''), COALESCE(a.admin_notes, ''),
	a.application_channel, a.created_at, a.updated_at, j.title, j.company_id, s.display_name`

const applicationFrom = `
	FROM applications a
	JOIN jobs j ON j.id = a.job_id
	JOIN job_seekers s ON s.id = a.seeker_id`

// Create inserts a new application. A second application for the same
// job and seeker fails with domain.ErrConflict.
func (r *PostgresApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (id, job_id, seeker_id, status, cover_letter, needs_more_info, application_channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		app.ID,
		app.JobID,
		app.SeekerID,
		app.Status,
		nullIfEmpty(app.CoverLetter),
		app.NeedsMoreInfo,
		app.Channel,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("seeker %s already applied to job %s", app.SeekerID, app.JobID)
		}
		r.logger.Error("failed to create application",
			slog.String("job_id", app.JobID),
			slog.String("seeker_id", app.SeekerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetByID retrieves an application by ID
func (r *PostgresApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	return r.getOne(ctx, `SELECT `+applicationColumns+applicationFrom+` WHERE a.id = $1`, id)
}

// GetForUpdate retrieves an application and locks its row until the
// surrounding transaction ends.
func (r *PostgresApplicationRepository) GetForUpdate(ctx context.Context, id string) (*domain.Application, error) {
	return r.getOne(ctx, `SELECT `+applicationColumns+applicationFrom+` WHERE a.id = $1 FOR UPDATE OF a`, id)
}

// GetByJobAndSeeker retrieves the application of a seeker for a job
func (r *PostgresApplicationRepository) GetByJobAndSeeker(ctx context.Context, jobID, seekerID string) (*domain.Application, error) {
	app := &domain.Application{}
	row := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+applicationColumns+applicationFrom+` WHERE a.job_id = $1 AND a.seeker_id = $2`, jobID, seekerID)
	if err := scanApplication(row, app); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("application for job %s", jobID)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (r *PostgresApplicationRepository) getOne(ctx context.Context, query, id string) (*domain.Application, error) {
	app := &domain.Application{}
	if err := scanApplication(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id), app); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("application %s", id)
		}
		r.logger.Error("failed to get application", slog.String("application_id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// UpdateStatus sets the application status
func (r *PostgresApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE applications SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if isMissing(err) {
		return domain.NotFoundf("application %s", id)
	}
	if err != nil {
		r.logger.Error("failed to update application status",
			slog.String("application_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update application status: %w", err)
	}
	return requireAffected(res, "application %s", id)
}

// UpdateAdditionalInfo stores admin supplied details and the needs-more-info flag
func (r *PostgresApplicationRepository) UpdateAdditionalInfo(ctx context.Context, id string, info domain.AdditionalInfo, needsMoreInfo bool) error {
	query := `
		UPDATE applications
		SET additional_skills = $1, preferred_locations = $2, admin_notes = $3,
		    needs_more_info = $4, updated_at = now()
		WHERE id = $5
	`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		nullIfEmpty(info.AdditionalSkills),
		nullIfEmpty(info.PreferredLocations),
		nullIfEmpty(info.AdminNotes),
		needsMoreInfo,
		id,
	)
	if isMissing(err) {
		return domain.NotFoundf("application %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to update additional info: %w", err)
	}
	return requireAffected(res, "application %s", id)
}

// List returns applications matching the filter, newest first
func (r *PostgresApplicationRepository) List(ctx context.Context, f domain.ApplicationFilter) ([]*domain.Application, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.JobID != "" {
		add("a.job_id = $%d", f.JobID)
	}
	if f.SeekerID != "" {
		add("a.seeker_id = $%d", f.SeekerID)
	}
	if f.CompanyID != "" {
		add("j.company_id = $%d", f.CompanyID)
	}
	if f.Status != "" {
		add("a.status = $%d", f.Status)
	}
	if f.NeedsMoreInfo != nil {
		add("a.needs_more_info = $%d", *f.NeedsMoreInfo)
	}

	query := `SELECT ` + applicationColumns + applicationFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY a.created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if isMissing(err) {
		// a malformed id filter matches nothing
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to list applications", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Application
	for rows.Next() {
		app := &domain.Application{}
		if err := scanApplication(rows, app); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// CountByCompany counts applications on the company's jobs, optionally
// restricted to the given statuses.
func (r *PostgresApplicationRepository) CountByCompany(ctx context.Context, companyID string, statuses ...domain.ApplicationStatus) (int, error) {
	query := `SELECT COUNT(*) FROM applications a JOIN jobs j ON j.id = a.job_id WHERE j.company_id = $1`
	args := []any{companyID}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		query += ` AND a.status = ANY($2)`
		args = append(args, pq.Array(names))
	}
	var n int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return n, nil
}

func scanApplication(row rowScanner, a *domain.Application) error {
	return row.Scan(
		&a.ID, &a.JobID, &a.SeekerID, &a.Status, &a.CoverLetter, &a.NeedsMoreInfo,
		&a.AdditionalSkills, &a.PreferredLocations, &a.AdminNotes,
		&a.Channel, &a.CreatedAt, &a.UpdatedAt, &a.JobTitle, &a.CompanyID, &a.SeekerName,
	)
}
