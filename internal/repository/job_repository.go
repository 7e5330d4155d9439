package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

// PostgresJobRepository implements domain.JobRepository using PostgreSQL
type PostgresJobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresJobRepository creates a new job repository
func NewPostgresJobRepository(db *sql.DB, logger *slog.Logger) *PostgresJobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobRepository{db: db, logger: logger}
}

const jobColumns = `
	j.id, j.company_id, c.name, j.title, j.description, COALESCE(j.requirements, ''),
	j.location, COALESCE(j.salary, ''), j.salary_min, j.salary_max, j.job_type,
	j.transit_line_colors, j.for_elderly, j.status, j.expires_at, j.created_at`

const jobFrom = ` FROM jobs j JOIN companies c ON c.id = j.company_id`

// Create inserts a new job
func (r *PostgresJobRepository) Create(ctx context.Context, j *domain.Job) error {
	query := `
		INSERT INTO jobs (
			id, company_id, title, description, requirements, location, salary,
			salary_min, salary_max, job_type, transit_line_colors, for_elderly, status, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		j.ID,
		j.CompanyID,
		j.Title,
		j.Description,
		nullIfEmpty(j.Requirements),
		j.Location,
		nullIfEmpty(j.Salary),
		nullInt(j.SalaryMin),
		nullInt(j.SalaryMax),
		j.JobType,
		j.TransitLines,
		j.ForElderly,
		j.Status,
		j.ExpiresAt,
	).Scan(&j.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NotFoundf("company %s", j.CompanyID)
		}
		r.logger.Error("failed to create job",
			slog.String("company_id", j.CompanyID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Update rewrites the posting fields of a job. Status is changed through
// UpdateStatus only.
func (r *PostgresJobRepository) Update(ctx context.Context, j *domain.Job) error {
	query := `
		UPDATE jobs SET
			title = $2, description = $3, requirements = $4, location = $5, salary = $6,
			salary_min = $7, salary_max = $8, job_type = $9, transit_line_colors = $10,
			for_elderly = $11, expires_at = $12
		WHERE id = $1
	`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		j.ID,
		j.Title,
		j.Description,
		nullIfEmpty(j.Requirements),
		j.Location,
		nullIfEmpty(j.Salary),
		nullInt(j.SalaryMin),
		nullInt(j.SalaryMax),
		j.JobType,
		j.TransitLines,
		j.ForElderly,
		j.ExpiresAt,
	)
	if err != nil {
		if isMissing(err) {
			return domain.NotFoundf("job %s", j.ID)
		}
		r.logger.Error("failed to update job", slog.String("job_id", j.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update job: %w", err)
	}
	return requireAffected(res, "job %s", j.ID)
}

// UpdateStatus moves a job from one status to another
func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id string, from, to domain.JobStatus) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE jobs SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		if isMissing(err) {
			return domain.NotFoundf("job %s", id)
		}
		return fmt.Errorf("failed to update job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.InvalidStatef("job %s is not %s", id, from)
	}
	return nil
}

// Delete removes a job. A job that still has applications cannot be
// deleted.
func (r *PostgresJobRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		switch {
		case isMissing(err):
			return domain.NotFoundf("job %s", id)
		case isForeignKeyViolation(err):
			return domain.Conflictf("job %s has applications, close it instead", id)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return requireAffected(res, "job %s", id)
}

// List lists jobs of any status, newest first
func (r *PostgresJobRepository) List(ctx context.Context, f domain.ManagedJobFilter) ([]*domain.Job, error) {
	var (
		where []string
		args  []any
	)
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		where = append(where, fmt.Sprintf("j.company_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("j.status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + jobColumns + jobFrom + clause + fmt.Sprintf(` ORDER BY j.created_at DESC LIMIT %d`, limit)

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job := &domain.Job{}
		if err := scanJob(rows, job); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// GetByID retrieves a job by ID
func (r *PostgresJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	job := &domain.Job{}
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+jobColumns+jobFrom+` WHERE j.id = $1`, id)
	if err := scanJob(row, job); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("job %s", id)
		}
		r.logger.Error("failed to get job", slog.String("job_id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListActive lists ACTIVE jobs, newest first
func (r *PostgresJobRepository) ListActive(ctx context.Context, f domain.JobFilter) ([]*domain.Job, error) {
	where := []string{"j.status = 'ACTIVE'"}
	var args []any
	if !f.OnlyOpenAt.IsZero() {
		args = append(args, f.OnlyOpenAt)
		where = append(where, fmt.Sprintf("(j.expires_at IS NULL OR j.expires_at >= $%d)", len(args)))
	}
	if f.ForElderly {
		where = append(where, "j.for_elderly = true")
	}
	// A job without listed lines is reachable from any line.
	if f.TransitLine != "" {
		args = append(args, `%"`+string(f.TransitLine)+`"%`)
		where = append(where, fmt.Sprintf("(j.transit_line_colors IS NULL OR j.transit_line_colors LIKE $%d)", len(args)))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + jobColumns + jobFrom + ` WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY j.created_at DESC LIMIT %d`, limit)

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job := &domain.Job{}
		if err := scanJob(rows, job); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// LatestActiveByCompany returns the company's most recent ACTIVE job
func (r *PostgresJobRepository) LatestActiveByCompany(ctx context.Context, companyID string) (*domain.Job, error) {
	job := &domain.Job{}
	query := `SELECT ` + jobColumns + jobFrom + `
		WHERE j.company_id = $1 AND j.status = 'ACTIVE'
		ORDER BY j.created_at DESC
		LIMIT 1`
	if err := scanJob(database.Conn(ctx, r.db).QueryRowContext(ctx, query, companyID), job); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("active job for company %s", companyID)
		}
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}
	return job, nil
}

// CloseExpired moves ACTIVE jobs past their expiry to CLOSED
func (r *PostgresJobRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE jobs SET status = 'CLOSED' WHERE status = 'ACTIVE' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(row rowScanner, j *domain.Job) error {
	var salaryMin, salaryMax sql.NullInt64
	var expiresAt sql.NullTime
	err := row.Scan(
		&j.ID, &j.CompanyID, &j.CompanyName, &j.Title, &j.Description, &j.Requirements,
		&j.Location, &j.Salary, &salaryMin, &salaryMax, &j.JobType,
		&j.TransitLines, &j.ForElderly, &j.Status, &expiresAt, &j.CreatedAt,
	)
	if err != nil {
		return err
	}
	j.SalaryMin = intPtr(salaryMin)
	j.SalaryMax = intPtr(salaryMax)
	j.ExpiresAt = timePtr(expiresAt)
	return nil
}
