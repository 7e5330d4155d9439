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

// PostgresSeekerRepository implements domain.SeekerRepository using PostgreSQL
type PostgresSeekerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSeekerRepository creates a new seeker repository
func NewPostgresSeekerRepository(db *sql.DB, logger *slog.Logger) *PostgresSeekerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSeekerRepository{db: db, logger: logger}
}

const seekerColumns = `
	id, COALESCE(user_id::text, ''), COALESCE(line_user_id, ''), display_name,
	COALESCE(picture_url, ''), COALESCE(phone, ''), COALESCE(email, ''), age,
	COALESCE(education, ''), COALESCE(experience, ''), COALESCE(skills, ''),
	COALESCE(resume_url, ''), COALESCE(preferred_area, ''),
	transit_line_colors, preferred_job_types,
	expected_salary_min, expected_salary_max, is_elderly, created_at, updated_at`

// Create inserts a new job seeker
func (r *PostgresSeekerRepository) Create(ctx context.Context, s *domain.JobSeeker) error {
	query := `
		INSERT INTO job_seekers (
			id, user_id, line_user_id, display_name, picture_url, phone, email, age,
			education, experience, skills, resume_url, preferred_area,
			transit_line_colors, preferred_job_types, expected_salary_min, expected_salary_max, is_elderly
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		s.ID,
		nullIfEmpty(s.UserID),
		nullIfEmpty(s.LineUserID),
		s.DisplayName,
		nullIfEmpty(s.PictureURL),
		nullIfEmpty(s.Phone),
		nullIfEmpty(s.Email),
		nullInt(s.Age),
		nullIfEmpty(s.Education),
		nullIfEmpty(s.Experience),
		nullIfEmpty(s.Skills),
		nullIfEmpty(s.ResumeURL),
		nullIfEmpty(s.PreferredArea),
		s.TransitLines,
		s.PreferredJobTypes,
		nullInt(s.ExpectedSalaryMin),
		nullInt(s.ExpectedSalaryMax),
		s.IsElderly,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("seeker already registered")
		}
		r.logger.Error("failed to create seeker",
			slog.String("seeker_id", s.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create seeker: %w", err)
	}
	return nil
}

// Update rewrites the editable profile fields of a seeker
func (r *PostgresSeekerRepository) Update(ctx context.Context, s *domain.JobSeeker) error {
	query := `
		UPDATE job_seekers SET
			display_name = $2, picture_url = $3, phone = $4, email = $5, age = $6,
			education = $7, experience = $8, skills = $9, resume_url = $10, preferred_area = $11,
			transit_line_colors = $12, preferred_job_types = $13,
			expected_salary_min = $14, expected_salary_max = $15, is_elderly = $16,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		s.ID,
		s.DisplayName,
		nullIfEmpty(s.PictureURL),
		nullIfEmpty(s.Phone),
		nullIfEmpty(s.Email),
		nullInt(s.Age),
		nullIfEmpty(s.Education),
		nullIfEmpty(s.Experience),
		nullIfEmpty(s.Skills),
		nullIfEmpty(s.ResumeURL),
		nullIfEmpty(s.PreferredArea),
		s.TransitLines,
		s.PreferredJobTypes,
		nullInt(s.ExpectedSalaryMin),
		nullInt(s.ExpectedSalaryMax),
		s.IsElderly,
	).Scan(&s.UpdatedAt)
	if isMissing(err) {
		return domain.NotFoundf("job seeker %s", s.ID)
	}
	if err != nil {
		r.logger.Error("failed to update seeker",
			slog.String("seeker_id", s.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update seeker: %w", err)
	}
	return nil
}

// LinkLine attaches a chat-bot identity to a seeker. An identity already
// held by another seeker is a conflict.
func (r *PostgresSeekerRepository) LinkLine(ctx context.Context, id, lineUserID string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE job_seekers SET line_user_id = $2, updated_at = NOW() WHERE id = $1`,
		id, lineUserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("line account already linked")
		}
		if isMissing(err) {
			return domain.NotFoundf("job seeker %s", id)
		}
		return fmt.Errorf("failed to link line account: %w", err)
	}
	return requireAffected(res, "job seeker %s", id)
}

// GetByID retrieves a seeker by ID
func (r *PostgresSeekerRepository) GetByID(ctx context.Context, id string) (*domain.JobSeeker, error) {
	return r.getOne(ctx, `SELECT `+seekerColumns+` FROM job_seekers WHERE id = $1`, id)
}

// GetByUserID retrieves the seeker profile of a web account
func (r *PostgresSeekerRepository) GetByUserID(ctx context.Context, userID string) (*domain.JobSeeker, error) {
	return r.getOne(ctx, `SELECT `+seekerColumns+` FROM job_seekers WHERE user_id = $1`, userID)
}

// GetByLineUserID retrieves the seeker registered through the chat-bot
func (r *PostgresSeekerRepository) GetByLineUserID(ctx context.Context, lineUserID string) (*domain.JobSeeker, error) {
	return r.getOne(ctx, `SELECT `+seekerColumns+` FROM job_seekers WHERE line_user_id = $1`, lineUserID)
}

// Search lists seekers matching the filter and returns the total match count
func (r *PostgresSeekerRepository) Search(ctx context.Context, f domain.SeekerFilter) ([]*domain.JobSeeker, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Area != "" {
		add("preferred_area ILIKE '%%' || $%d || '%%'", f.Area)
	}
	if f.TransitLine != "" {
		add("transit_line_colors LIKE '%%' || $%d || '%%'", `"`+string(f.TransitLine)+`"`)
	}
	if f.Category != "" {
		add("skills ILIKE '%%' || $%d || '%%'", f.Category)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	conn := database.Conn(ctx, r.db)
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM job_seekers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count seekers: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + seekerColumns + ` FROM job_seekers` + clause +
		` ORDER BY ` + seekerOrder(f.Sort) + fmt.Sprintf(` LIMIT %d`, limit)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to search seekers", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to search seekers: %w", err)
	}
	defer rows.Close()

	var out []*domain.JobSeeker
	for rows.Next() {
		s := &domain.JobSeeker{}
		if err := scanSeeker(rows, s); err != nil {
			return nil, 0, fmt.Errorf("failed to scan seeker: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// AppliedJobIDs returns, per seeker id, the ids of the jobs applied to
func (r *PostgresSeekerRepository) AppliedJobIDs(ctx context.Context, seekerIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(seekerIDs))
	if len(seekerIDs) == 0 {
		return out, nil
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT seeker_id, job_id FROM applications WHERE seeker_id = ANY($1::uuid[])`,
		pq.Array(seekerIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load applied jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seekerID, jobID string
		if err := rows.Scan(&seekerID, &jobID); err != nil {
			return nil, fmt.Errorf("failed to scan applied job: %w", err)
		}
		out[seekerID] = append(out[seekerID], jobID)
	}
	return out, rows.Err()
}

func (r *PostgresSeekerRepository) getOne(ctx context.Context, query, arg string) (*domain.JobSeeker, error) {
	s := &domain.JobSeeker{}
	if err := scanSeeker(database.Conn(ctx, r.db).QueryRowContext(ctx, query, arg), s); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("job seeker")
		}
		return nil, fmt.Errorf("failed to get seeker: %w", err)
	}
	return s, nil
}

func seekerOrder(sort domain.SeekerSort) string {
	switch sort {
	case domain.SortSalaryAsc:
		return "expected_salary_min ASC NULLS LAST"
	case domain.SortSalaryDesc:
		return "expected_salary_min DESC NULLS LAST"
	case domain.SortAgeAsc:
		return "age ASC NULLS LAST"
	case domain.SortAgeDesc:
		return "age DESC NULLS LAST"
	default:
		return "updated_at DESC"
	}
}

func scanSeeker(row rowScanner, s *domain.JobSeeker) error {
	var age, salaryMin, salaryMax sql.NullInt64
	err := row.Scan(
		&s.ID, &s.UserID, &s.LineUserID, &s.DisplayName,
		&s.PictureURL, &s.Phone, &s.Email, &age,
		&s.Education, &s.Experience, &s.Skills,
		&s.ResumeURL, &s.PreferredArea,
		&s.TransitLines, &s.PreferredJobTypes,
		&salaryMin, &salaryMax, &s.IsElderly, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	s.Age = intPtr(age)
	s.ExpectedSalaryMin = intPtr(salaryMin)
	s.ExpectedSalaryMax = intPtr(salaryMax)
	return nil
}
