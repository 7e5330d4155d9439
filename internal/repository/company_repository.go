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

// PostgresCompanyRepository implements domain.CompanyRepository using PostgreSQL
type PostgresCompanyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCompanyRepository creates a new company repository
func NewPostgresCompanyRepository(db *sql.DB, logger *slog.Logger) *PostgresCompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCompanyRepository{db: db, logger: logger}
}

const companyColumns = `id, user_id, name, credits_remaining, current_package_id, package_expires_at, created_at`

// Create inserts a new company
func (r *PostgresCompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (id, user_id, name, credits_remaining)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, c.ID, c.UserID, c.Name, c.CreditsRemaining).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("company already registered for user %s", c.UserID)
		}
		r.logger.Error("failed to create company", slog.String("company_id", c.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID
func (r *PostgresCompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// GetByUserID retrieves the company owned by a user
func (r *PostgresCompanyRepository) GetByUserID(ctx context.Context, userID string) (*domain.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE user_id = $1`, userID)
}

func (r *PostgresCompanyRepository) getOne(ctx context.Context, query, key string) (*domain.Company, error) {
	c := &domain.Company{}
	if err := scanCompany(database.Conn(ctx, r.db).QueryRowContext(ctx, query, key), c); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("company %s", key)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// AddCredits adds credits to the balance and returns the new balance
func (r *PostgresCompanyRepository) AddCredits(ctx context.Context, id string, credits int) (int, error) {
	var balance int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`UPDATE companies SET credits_remaining = credits_remaining + $1 WHERE id = $2 RETURNING credits_remaining`,
		credits, id,
	).Scan(&balance)
	if err != nil {
		if isMissing(err) {
			return 0, domain.NotFoundf("company %s", id)
		}
		r.logger.Error("failed to add credits",
			slog.String("company_id", id),
			slog.Int("credits", credits),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to add credits: %w", err)
	}
	return balance, nil
}

// SetCurrentPackage records the active package and when it expires
func (r *PostgresCompanyRepository) SetCurrentPackage(ctx context.Context, id, packageID string, expiresAt time.Time) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE companies SET current_package_id = $1, package_expires_at = $2 WHERE id = $3`,
		packageID, expiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set current package: %w", err)
	}
	return requireAffected(res, "company %s", id)
}

// ClearExpiredPackages drops the current package of every company whose
// package expired before now. Credits are left untouched. The affected
// companies are returned as they were before the update.
func (r *PostgresCompanyRepository) ClearExpiredPackages(ctx context.Context, now time.Time) ([]*domain.Company, error) {
	query := `
		UPDATE companies c
		SET current_package_id = NULL, package_expires_at = NULL
		FROM companies old
		WHERE c.id = old.id
		  AND c.current_package_id IS NOT NULL
		  AND c.package_expires_at < $1
		RETURNING old.id, old.user_id, old.name, old.credits_remaining,
		          old.current_package_id, old.package_expires_at, old.created_at
	`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, now)
	if err != nil {
		r.logger.Error("failed to clear expired packages", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to clear expired packages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Company
	for rows.Next() {
		c := &domain.Company{}
		if err := scanCompany(rows, c); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCompany(row rowScanner, c *domain.Company) error {
	var packageID sql.NullString
	var expiresAt sql.NullTime
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreditsRemaining, &packageID, &expiresAt, &c.CreatedAt); err != nil {
		return err
	}
	c.CurrentPackageID = stringPtr(packageID)
	c.PackageExpiresAt = timePtr(expiresAt)
	return nil
}
