package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

// PostgresPackageRepository implements domain.PackageRepository using PostgreSQL
type PostgresPackageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPackageRepository creates a new package repository
func NewPostgresPackageRepository(db *sql.DB, logger *slog.Logger) *PostgresPackageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPackageRepository{db: db, logger: logger}
}

const packageColumns = `id, name, description, price, credits_included, features, is_active, sort_order, created_at, updated_at`

// Create inserts a new package
func (r *PostgresPackageRepository) Create(ctx context.Context, p *domain.Package) error {
	query := `
		INSERT INTO packages (id, name, description, price, credits_included, features, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.CreditsIncluded,
		pq.Array(features(p.Features)), p.IsActive, p.SortOrder,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create package", slog.String("package_id", p.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a package
func (r *PostgresPackageRepository) Update(ctx context.Context, p *domain.Package) error {
	query := `
		UPDATE packages
		SET name = $1, description = $2, price = $3, credits_included = $4,
		    features = $5, is_active = $6, sort_order = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		p.Name, p.Description, p.Price, p.CreditsIncluded,
		pq.Array(features(p.Features)), p.IsActive, p.SortOrder, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if isMissing(err) {
			return domain.NotFoundf("package %s", p.ID)
		}
		return fmt.Errorf("failed to update package: %w", err)
	}
	return nil
}

// GetByID retrieves a package by ID
func (r *PostgresPackageRepository) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	p := &domain.Package{}
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	if err := scanPackage(row, p); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("package %s", id)
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return p, nil
}

// List returns packages ordered by sort order, optionally only active ones
func (r *PostgresPackageRepository) List(ctx context.Context, onlyActive bool) ([]*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages`
	if onlyActive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY sort_order ASC, created_at ASC`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Package
	for rows.Next() {
		p := &domain.Package{}
		if err := scanPackage(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func features(f []string) []string {
	if f == nil {
		return []string{}
	}
	return f
}

func scanPackage(row rowScanner, p *domain.Package) error {
	var feats pq.StringArray
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreditsIncluded,
		&feats, &p.IsActive, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	p.Features = []string(feats)
	return nil
}
