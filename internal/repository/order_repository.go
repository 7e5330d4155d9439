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

// PostgresOrderRepository implements domain.OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *sql.DB, logger *slog.Logger) *PostgresOrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOrderRepository{db: db, logger: logger}
}

const orderColumns = `o.id, o.company_id, o.package_id, o.amount, o.status, o.paid_at, o.created_at, p.name`

const orderFrom = ` FROM orders o JOIN packages p ON p.id = o.package_id`

// Create inserts a new order
func (r *PostgresOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, company_id, package_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, o.ID, o.CompanyID, o.PackageID, o.Amount, o.Status).Scan(&o.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create order",
			slog.String("order_id", o.ID),
			slog.String("company_id", o.CompanyID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1`, id)
}

// GetForUpdate retrieves an order and locks its row for the surrounding transaction
func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1 FOR UPDATE OF o`, id)
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, query, id string) (*domain.Order, error) {
	o := &domain.Order{}
	if err := scanOrder(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id), o); err != nil {
		if isMissing(err) {
			return nil, domain.NotFoundf("order %s", id)
		}
		r.logger.Error("failed to get order", slog.String("order_id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// MarkPaid moves an order to PAID
func (r *PostgresOrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status = 'PAID', paid_at = $1 WHERE id = $2`, paidAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	return requireAffected(res, "order %s", id)
}

// ListByCompany lists a company's orders, newest first
func (r *PostgresOrderRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.company_id = $1 ORDER BY o.created_at DESC LIMIT $2`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o := &domain.Order{}
		if err := scanOrder(rows, o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row rowScanner, o *domain.Order) error {
	var paidAt sql.NullTime
	if err := row.Scan(&o.ID, &o.CompanyID, &o.PackageID, &o.Amount, &o.Status, &paidAt, &o.CreatedAt, &o.PackageName); err != nil {
		return err
	}
	o.PaidAt = timePtr(paidAt)
	return nil
}
