package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/tracing"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/audit"
)

// LedgerService turns package purchases into company credits.
type LedgerService struct {
	stores Stores
	tx     domain.TxManager
	authz  *security.Authorizer
	perms  *security.AuthorizationService
	audit  *audit.Logger
	events publisher
	logger *slog.Logger
	now    func() time.Time
}

// PaymentResult is the outcome of a paid order.
type PaymentResult struct {
	Order            *domain.Order `json:"order"`
	CreditsRemaining int           `json:"creditsRemaining"`
	PackageExpiresAt time.Time     `json:"packageExpiresAt"`
}

// CreditSummary is a company's current balance and package.
type CreditSummary struct {
	CreditsRemaining   int        `json:"creditsRemaining"`
	CurrentPackageID   *string    `json:"currentPackageId"`
	CurrentPackageName string     `json:"currentPackageName,omitempty"`
	PackageExpiresAt   *time.Time `json:"packageExpiresAt"`
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	stores Stores,
	tx domain.TxManager,
	authz *security.Authorizer,
	auditLog *audit.Logger,
	events domain.EventPublisher,
	logger *slog.Logger,
) *LedgerService {
	logger = orDefaultLogger(logger)
	return &LedgerService{
		stores: stores,
		tx:     tx,
		authz:  authz,
		perms:  security.NewAuthorizationService(logger),
		audit:  auditLog,
		events: publisher{events: events, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// CreateOrder opens a PENDING order for an active package. The amount is
// fixed at the package price of this moment.
func (s *LedgerService) CreateOrder(ctx context.Context, p security.Principal, packageID string) (*domain.Order, error) {
	ctx, span := tracing.Start(ctx, "LedgerService.CreateOrder", attribute.String("package_id", packageID))
	defer span.End()

	if err := s.perms.ValidatePermission(p.Role, security.PermBuyPackages); err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, domain.Forbiddenf("company principal without company")
	}
	if packageID == "" {
		return nil, validation("packageId is required")
	}
	pkg, err := s.stores.Packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, domain.InvalidStatef("package %s is not active", pkg.ID)
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		CompanyID:   p.CompanyID,
		PackageID:   pkg.ID,
		Amount:      pkg.Price,
		Status:      domain.OrderPending,
		PackageName: pkg.Name,
	}
	if err := s.stores.Orders.Create(ctx, order); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	metrics.ObserveOrderCreated()
	s.logger.Info("order created",
		slog.String("order_id", order.ID),
		slog.String("company_id", order.CompanyID),
		slog.String("package_id", pkg.ID),
		slog.Int("amount", order.Amount),
	)
	return order, nil
}

// PayOrder marks the order PAID, grants the package credits, and sets the
// package with a one month expiry, all in one transaction. The order row is
// locked first so a concurrent retry sees PAID and fails with Conflict.
func (s *LedgerService) PayOrder(ctx context.Context, p security.Principal, orderID string) (*PaymentResult, error) {
	ctx, span := tracing.Start(ctx, "LedgerService.PayOrder", attribute.String("order_id", orderID))
	defer span.End()

	var res PaymentResult
	var credits int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.stores.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.authz.CanActOnOrder(p, order); err != nil {
			return err
		}
		if order.Status == domain.OrderPaid {
			return domain.Conflictf("order %s already paid", order.ID)
		}
		pkg, err := s.stores.Packages.GetByID(ctx, order.PackageID)
		if err != nil {
			return err
		}

		paidAt := s.now().UTC()
		if err := s.stores.Orders.MarkPaid(ctx, order.ID, paidAt); err != nil {
			return err
		}
		balance, err := s.stores.Companies.AddCredits(ctx, order.CompanyID, pkg.CreditsIncluded)
		if err != nil {
			return err
		}
		expiresAt := paidAt.AddDate(0, 1, 0)
		if err := s.stores.Companies.SetCurrentPackage(ctx, order.CompanyID, pkg.ID, expiresAt); err != nil {
			return err
		}

		order.Status = domain.OrderPaid
		order.PaidAt = &paidAt
		order.PackageName = pkg.Name
		res = PaymentResult{Order: order, CreditsRemaining: balance, PackageExpiresAt: expiresAt}
		credits = pkg.CreditsIncluded
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	metrics.ObserveOrderPaid(credits)
	if s.audit != nil {
		s.audit.LogPayment(ctx, orderID, credits)
	}
	s.logger.Info("order paid",
		slog.String("order_id", orderID),
		slog.String("company_id", res.Order.CompanyID),
		slog.Int("credits_granted", credits),
		slog.Int("credits_remaining", res.CreditsRemaining),
	)
	s.events.publish(ctx, domain.Event{
		Type:       domain.EventOrderPaid,
		OrderID:    orderID,
		CompanyID:  res.Order.CompanyID,
		OccurredAt: *res.Order.PaidAt,
	})
	return &res, nil
}

// Credits returns the calling company's balance and current package.
func (s *LedgerService) Credits(ctx context.Context, p security.Principal) (*CreditSummary, error) {
	if p.CompanyID == "" {
		return nil, domain.Forbiddenf("company principal without company")
	}
	company, err := s.stores.Companies.GetByID(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	sum := &CreditSummary{
		CreditsRemaining: company.CreditsRemaining,
		CurrentPackageID: company.CurrentPackageID,
		PackageExpiresAt: company.PackageExpiresAt,
	}
	if company.CurrentPackageID != nil {
		if pkg, err := s.stores.Packages.GetByID(ctx, *company.CurrentPackageID); err == nil {
			sum.CurrentPackageName = pkg.Name
		}
	}
	return sum, nil
}

// ListOrders lists the calling company's orders, newest first.
func (s *LedgerService) ListOrders(ctx context.Context, p security.Principal, limit int) ([]*domain.Order, error) {
	if p.CompanyID == "" {
		return nil, domain.Forbiddenf("company principal without company")
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.stores.Orders.ListByCompany(ctx, p.CompanyID, limit)
}

// ExpirePackages clears every package whose expiry has passed and tells
// the company owner. Credits stay on the balance.
func (s *LedgerService) ExpirePackages(ctx context.Context) (int, error) {
	var created []*domain.Notification
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created = created[:0]
		expired, err := s.stores.Companies.ClearExpiredPackages(ctx, s.now().UTC())
		if err != nil {
			return err
		}
		for _, c := range expired {
			n := &domain.Notification{
				ID:      uuid.NewString(),
				UserID:  c.UserID,
				Title:   titlePackageExpired,
				Message: packageExpiredMessage(c.CreditsRemaining),
				Type:    domain.NotifyPackageExpired,
			}
			if err := s.stores.Notifications.Create(ctx, n); err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(created) > 0 {
		s.logger.Info("packages expired", slog.Int("count", len(created)))
	}
	s.events.publish(ctx, notificationEvents(created)...)
	return len(created), nil
}
