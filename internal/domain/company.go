package domain

import (
	"context"
	"time"
)

// Company owns jobs and holds the credit balance.
type Company struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	Name             string     `json:"name"`
	CreditsRemaining int        `json:"creditsRemaining"`
	CurrentPackageID *string    `json:"currentPackageId"`
	PackageExpiresAt *time.Time `json:"packageExpiresAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// CompanyRepository defines data access for companies. The credit and
// package mutations are meant to run inside a ledger transaction.
type CompanyRepository interface {
	Create(ctx context.Context, company *Company) error
	GetByID(ctx context.Context, id string) (*Company, error)
	GetByUserID(ctx context.Context, userID string) (*Company, error)
	AddCredits(ctx context.Context, id string, credits int) (int, error)
	SetCurrentPackage(ctx context.Context, id, packageID string, expiresAt time.Time) error
	ClearExpiredPackages(ctx context.Context, now time.Time) ([]*Company, error)
}

// Package is a purchasable credit bundle.
type Package struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           int       `json:"price"`
	CreditsIncluded int       `json:"creditsIncluded"`
	Features        []string  `json:"features"`
	IsActive        bool      `json:"isActive"`
	SortOrder       int       `json:"sortOrder"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PackageRepository defines data access for packages
type PackageRepository interface {
	Create(ctx context.Context, pkg *Package) error
	Update(ctx context.Context, pkg *Package) error
	GetByID(ctx context.Context, id string) (*Package, error)
	List(ctx context.Context, onlyActive bool) ([]*Package, error)
}

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderPending OrderStatus = "PENDING"
	OrderPaid    OrderStatus = "PAID"
)

// Order is one purchase attempt. Amount is the package price at creation.
type Order struct {
	ID        string      `json:"id"`
	CompanyID string      `json:"companyId"`
	PackageID string      `json:"packageId"`
	Amount    int         `json:"amount"`
	Status    OrderStatus `json:"status"`
	PaidAt    *time.Time  `json:"paidAt"`
	CreatedAt time.Time   `json:"createdAt"`

	PackageName string `json:"packageName,omitempty"`
}

// OrderRepository defines data access for orders
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*Order, error)
}
