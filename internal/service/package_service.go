package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/pkg/cache"
)

const activePackagesKey = "packages:active"

// PackageService serves the package catalog. The public list of active
// packages is cached; every admin write drops the cache.
type PackageService struct {
	packages domain.PackageRepository
	perms    *security.AuthorizationService
	cache    *cache.Cache[[]*domain.Package]
	logger   *slog.Logger
}

// PackageInput is the editable part of a package.
type PackageInput struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           int      `json:"price"`
	CreditsIncluded int      `json:"creditsIncluded"`
	Features        []string `json:"features"`
	IsActive        *bool    `json:"isActive"`
	SortOrder       int      `json:"sortOrder"`
}

func (in PackageInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return validation("name is required")
	case in.Price < 0:
		return validation("price must not be negative")
	case in.CreditsIncluded < 0:
		return validation("creditsIncluded must not be negative")
	}
	return nil
}

// NewPackageService creates a new package service
func NewPackageService(packages domain.PackageRepository, ttl time.Duration, logger *slog.Logger) *PackageService {
	logger = orDefaultLogger(logger)
	return &PackageService{
		packages: packages,
		perms:    security.NewAuthorizationService(logger),
		cache:    cache.New[[]*domain.Package](ttl),
		logger:   logger,
	}
}

// ListActive returns active packages ordered by sort order.
func (s *PackageService) ListActive(ctx context.Context) ([]*domain.Package, error) {
	return s.cache.GetOrLoad(activePackagesKey, func() ([]*domain.Package, error) {
		return s.packages.List(ctx, true)
	})
}

// ListAll returns every package for the admin screens.
func (s *PackageService) ListAll(ctx context.Context, p security.Principal) ([]*domain.Package, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermManagePackages); err != nil {
		return nil, err
	}
	return s.packages.List(ctx, false)
}

// Create adds a package.
func (s *PackageService) Create(ctx context.Context, p security.Principal, in PackageInput) (*domain.Package, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermManagePackages); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	pkg := &domain.Package{ID: uuid.NewString(), IsActive: true}
	in.apply(pkg)
	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, err
	}
	s.cache.Invalidate("packages:")
	s.logger.Info("package created", slog.String("package_id", pkg.ID), slog.String("name", pkg.Name))
	return pkg, nil
}

// Update overwrites a package. Existing orders keep their snapshot amount.
func (s *PackageService) Update(ctx context.Context, p security.Principal, id string, in PackageInput) (*domain.Package, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermManagePackages); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(pkg)
	if err := s.packages.Update(ctx, pkg); err != nil {
		return nil, err
	}
	s.cache.Invalidate("packages:")
	s.logger.Info("package updated", slog.String("package_id", pkg.ID))
	return pkg, nil
}

func (in PackageInput) apply(pkg *domain.Package) {
	pkg.Name = strings.TrimSpace(in.Name)
	pkg.Description = in.Description
	pkg.Price = in.Price
	pkg.CreditsIncluded = in.CreditsIncluded
	pkg.Features = in.Features
	pkg.SortOrder = in.SortOrder
	if in.IsActive != nil {
		pkg.IsActive = *in.IsActive
	}
}
