package security

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermApply            Permission = "apply"
	PermWithdraw         Permission = "withdraw"
	PermViewOwnApps      Permission = "view_own_applications"
	PermManageApps       Permission = "manage_applications"
	PermSearchSeekers    Permission = "search_seekers"
	PermSaveApplications Permission = "save_applications"
	PermBuyPackages      Permission = "buy_packages"
	PermViewStats        Permission = "view_stats"
	PermManagePackages   Permission = "manage_packages"
	PermSupplyInfo       Permission = "supply_additional_info"
	PermHRSave           Permission = "hr_save"
	PermNotifyUsers      Permission = "notify_users"
	PermViewAllApps      Permission = "view_all_applications"
	PermEditProfile      Permission = "edit_profile"
	PermPostJobs         Permission = "post_jobs"
	PermModerateJobs     Permission = "moderate_jobs"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermManageApps,
		PermSearchSeekers,
		PermViewStats,
		PermManagePackages,
		PermSupplyInfo,
		PermHRSave,
		PermNotifyUsers,
		PermViewAllApps,
		PermWithdraw,
		PermPostJobs,
		PermModerateJobs,
	},
	domain.RoleCompany: {
		PermManageApps,
		PermSearchSeekers,
		PermSaveApplications,
		PermBuyPackages,
		PermViewStats,
		PermPostJobs,
	},
	domain.RoleSeeker: {
		PermApply,
		PermWithdraw,
		PermViewOwnApps,
		PermEditProfile,
	},
}

// Principal is the authenticated caller. CompanyID is set for COMPANY
// principals and SeekerID for SEEKER principals.
type Principal struct {
	UserID    string
	Email     string
	Role      domain.Role
	CompanyID string
	SeekerID  string
}

// IsAdmin reports whether the principal has the ADMIN role
func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

type principalKey struct{}

// WithPrincipal stores the principal in the context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in the context
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthorizationService handles role permission checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission returns domain.ErrForbidden when the role lacks the permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return domain.Forbiddenf("%s role cannot %s", role, permission)
	}
	return nil
}
