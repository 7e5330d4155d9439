package security

import (
	"log/slog"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// Authorizer answers resource-level questions: may this principal act on
// this job, application or order. Admins bypass every check.
type Authorizer struct {
	logger *slog.Logger
}

// NewAuthorizer creates a new resource-aware authorizer
func NewAuthorizer(logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{logger: logger}
}

// CanActOnJob permits admins and the company that owns the job
func (a *Authorizer) CanActOnJob(p Principal, job *domain.Job) error {
	if p.IsAdmin() {
		return nil
	}
	if p.Role == domain.RoleCompany && p.CompanyID != "" && p.CompanyID == job.CompanyID {
		return nil
	}
	a.deny(p, "job", job.ID)
	return domain.Forbiddenf("job %s", job.ID)
}

// CanActOnApplication permits admins, the applying seeker and the company
// that owns the job applied to.
func (a *Authorizer) CanActOnApplication(p Principal, app *domain.Application) error {
	switch {
	case p.IsAdmin():
		return nil
	case p.Role == domain.RoleSeeker && p.SeekerID != "" && p.SeekerID == app.SeekerID:
		return nil
	case p.Role == domain.RoleCompany && p.CompanyID != "" && p.CompanyID == app.CompanyID:
		return nil
	}
	a.deny(p, "application", app.ID)
	return domain.Forbiddenf("application %s", app.ID)
}

// CanSetStatus applies the role rules for status changes: a company may
// move its own applications to any state except WITHDRAWN, a seeker may
// only withdraw its own application and an admin may do anything.
func (a *Authorizer) CanSetStatus(p Principal, app *domain.Application, to domain.ApplicationStatus) error {
	if err := a.CanActOnApplication(p, app); err != nil {
		return err
	}
	switch p.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleCompany:
		if to != domain.StatusWithdrawn {
			return nil
		}
	case domain.RoleSeeker:
		if to == domain.StatusWithdrawn {
			return nil
		}
	}
	a.deny(p, "application_status", string(to))
	return domain.Forbiddenf("%s may not set status %s", p.Role, to)
}

// CanActOnOrder permits admins and the company that placed the order
func (a *Authorizer) CanActOnOrder(p Principal, order *domain.Order) error {
	if p.IsAdmin() || (p.CompanyID != "" && p.CompanyID == order.CompanyID) {
		return nil
	}
	a.deny(p, "order", order.ID)
	return domain.Forbiddenf("order %s", order.ID)
}

func (a *Authorizer) deny(p Principal, resourceType, resourceID string) {
	a.logger.Warn("resource access denied",
		slog.String("user_id", p.UserID),
		slog.String("role", string(p.Role)),
		slog.String("resource_type", resourceType),
		slog.String("resource_id", resourceID),
	)
}
