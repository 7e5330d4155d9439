package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/tracing"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/audit"
)

const (
	titleJobApproved = "ประกาศงานได้รับการอนุมัติ"
	titleJobRejected = "ประกาศงานไม่ผ่านการอนุมัติ"
)

// JobService manages job postings: companies write them, admins moderate
// them from PENDING to ACTIVE or REJECTED.
type JobService struct {
	stores Stores
	tx     domain.TxManager
	authz  *security.Authorizer
	perms  *security.AuthorizationService
	audit  *audit.Logger
	events publisher
	logger *slog.Logger
	now    func() time.Time
}

// JobInput is the writable part of a posting. On update nil fields stay
// unchanged.
type JobInput struct {
	CompanyID    string     `json:"companyId"`
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Requirements *string    `json:"requirements"`
	Location     *string    `json:"location"`
	Salary       *string    `json:"salary"`
	SalaryMin    *int       `json:"salaryMin"`
	SalaryMax    *int       `json:"salaryMax"`
	JobType      *string    `json:"jobType"`
	TransitLines []string   `json:"transitLineColors"`
	ForElderly   *bool      `json:"forElderly"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

// NewJobService creates a new job service
func NewJobService(
	stores Stores,
	tx domain.TxManager,
	authz *security.Authorizer,
	auditLog *audit.Logger,
	events domain.EventPublisher,
	logger *slog.Logger,
) *JobService {
	logger = orDefaultLogger(logger)
	return &JobService{
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

// Create posts a job. A company posts for itself and waits for moderation;
// an admin names the company and the job goes live at once.
func (s *JobService) Create(ctx context.Context, p security.Principal, in JobInput) (*domain.Job, error) {
	ctx, span := tracing.Start(ctx, "JobService.Create")
	defer span.End()

	if err := s.perms.ValidatePermission(p.Role, security.PermPostJobs); err != nil {
		return nil, err
	}
	job := &domain.Job{ID: uuid.NewString(), Status: domain.JobStatusPending}
	switch {
	case p.IsAdmin():
		if in.CompanyID == "" {
			return nil, validation("companyId is required")
		}
		job.CompanyID = in.CompanyID
		job.Status = domain.JobStatusActive
	case p.CompanyID != "":
		job.CompanyID = p.CompanyID
	default:
		return nil, domain.Forbiddenf("company principal without company")
	}

	if in.JobType == nil {
		return nil, validation("jobType is required")
	}
	if err := applyJob(job, in); err != nil {
		return nil, err
	}
	if job.Title == "" || job.Location == "" {
		return nil, validation("title and location are required")
	}
	if job.ExpiresAt != nil && job.ExpiresAt.Before(s.now()) {
		return nil, validation("expiresAt must be in the future")
	}

	company, err := s.stores.Companies.GetByID(ctx, job.CompanyID)
	if err != nil {
		return nil, err
	}
	job.CompanyName = company.Name
	if err := s.stores.Jobs.Create(ctx, job); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("job_id", job.ID))
	s.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("company_id", job.CompanyID),
		slog.String("status", string(job.Status)),
	)
	return job, nil
}

// Update edits a posting the caller may act on. A company that edits a
// REJECTED job sends it back to moderation.
func (s *JobService) Update(ctx context.Context, p security.Principal, id string, in JobInput) (*domain.Job, error) {
	var job *domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		j, err := s.owned(ctx, p, id)
		if err != nil {
			return err
		}
		if err := applyJob(j, in); err != nil {
			return err
		}
		if j.Title == "" || j.Location == "" {
			return validation("title and location must not be empty")
		}
		if err := s.stores.Jobs.Update(ctx, j); err != nil {
			return err
		}
		if j.Status == domain.JobStatusRejected && !p.IsAdmin() {
			if err := s.stores.Jobs.UpdateStatus(ctx, j.ID, domain.JobStatusRejected, domain.JobStatusPending); err != nil {
				return err
			}
			j.Status = domain.JobStatusPending
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Close stops an ACTIVE job from taking applications.
func (s *JobService) Close(ctx context.Context, p security.Principal, id string) (*domain.Job, error) {
	job, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusActive {
		return nil, domain.InvalidStatef("job %s is %s", id, job.Status)
	}
	if err := s.stores.Jobs.UpdateStatus(ctx, id, domain.JobStatusActive, domain.JobStatusClosed); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatusClosed
	return job, nil
}

// Delete removes a posting that has no applications.
func (s *JobService) Delete(ctx context.Context, p security.Principal, id string) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	if err := s.stores.Jobs.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogAction(ctx, "delete", "job", id, "success", "")
	}
	return nil
}

// ListManaged lists jobs of every status: a company sees its own, an admin
// sees all, optionally narrowed to one status.
func (s *JobService) ListManaged(ctx context.Context, p security.Principal, status string) ([]*domain.Job, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermPostJobs); err != nil {
		return nil, err
	}
	f := domain.ManagedJobFilter{Limit: 100}
	if status != "" {
		st, err := domain.ParseJobStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	if !p.IsAdmin() {
		if p.CompanyID == "" {
			return nil, domain.Forbiddenf("company principal without company")
		}
		f.CompanyID = p.CompanyID
	}
	return s.stores.Jobs.List(ctx, f)
}

// Approve publishes a PENDING job.
func (s *JobService) Approve(ctx context.Context, p security.Principal, id string) (*domain.Job, error) {
	return s.moderate(ctx, p, id, domain.JobStatusActive)
}

// Reject turns a PENDING job down.
func (s *JobService) Reject(ctx context.Context, p security.Principal, id string) (*domain.Job, error) {
	return s.moderate(ctx, p, id, domain.JobStatusRejected)
}

// moderate moves a PENDING job to its decision and notifies the owning
// company account.
func (s *JobService) moderate(ctx context.Context, p security.Principal, id string, to domain.JobStatus) (*domain.Job, error) {
	ctx, span := tracing.Start(ctx, "JobService.moderate",
		attribute.String("job_id", id),
		attribute.String("to", string(to)),
	)
	defer span.End()

	if err := s.perms.ValidatePermission(p.Role, security.PermModerateJobs); err != nil {
		if s.audit != nil {
			s.audit.LogDenied(ctx, "job", id, "moderate "+string(to))
		}
		return nil, err
	}

	var (
		job    *domain.Job
		notice *domain.Notification
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		j, err := s.stores.Jobs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if j.Status != domain.JobStatusPending {
			return domain.InvalidStatef("job %s is %s, not %s", id, j.Status, domain.JobStatusPending)
		}
		if err := s.stores.Jobs.UpdateStatus(ctx, id, domain.JobStatusPending, to); err != nil {
			return err
		}
		j.Status = to

		company, err := s.stores.Companies.GetByID(ctx, j.CompanyID)
		if err != nil {
			return err
		}
		n := &domain.Notification{
			ID:      uuid.NewString(),
			UserID:  company.UserID,
			Title:   titleJobApproved,
			Message: jobModeratedMessage(j.Title, to),
			Type:    domain.NotifyJobModerated,
		}
		if to == domain.JobStatusRejected {
			n.Title = titleJobRejected
		}
		if err := s.stores.Notifications.Create(ctx, n); err != nil {
			return err
		}
		job, notice = j, n
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, "moderate", "job", id, "success", string(to))
	}
	s.logger.Info("job moderated", slog.String("job_id", id), slog.String("status", string(to)))
	s.events.publish(ctx, notificationEvents([]*domain.Notification{notice})...)
	return job, nil
}

// owned loads a job the caller may write.
func (s *JobService) owned(ctx context.Context, p security.Principal, id string) (*domain.Job, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermPostJobs); err != nil {
		return nil, err
	}
	job, err := s.stores.Jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanActOnJob(p, job); err != nil {
		return nil, err
	}
	return job, nil
}

func applyJob(job *domain.Job, in JobInput) error {
	setText(&job.Title, in.Title)
	setText(&job.Description, in.Description)
	setText(&job.Requirements, in.Requirements)
	setText(&job.Location, in.Location)
	setText(&job.Salary, in.Salary)

	if in.JobType != nil {
		t := domain.JobType(strings.TrimSpace(*in.JobType))
		if !t.Valid() {
			return validation("unknown job type " + *in.JobType)
		}
		job.JobType = t
	}
	if in.TransitLines != nil {
		lines, err := parseTransitLines(in.TransitLines)
		if err != nil {
			return err
		}
		job.TransitLines = lines
	}
	if in.SalaryMin != nil {
		job.SalaryMin = in.SalaryMin
	}
	if in.SalaryMax != nil {
		job.SalaryMax = in.SalaryMax
	}
	if lo, hi := job.SalaryMin, job.SalaryMax; (lo != nil && *lo < 0) || (hi != nil && *hi < 0) {
		return validation("salary must not be negative")
	} else if lo != nil && hi != nil && *lo > *hi {
		return validation("salaryMin exceeds salaryMax")
	}
	if in.ForElderly != nil {
		job.ForElderly = *in.ForElderly
	}
	if in.ExpiresAt != nil {
		at := in.ExpiresAt.UTC()
		job.ExpiresAt = &at
	}
	return nil
}
