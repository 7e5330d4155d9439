package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/featureflags"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/tracing"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/audit"
)

// ApplicationService runs the application lifecycle: apply, status
// transitions, admin follow-up and company side reads.
type ApplicationService struct {
	stores     Stores
	tx         domain.TxManager
	authz      *security.Authorizer
	perms      *security.AuthorizationService
	audit      *audit.Logger
	events     publisher
	logger     *slog.Logger
	now        func() time.Time
	adminAlert func() bool
}

// ApplyInput is a request to create an application.
type ApplyInput struct {
	JobID       string                    `json:"jobId"`
	SeekerID    string                    `json:"seekerId,omitempty"`
	CoverLetter string                    `json:"coverLetter,omitempty"`
	Channel     domain.ApplicationChannel `json:"-"`
}

// ApplicationView is an application as seen by one principal.
type ApplicationView struct {
	*domain.Application
	Saved bool `json:"saved"`
}

// NewApplicationService creates a new application service
func NewApplicationService(
	stores Stores,
	tx domain.TxManager,
	authz *security.Authorizer,
	auditLog *audit.Logger,
	events domain.EventPublisher,
	logger *slog.Logger,
) *ApplicationService {
	logger = orDefaultLogger(logger)
	return &ApplicationService{
		stores:     stores,
		tx:         tx,
		authz:      authz,
		perms:      security.NewAuthorizationService(logger),
		audit:      auditLog,
		events:     publisher{events: events, logger: logger},
		logger:     logger,
		now:        time.Now,
		adminAlert: func() bool { return featureflags.Enabled(featureflags.ElderlyAdminAlert) },
	}
}

// Apply creates a PENDING application. Seekers apply for themselves
// (SELF_APPLIED); admins may save an application on a seeker's behalf
// (HR_SAVED). The job must be ACTIVE and the pair (job, seeker) must be new.
// Elderly seekers are flagged needsMoreInfo and trigger an admin alert.
func (s *ApplicationService) Apply(ctx context.Context, p security.Principal, in ApplyInput) (*domain.Application, error) {
	ctx, span := tracing.Start(ctx, "ApplicationService.Apply", attribute.String("job_id", in.JobID))
	defer span.End()

	if in.Channel == "" {
		in.Channel = domain.ChannelSelfApplied
	}
	switch in.Channel {
	case domain.ChannelSelfApplied:
		if err := s.perms.ValidatePermission(p.Role, security.PermApply); err != nil {
			return nil, err
		}
		if p.SeekerID == "" || (in.SeekerID != "" && in.SeekerID != p.SeekerID) {
			return nil, domain.Forbiddenf("seekers may only apply for themselves")
		}
		in.SeekerID = p.SeekerID
	case domain.ChannelHRSaved:
		if err := s.perms.ValidatePermission(p.Role, security.PermHRSave); err != nil {
			return nil, err
		}
		if in.SeekerID == "" {
			return nil, validation("seekerId is required")
		}
	default:
		return nil, validation("unknown application channel " + string(in.Channel))
	}
	if in.JobID == "" {
		return nil, validation("jobId is required")
	}

	seeker, err := s.stores.Seekers.GetByID(ctx, in.SeekerID)
	if err != nil {
		return nil, err
	}
	job, err := s.stores.Jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusActive {
		return nil, domain.InvalidStatef("job %s is %s", job.ID, job.Status)
	}

	app := &domain.Application{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		SeekerID:      seeker.ID,
		Status:        domain.StatusPending,
		CoverLetter:   in.CoverLetter,
		NeedsMoreInfo: seeker.IsElderly,
		Channel:       in.Channel,
	}

	var created []*domain.Notification
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created = created[:0]
		if err := s.stores.Applications.Create(ctx, app); err != nil {
			return err
		}
		company, err := s.stores.Companies.GetByID(ctx, job.CompanyID)
		if err != nil {
			return err
		}
		n := &domain.Notification{
			ID:      uuid.NewString(),
			UserID:  company.UserID,
			Title:   titleNewApplication,
			Message: newApplicationMessage(job.Title, seeker.IsElderly),
			Type:    domain.NotifyNewApplication,
		}
		if err := s.stores.Notifications.Create(ctx, n); err != nil {
			return err
		}
		created = append(created, n)

		if !seeker.IsElderly || !s.adminAlert() {
			return nil
		}
		admins, err := s.stores.Users.ListByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		for _, admin := range admins {
			n := &domain.Notification{
				ID:      uuid.NewString(),
				UserID:  admin.ID,
				Title:   titleElderlyNeedsInfo,
				Message: elderlyAdminMessage(seeker.DisplayName, job.Title),
				Type:    domain.NotifyElderlyNeedInfo,
			}
			if err := s.stores.Notifications.Create(ctx, n); err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	app.JobTitle = job.Title
	app.CompanyID = job.CompanyID
	app.SeekerName = seeker.DisplayName
	metrics.ObserveApplicationCreated(string(app.Channel))
	s.logger.Info("application created",
		slog.String("application_id", app.ID),
		slog.String("job_id", app.JobID),
		slog.String("seeker_id", app.SeekerID),
		slog.String("channel", string(app.Channel)),
		slog.Bool("needs_more_info", app.NeedsMoreInfo),
	)

	evs := []domain.Event{{
		Type:          domain.EventApplicationCreated,
		ApplicationID: app.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
		CompanyID:     job.CompanyID,
		CompanyName:   job.CompanyName,
		SeekerID:      seeker.ID,
		NewStatus:     app.Status,
		OccurredAt:    s.now().UTC(),
	}}
	s.events.publish(ctx, append(evs, notificationEvents(created)...)...)
	return app, nil
}

// Transition moves an application to the requested status. Setting the
// current status again is a no-op. Terminal applications reject every
// change with domain.ErrInvalidState. On a change the seeker gets an
// in-app notification in the same transaction and, after commit, a
// status_changed event for the chat-bot dispatcher.
func (s *ApplicationService) Transition(ctx context.Context, p security.Principal, id, status string) (*domain.Application, error) {
	ctx, span := tracing.Start(ctx, "ApplicationService.Transition",
		attribute.String("application_id", id),
		attribute.String("status", status),
	)
	defer span.End()

	to, err := domain.ParseApplicationStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		app     *domain.Application
		from    domain.ApplicationStatus
		seeker  *domain.JobSeeker
		job     *domain.Job
		notice  *domain.Notification
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.stores.Applications.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.CanSetStatus(p, a, to); err != nil {
			if s.audit != nil {
				s.audit.LogDenied(ctx, "application", id, "status "+string(to))
			}
			return err
		}
		app, from = a, a.Status
		if from == to {
			return nil
		}
		if !domain.CanTransition(from, to) {
			return domain.InvalidStatef("application %s is %s", id, from)
		}
		if err := s.stores.Applications.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		if seeker, err = s.stores.Seekers.GetByID(ctx, a.SeekerID); err != nil {
			return err
		}
		if job, err = s.stores.Jobs.GetByID(ctx, a.JobID); err != nil {
			return err
		}
		notice = &domain.Notification{
			ID:       uuid.NewString(),
			SeekerID: seeker.ID,
			Title:    titleStatusChanged,
			Message:  StatusMessage(to) + " - " + job.Title,
			Type:     domain.NotifyStatusChanged,
		}
		if err := s.stores.Notifications.Create(ctx, notice); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if !changed {
		return app, nil
	}

	app.Status = to
	app.UpdatedAt = s.now()
	metrics.ObserveTransition(string(from), string(to))
	if s.audit != nil {
		s.audit.LogTransition(ctx, id, string(from), string(to))
	}
	s.logger.Info("application status changed",
		slog.String("application_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	s.events.publish(ctx,
		domain.Event{
			Type:          domain.EventApplicationStatus,
			ApplicationID: app.ID,
			JobID:         job.ID,
			JobTitle:      job.Title,
			CompanyID:     job.CompanyID,
			CompanyName:   job.CompanyName,
			SeekerID:      seeker.ID,
			LineUserID:    seeker.LineUserID,
			OldStatus:     from,
			NewStatus:     to,
			Message:       statusPushText(StatusMessage(to), job.Title, job.CompanyName),
			OccurredAt:    s.now().UTC(),
		},
		domain.Event{Type: domain.EventNotificationCreated, Notification: notice},
	)
	return app, nil
}

// Withdraw moves the seeker's own application to WITHDRAWN.
func (s *ApplicationService) Withdraw(ctx context.Context, p security.Principal, id string) (*domain.Application, error) {
	return s.Transition(ctx, p, id, string(domain.StatusWithdrawn))
}

// SupplyAdditionalInfo stores what an admin collected from the seeker.
// needsMoreInfo drops to false unless the caller overrides it.
func (s *ApplicationService) SupplyAdditionalInfo(ctx context.Context, p security.Principal, id string, info domain.AdditionalInfo) (*domain.Application, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermSupplyInfo); err != nil {
		return nil, err
	}
	needsMoreInfo := false
	if info.NeedsMoreInfo != nil {
		needsMoreInfo = *info.NeedsMoreInfo
	}

	var app *domain.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.stores.Applications.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.stores.Applications.UpdateAdditionalInfo(ctx, id, info, needsMoreInfo); err != nil {
			return err
		}
		a.AdditionalSkills = info.AdditionalSkills
		a.PreferredLocations = info.PreferredLocations
		a.AdminNotes = info.AdminNotes
		a.NeedsMoreInfo = needsMoreInfo
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("additional info supplied",
		slog.String("application_id", id),
		slog.Bool("needs_more_info", needsMoreInfo),
	)
	return app, nil
}

// Get returns one application. A company viewer leaves one view record per
// day and sees whether it saved the application.
func (s *ApplicationService) Get(ctx context.Context, p security.Principal, id string) (*ApplicationView, error) {
	app, err := s.stores.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanActOnApplication(p, app); err != nil {
		return nil, err
	}
	view := &ApplicationView{Application: app}
	if p.Role != domain.RoleCompany {
		return view, nil
	}

	if err := s.stores.Saved.RecordView(ctx, p.CompanyID, id, s.now()); err != nil {
		s.logger.Warn("failed to record application view",
			slog.String("application_id", id),
			slog.String("company_id", p.CompanyID),
			slog.String("error", err.Error()),
		)
	}
	saved, err := s.stores.Saved.IsSaved(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	view.Saved = saved
	return view, nil
}

// List returns applications visible to the principal. Companies are
// pinned to their own jobs and seekers to their own applications.
func (s *ApplicationService) List(ctx context.Context, p security.Principal, f domain.ApplicationFilter) ([]*domain.Application, error) {
	switch p.Role {
	case domain.RoleAdmin:
	case domain.RoleCompany:
		if p.CompanyID == "" {
			return nil, domain.Forbiddenf("company principal without company")
		}
		f.CompanyID = p.CompanyID
	case domain.RoleSeeker:
		if p.SeekerID == "" {
			return nil, domain.Forbiddenf("seeker principal without seeker profile")
		}
		f.SeekerID = p.SeekerID
	default:
		return nil, domain.Forbiddenf("role %q", p.Role)
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	return s.stores.Applications.List(ctx, f)
}

// Save marks an application as saved by the calling company.
func (s *ApplicationService) Save(ctx context.Context, p security.Principal, applicationID string) error {
	if err := s.perms.ValidatePermission(p.Role, security.PermSaveApplications); err != nil {
		return err
	}
	app, err := s.stores.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if err := s.authz.CanActOnApplication(p, app); err != nil {
		return err
	}
	return s.stores.Saved.Save(ctx, p.CompanyID, applicationID)
}

// Unsave removes a saved mark of the calling company.
func (s *ApplicationService) Unsave(ctx context.Context, p security.Principal, applicationID string) error {
	if err := s.perms.ValidatePermission(p.Role, security.PermSaveApplications); err != nil {
		return err
	}
	return s.stores.Saved.Remove(ctx, p.CompanyID, applicationID)
}

// ListSaved lists the calling company's saved applications.
func (s *ApplicationService) ListSaved(ctx context.Context, p security.Principal) ([]*domain.SavedApplication, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermSaveApplications); err != nil {
		return nil, err
	}
	return s.stores.Saved.ListByCompany(ctx, p.CompanyID)
}

// CompanyStats summarises a company's recruiting funnel.
type CompanyStats struct {
	ApplicationsByApplicants int `json:"applicationsByApplicants"`
	SavedApplications        int `json:"savedApplications"`
	ApplicationViewHistory   int `json:"applicationViewHistory"`
	ResumeMatching           int `json:"resumeMatching"`
}

// Stats returns the funnel counters of the calling company. Admins pass
// the company id explicitly.
func (s *ApplicationService) Stats(ctx context.Context, p security.Principal, companyID string) (*CompanyStats, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermViewStats); err != nil {
		return nil, err
	}
	if !p.IsAdmin() || companyID == "" {
		companyID = p.CompanyID
	}
	if companyID == "" {
		return nil, validation("companyId is required")
	}

	var st CompanyStats
	var err error
	if st.ApplicationsByApplicants, err = s.stores.Applications.CountByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if st.SavedApplications, err = s.stores.Saved.CountByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if st.ApplicationViewHistory, err = s.stores.Saved.CountViewsByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	st.ResumeMatching, err = s.stores.Applications.CountByCompany(ctx, companyID,
		domain.StatusOpened, domain.StatusReviewing, domain.StatusInterviewScheduled)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
