package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/matching"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/tracing"
	"github.com/aryan0dhankhar/jobmatch/internal/resume"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
)

const seekerSearchLimit = 100

// MatchService reads jobs and seekers and attaches match vectors to them.
type MatchService struct {
	stores Stores
	authz  *security.Authorizer
	perms  *security.AuthorizationService
	logger *slog.Logger
	now    func() time.Time
}

// JobMatch is the match of one seeker against one job.
type JobMatch struct {
	JobID             string            `json:"jobId"`
	SeekerID          string            `json:"seekerId"`
	Criteria          matching.Criteria `json:"criteria"`
	MatchCount        int               `json:"matchCount"`
	TransitCompatible bool              `json:"transitCompatible"`
}

// SeekerQuery filters the company seeker search.
type SeekerQuery struct {
	JobID       string
	Area        string
	TransitLine string
	Category    string
	Sort        string
}

// SeekerRow is one seeker in a company search result.
type SeekerRow struct {
	*domain.JobSeeker
	Criteria           *matching.Criteria `json:"matchCriteria,omitempty"`
	TransitCompatible  *bool              `json:"transitCompatible,omitempty"`
	ResumeCompleteness int                `json:"resumeCompleteness"`
	AppliedJobIDs      []string           `json:"appliedJobIds"`
}

// SeekerSearchResult is a page of seekers matched against one job.
type SeekerSearchResult struct {
	Seekers []*SeekerRow `json:"seekers"`
	Total   int          `json:"total"`
	Job     *domain.Job  `json:"job,omitempty"`
}

// JobQuery filters the public job list.
type JobQuery struct {
	ForElderly  bool
	TransitLine string
}

// NewMatchService creates a new match service
func NewMatchService(stores Stores, authz *security.Authorizer, logger *slog.Logger) *MatchService {
	logger = orDefaultLogger(logger)
	return &MatchService{
		stores: stores,
		authz:  authz,
		perms:  security.NewAuthorizationService(logger),
		logger: logger,
		now:    time.Now,
	}
}

// ListJobs returns ACTIVE, unexpired jobs, newest first.
func (s *MatchService) ListJobs(ctx context.Context, q JobQuery) ([]*domain.Job, error) {
	f := domain.JobFilter{OnlyOpenAt: s.now(), ForElderly: q.ForElderly, Limit: 50}
	if q.TransitLine != "" {
		line := domain.TransitLine(q.TransitLine)
		if !line.Valid() {
			return nil, validation("unknown transit line " + q.TransitLine)
		}
		f.TransitLine = line
	}
	return s.stores.Jobs.ListActive(ctx, f)
}

// GetJob returns a job. Jobs that are not ACTIVE are only visible to
// their company and to admins.
func (s *MatchService) GetJob(ctx context.Context, p security.Principal, id string) (*domain.Job, error) {
	job, err := s.stores.Jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusActive && s.authz.CanActOnJob(p, job) != nil {
		return nil, domain.NotFoundf("job %s", id)
	}
	return job, nil
}

// MatchJob computes the match vector for a job. Seekers match themselves;
// a company (on its own job) or an admin names the seeker.
func (s *MatchService) MatchJob(ctx context.Context, p security.Principal, jobID, seekerID string) (*JobMatch, error) {
	ctx, span := tracing.Start(ctx, "MatchService.MatchJob", attribute.String("job_id", jobID))
	defer span.End()

	job, err := s.stores.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch p.Role {
	case domain.RoleSeeker:
		if seekerID != "" && seekerID != p.SeekerID {
			return nil, domain.Forbiddenf("seekers may only match themselves")
		}
		seekerID = p.SeekerID
	default:
		if err := s.authz.CanActOnJob(p, job); err != nil {
			return nil, err
		}
	}
	if seekerID == "" {
		return nil, validation("seekerId is required")
	}
	seeker, err := s.stores.Seekers.GetByID(ctx, seekerID)
	if err != nil {
		return nil, err
	}

	c := matching.Match(seeker, job)
	metrics.ObserveMatch("job", 1)
	return &JobMatch{
		JobID:             job.ID,
		SeekerID:          seeker.ID,
		Criteria:          c,
		MatchCount:        c.Count(),
		TransitCompatible: matching.TransitCompatible(seeker.TransitLines, job.TransitLines),
	}, nil
}

// SearchSeekers lists seekers for a company with their match against the
// requested job, or the company's latest ACTIVE job when none is named.
func (s *MatchService) SearchSeekers(ctx context.Context, p security.Principal, q SeekerQuery) (*SeekerSearchResult, error) {
	ctx, span := tracing.Start(ctx, "MatchService.SearchSeekers")
	defer span.End()

	if err := s.perms.ValidatePermission(p.Role, security.PermSearchSeekers); err != nil {
		return nil, err
	}

	var job *domain.Job
	switch {
	case q.JobID != "":
		j, err := s.stores.Jobs.GetByID(ctx, q.JobID)
		if err != nil {
			return nil, err
		}
		if err := s.authz.CanActOnJob(p, j); err != nil {
			return nil, err
		}
		job = j
	case p.CompanyID != "":
		j, err := s.stores.Jobs.LatestActiveByCompany(ctx, p.CompanyID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		job = j
	}

	f := domain.SeekerFilter{
		Area:     q.Area,
		Category: q.Category,
		Sort:     domain.SeekerSort(q.Sort),
		Limit:    seekerSearchLimit,
	}
	if q.TransitLine != "" {
		line := domain.TransitLine(q.TransitLine)
		if !line.Valid() {
			return nil, validation("unknown transit line " + q.TransitLine)
		}
		f.TransitLine = line
	}
	switch f.Sort {
	case "", domain.SortLatest, domain.SortSalaryAsc, domain.SortSalaryDesc, domain.SortAgeAsc, domain.SortAgeDesc:
	default:
		return nil, validation("unknown sort " + q.Sort)
	}

	seekers, total, err := s.stores.Seekers.Search(ctx, f)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	ids := make([]string, len(seekers))
	for i, sk := range seekers {
		ids[i] = sk.ID
	}
	applied, err := s.stores.Seekers.AppliedJobIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]*SeekerRow, 0, len(seekers))
	for _, sk := range seekers {
		row := &SeekerRow{
			JobSeeker:          sk,
			ResumeCompleteness: resume.Completeness(sk),
			AppliedJobIDs:      applied[sk.ID],
		}
		if row.AppliedJobIDs == nil {
			row.AppliedJobIDs = []string{}
		}
		if job != nil {
			c := matching.Match(sk, job)
			transit := matching.TransitCompatible(sk.TransitLines, job.TransitLines)
			row.Criteria = &c
			row.TransitCompatible = &transit
		}
		rows = append(rows, row)
	}
	if job != nil {
		metrics.ObserveMatch("seeker_search", len(rows))
	}
	return &SeekerSearchResult{Seekers: rows, Total: total, Job: job}, nil
}
