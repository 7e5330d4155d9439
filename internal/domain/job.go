package domain

import (
	"context"
	"fmt"
	"time"
)

// JobType is the employment type of a posting.
type JobType string

const (
	JobTypeFullTime   JobType = "FULL_TIME"
	JobTypePartTime   JobType = "PART_TIME"
	JobTypeContract   JobType = "CONTRACT"
	JobTypeInternship JobType = "INTERNSHIP"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship:
		return true
	}
	return false
}

// JobStatus is the moderation status of a posting.
type JobStatus string

const (
	JobStatusPending  JobStatus = "PENDING"
	JobStatusActive   JobStatus = "ACTIVE"
	JobStatusClosed   JobStatus = "CLOSED"
	JobStatusRejected JobStatus = "REJECTED"
)

// ParseJobStatus validates a wire value.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobStatusPending, JobStatusActive, JobStatusClosed, JobStatusRejected:
		return st, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown job status %q", s)}
}

// Job is a posting owned by exactly one company.
type Job struct {
	ID           string         `json:"id"`
	CompanyID    string         `json:"companyId"`
	CompanyName  string         `json:"companyName,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Requirements string         `json:"requirements"`
	Location     string         `json:"location"`
	Salary       string         `json:"salary"`
	SalaryMin    *int           `json:"salaryMin"`
	SalaryMax    *int           `json:"salaryMax"`
	JobType      JobType        `json:"jobType"`
	TransitLines TransitLineSet `json:"transitLineColors"`
	ForElderly   bool           `json:"forElderly"`
	Status       JobStatus      `json:"status"`
	ExpiresAt    *time.Time     `json:"expiresAt"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// IsOpen reports whether the job accepts applications at t.
func (j *Job) IsOpen(t time.Time) bool {
	if j.Status != JobStatusActive {
		return false
	}
	return j.ExpiresAt == nil || !j.ExpiresAt.Before(t)
}

// JobFilter narrows job listings.
type JobFilter struct {
	OnlyOpenAt  time.Time // zero means no expiry filter
	ForElderly  bool
	TransitLine TransitLine
	Limit       int
}

// ManagedJobFilter narrows the job lists of companies and moderators. Empty
// fields match every job.
type ManagedJobFilter struct {
	CompanyID string
	Status    JobStatus
	Limit     int
}

// JobRepository defines data access for jobs
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	// UpdateStatus moves a job from one status to another. It returns
	// ErrInvalidState when the job is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to JobStatus) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, filter ManagedJobFilter) ([]*Job, error)
	ListActive(ctx context.Context, filter JobFilter) ([]*Job, error)
	LatestActiveByCompany(ctx context.Context, companyID string) (*Job, error)
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}
