package domain

import (
	"context"
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	StatusPending            ApplicationStatus = "PENDING"
	StatusOpened             ApplicationStatus = "OPENED"
	StatusReviewing          ApplicationStatus = "REVIEWING"
	StatusInterviewScheduled ApplicationStatus = "INTERVIEW_SCHEDULED"
	StatusAccepted           ApplicationStatus = "ACCEPTED"
	StatusRejected           ApplicationStatus = "REJECTED"
	StatusWithdrawn          ApplicationStatus = "WITHDRAWN"
)

// AllStatuses lists the vocabulary in lifecycle order.
var AllStatuses = []ApplicationStatus{
	StatusPending,
	StatusOpened,
	StatusReviewing,
	StatusInterviewScheduled,
	StatusAccepted,
	StatusRejected,
	StatusWithdrawn,
}

// validTransitions lists the states reachable from each non-terminal state.
// Non-terminal states may move backward; terminal states have no entry.
var validTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:            {StatusOpened, StatusReviewing, StatusInterviewScheduled, StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusOpened:             {StatusPending, StatusReviewing, StatusInterviewScheduled, StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusReviewing:          {StatusPending, StatusOpened, StatusInterviewScheduled, StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusInterviewScheduled: {StatusPending, StatusOpened, StatusReviewing, StatusAccepted, StatusRejected, StatusWithdrawn},
}

// ParseApplicationStatus validates a wire value.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown application status %q", s)}
}

// Valid reports whether s is part of the vocabulary.
func (s ApplicationStatus) Valid() bool {
	_, err := ParseApplicationStatus(string(s))
	return err == nil
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ApplicationStatus) IsTerminal() bool {
	_, ok := validTransitions[s]
	return !ok
}

// CanTransition reports whether from -> to is in the permitted set.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplicationChannel records how an application was created.
type ApplicationChannel string

const (
	ChannelSelfApplied ApplicationChannel = "SELF_APPLIED"
	ChannelHRSaved     ApplicationChannel = "HR_SAVED"
)

// Application joins one seeker to one job. (JobID, SeekerID) is unique.
type Application struct {
	ID                 string             `json:"id"`
	JobID              string             `json:"jobId"`
	SeekerID           string             `json:"seekerId"`
	Status             ApplicationStatus  `json:"status"`
	CoverLetter        string             `json:"coverLetter,omitempty"`
	NeedsMoreInfo      bool               `json:"needsMoreInfo"`
	AdditionalSkills   string             `json:"additionalSkills,omitempty"`
	PreferredLocations string             `json:"preferredLocations,omitempty"`
	AdminNotes         string             `json:"adminNotes,omitempty"`
	Channel            ApplicationChannel `json:"applicationChannel"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`

	// Denormalized for listings.
	JobTitle   string `json:"jobTitle,omitempty"`
	CompanyID  string `json:"companyId,omitempty"`
	SeekerName string `json:"seekerName,omitempty"`
}

// AdditionalInfo is what an admin collects from an applicant after the fact.
type AdditionalInfo struct {
	AdditionalSkills   string
	PreferredLocations string
	AdminNotes         string
	NeedsMoreInfo      *bool
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	JobID         string
	SeekerID      string
	CompanyID     string
	Status        ApplicationStatus
	NeedsMoreInfo *bool
	Limit         int
}

// ApplicationRepository defines data access for applications. Create returns
// an error wrapping ErrConflict when the (job, seeker) pair already exists.
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	GetForUpdate(ctx context.Context, id string) (*Application, error)
	GetByJobAndSeeker(ctx context.Context, jobID, seekerID string) (*Application, error)
	UpdateStatus(ctx context.Context, id string, status ApplicationStatus) error
	UpdateAdditionalInfo(ctx context.Context, id string, info AdditionalInfo, needsMoreInfo bool) error
	List(ctx context.Context, filter ApplicationFilter) ([]*Application, error)
	CountByCompany(ctx context.Context, companyID string, statuses ...ApplicationStatus) (int, error)
}

// SavedApplication is a company bookmark on an application.
type SavedApplication struct {
	CompanyID     string    `json:"companyId"`
	ApplicationID string    `json:"applicationId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SavedApplicationRepository defines data access for bookmarks and views
type SavedApplicationRepository interface {
	Save(ctx context.Context, companyID, applicationID string) error
	Remove(ctx context.Context, companyID, applicationID string) error
	IsSaved(ctx context.Context, companyID, applicationID string) (bool, error)
	ListByCompany(ctx context.Context, companyID string) ([]*SavedApplication, error)
	CountByCompany(ctx context.Context, companyID string) (int, error)
	RecordView(ctx context.Context, companyID, applicationID string, at time.Time) error
	CountViewsByCompany(ctx context.Context, companyID string) (int, error)
}
