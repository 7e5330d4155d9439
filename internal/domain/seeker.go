package domain

import (
	"context"
	"time"
)

// JobSeeker is a person looking for work. Empty strings mean the field was
// never filled in.
type JobSeeker struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId,omitempty"`
	LineUserID        string         `json:"-"`
	DisplayName       string         `json:"displayName"`
	PictureURL        string         `json:"pictureUrl,omitempty"`
	Phone             string         `json:"phone"`
	Email             string         `json:"email"`
	Age               *int           `json:"age"`
	Education         string         `json:"education"`
	Experience        string         `json:"experience"`
	Skills            string         `json:"skills"`
	ResumeURL         string         `json:"resumeUrl"`
	PreferredArea     string         `json:"preferredArea"`
	TransitLines      TransitLineSet `json:"transitLineColors"`
	PreferredJobTypes JobTypeSet     `json:"preferredJobTypes"`
	ExpectedSalaryMin *int           `json:"expectedSalaryMin"`
	ExpectedSalaryMax *int           `json:"expectedSalaryMax"`
	IsElderly         bool           `json:"isElderly"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// HasMessagingIdentity reports whether the seeker can receive chat-bot pushes.
func (s *JobSeeker) HasMessagingIdentity() bool {
	return s.LineUserID != ""
}

// SeekerSort selects the ordering of seeker searches.
type SeekerSort string

const (
	SortLatest     SeekerSort = "latest"
	SortSalaryAsc  SeekerSort = "salary_asc"
	SortSalaryDesc SeekerSort = "salary_desc"
	SortAgeAsc     SeekerSort = "age_asc"
	SortAgeDesc    SeekerSort = "age_desc"
)

// SeekerFilter narrows seeker searches. Area, Category are case-insensitive
// substring filters.
type SeekerFilter struct {
	Area        string
	TransitLine TransitLine
	Category    string
	Sort        SeekerSort
	Limit       int
}

// SeekerRepository defines data access for job seekers
type SeekerRepository interface {
	Create(ctx context.Context, seeker *JobSeeker) error
	Update(ctx context.Context, seeker *JobSeeker) error
	LinkLine(ctx context.Context, id, lineUserID string) error
	GetByID(ctx context.Context, id string) (*JobSeeker, error)
	GetByUserID(ctx context.Context, userID string) (*JobSeeker, error)
	GetByLineUserID(ctx context.Context, lineUserID string) (*JobSeeker, error)
	Search(ctx context.Context, filter SeekerFilter) ([]*JobSeeker, int, error)
	AppliedJobIDs(ctx context.Context, seekerIDs []string) (map[string][]string, error)
}

// ChatProfile is the public profile of a chat-bot user.
type ChatProfile struct {
	UserID      string
	DisplayName string
	PictureURL  string
}

// ChatProfileSource looks up chat-bot user profiles.
type ChatProfileSource interface {
	Profile(ctx context.Context, userID string) (*ChatProfile, error)
}

// LinkCodeStore keeps short-lived codes that link a web seeker account to a
// chat-bot identity. Consume returns ErrNotFound for unknown or expired codes
// and a code can be consumed once.
type LinkCodeStore interface {
	Issue(ctx context.Context, seekerID string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, code string) (string, error)
}
