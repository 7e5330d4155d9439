package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/resume"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
)

// LinkCodeTTL is how long a chat-bot link code stays valid.
const LinkCodeTTL = 10 * time.Minute

const fallbackChatName = "ผู้ใช้ LINE"

var phonePattern = regexp.MustCompile(`^0[0-9]{8,9}$`)

// SeekerService manages seeker profiles and their chat-bot identity.
type SeekerService struct {
	stores   Stores
	perms    *security.AuthorizationService
	profiles domain.ChatProfileSource
	codes    domain.LinkCodeStore
	logger   *slog.Logger
}

// SeekerProfile is a seeker with the completeness score of its resume.
type SeekerProfile struct {
	*domain.JobSeeker
	ResumeCompleteness int  `json:"resumeCompleteness"`
	LineLinked         bool `json:"lineLinked"`
}

// ProfileInput is a partial profile update. Nil fields stay unchanged.
type ProfileInput struct {
	DisplayName       *string  `json:"displayName"`
	Phone             *string  `json:"phone"`
	Email             *string  `json:"email"`
	Age               *int     `json:"age"`
	Education         *string  `json:"education"`
	Experience        *string  `json:"experience"`
	Skills            *string  `json:"skills"`
	ResumeURL         *string  `json:"resumeUrl"`
	PreferredArea     *string  `json:"preferredArea"`
	TransitLines      []string `json:"transitLineColors"`
	PreferredJobTypes []string `json:"preferredJobTypes"`
	ExpectedSalaryMin *int     `json:"expectedSalaryMin"`
	ExpectedSalaryMax *int     `json:"expectedSalaryMax"`
	IsElderly         *bool    `json:"isElderly"`
}

// LinkCode is a one-time code the seeker sends to the chat-bot.
type LinkCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewSeekerService creates a new seeker service. profiles and codes may be
// nil; chat registration then falls back to a placeholder name and code
// linking is unavailable.
func NewSeekerService(stores Stores, profiles domain.ChatProfileSource, codes domain.LinkCodeStore, logger *slog.Logger) *SeekerService {
	logger = orDefaultLogger(logger)
	return &SeekerService{
		stores:   stores,
		perms:    security.NewAuthorizationService(logger),
		profiles: profiles,
		codes:    codes,
		logger:   logger,
	}
}

// Profile returns the caller's own profile.
func (s *SeekerService) Profile(ctx context.Context, p security.Principal) (*SeekerProfile, error) {
	seeker, err := s.own(ctx, p)
	if err != nil {
		return nil, err
	}
	return profileOf(seeker), nil
}

// UpdateProfile applies a partial update to the caller's own profile.
func (s *SeekerService) UpdateProfile(ctx context.Context, p security.Principal, in ProfileInput) (*SeekerProfile, error) {
	seeker, err := s.own(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(seeker, in); err != nil {
		return nil, err
	}
	if err := s.stores.Seekers.Update(ctx, seeker); err != nil {
		return nil, err
	}
	s.logger.Info("seeker profile updated", slog.String("seeker_id", seeker.ID))
	return profileOf(seeker), nil
}

// IssueLinkCode creates a code that links the caller to the chat-bot
// account that sends it.
func (s *SeekerService) IssueLinkCode(ctx context.Context, p security.Principal) (*LinkCode, error) {
	seeker, err := s.own(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.codes == nil {
		return nil, domain.InvalidStatef("chat-bot linking is not available")
	}
	code, err := s.codes.Issue(ctx, seeker.ID, LinkCodeTTL)
	if err != nil {
		return nil, err
	}
	return &LinkCode{Code: code, ExpiresAt: time.Now().Add(LinkCodeTTL).UTC()}, nil
}

// RegisterFromChat creates a seeker for a chat-bot user that has no
// profile yet. The name and picture come from the messaging profile.
func (s *SeekerService) RegisterFromChat(ctx context.Context, lineUserID string, elderly bool) (*domain.JobSeeker, error) {
	if lineUserID == "" {
		return nil, validation("line user id is required")
	}
	_, err := s.stores.Seekers.GetByLineUserID(ctx, lineUserID)
	if err == nil {
		return nil, domain.Conflictf("line user already registered")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	seeker := &domain.JobSeeker{
		ID:          uuid.NewString(),
		LineUserID:  lineUserID,
		DisplayName: fallbackChatName,
		IsElderly:   elderly,
	}
	if s.profiles != nil {
		prof, err := s.profiles.Profile(ctx, lineUserID)
		if err != nil {
			s.logger.Warn("chat profile lookup failed",
				slog.String("line_user_id", lineUserID),
				slog.String("error", err.Error()),
			)
		} else {
			if prof.DisplayName != "" {
				seeker.DisplayName = prof.DisplayName
			}
			seeker.PictureURL = prof.PictureURL
		}
	}
	if err := s.stores.Seekers.Create(ctx, seeker); err != nil {
		return nil, err
	}
	s.logger.Info("seeker registered from chat",
		slog.String("seeker_id", seeker.ID),
		slog.Bool("elderly", elderly),
	)
	return seeker, nil
}

// LinkChat attaches lineUserID to the seeker that issued code.
func (s *SeekerService) LinkChat(ctx context.Context, lineUserID, code string) (*domain.JobSeeker, error) {
	if s.codes == nil {
		return nil, domain.InvalidStatef("chat-bot linking is not available")
	}
	if existing, err := s.stores.Seekers.GetByLineUserID(ctx, lineUserID); err == nil {
		return nil, domain.Conflictf("line user already linked to seeker %s", existing.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	seekerID, err := s.codes.Consume(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Seekers.LinkLine(ctx, seekerID, lineUserID); err != nil {
		return nil, err
	}
	s.logger.Info("line account linked", slog.String("seeker_id", seekerID))
	return s.stores.Seekers.GetByID(ctx, seekerID)
}

// SetPhone stores a phone number sent through the chat-bot.
func (s *SeekerService) SetPhone(ctx context.Context, seeker *domain.JobSeeker, phone string) error {
	phone = normalizePhone(phone)
	if !phonePattern.MatchString(phone) {
		return validation("invalid phone number")
	}
	seeker.Phone = phone
	return s.stores.Seekers.Update(ctx, seeker)
}

func (s *SeekerService) own(ctx context.Context, p security.Principal) (*domain.JobSeeker, error) {
	if err := s.perms.ValidatePermission(p.Role, security.PermEditProfile); err != nil {
		return nil, err
	}
	if p.SeekerID == "" {
		return nil, domain.Forbiddenf("principal has no seeker profile")
	}
	return s.stores.Seekers.GetByID(ctx, p.SeekerID)
}

func profileOf(seeker *domain.JobSeeker) *SeekerProfile {
	return &SeekerProfile{
		JobSeeker:          seeker,
		ResumeCompleteness: resume.Completeness(seeker),
		LineLinked:         seeker.HasMessagingIdentity(),
	}
}

func applyProfile(seeker *domain.JobSeeker, in ProfileInput) error {
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return validation("displayName must not be empty")
		}
		seeker.DisplayName = name
	}
	if in.Phone != nil {
		phone := normalizePhone(*in.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			return validation("invalid phone number")
		}
		seeker.Phone = phone
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" && !strings.Contains(email, "@") {
			return validation("invalid email")
		}
		seeker.Email = email
	}
	if in.Age != nil {
		if *in.Age < 15 || *in.Age > 120 {
			return validation("age must be between 15 and 120")
		}
		seeker.Age = in.Age
	}
	setText(&seeker.Education, in.Education)
	setText(&seeker.Experience, in.Experience)
	setText(&seeker.Skills, in.Skills)
	setText(&seeker.ResumeURL, in.ResumeURL)
	setText(&seeker.PreferredArea, in.PreferredArea)

	if in.TransitLines != nil {
		lines, err := parseTransitLines(in.TransitLines)
		if err != nil {
			return err
		}
		seeker.TransitLines = lines
	}
	if in.PreferredJobTypes != nil {
		types := make([]domain.JobType, 0, len(in.PreferredJobTypes))
		for _, raw := range in.PreferredJobTypes {
			t := domain.JobType(raw)
			if !t.Valid() {
				return validation("unknown job type " + raw)
			}
			types = append(types, t)
		}
		seeker.PreferredJobTypes = domain.NewEnumSet(types...)
	}

	if in.ExpectedSalaryMin != nil {
		seeker.ExpectedSalaryMin = in.ExpectedSalaryMin
	}
	if in.ExpectedSalaryMax != nil {
		seeker.ExpectedSalaryMax = in.ExpectedSalaryMax
	}
	if lo, hi := seeker.ExpectedSalaryMin, seeker.ExpectedSalaryMax; (lo != nil && *lo < 0) || (hi != nil && *hi < 0) {
		return validation("expected salary must not be negative")
	} else if lo != nil && hi != nil && *lo > *hi {
		return validation("expectedSalaryMin exceeds expectedSalaryMax")
	}
	if in.IsElderly != nil {
		seeker.IsElderly = *in.IsElderly
	}
	return nil
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func normalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}
