package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/auth"
)

const minPasswordLength = 8

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles registration, login and admin seeding
type AuthService struct {
	stores Stores
	tx     domain.TxManager
	tokens *auth.TokenManager
	ttl    time.Duration
	logger *slog.Logger
}

// RegisterInput is a self-service sign up. Role is SEEKER or COMPANY.
type RegisterInput struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
	Phone       string      `json:"phone,omitempty"`
	CompanyName string      `json:"companyName,omitempty"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	ExpiresIn int         `json:"expiresIn"` // seconds
	UserID    string      `json:"userId"`
	Role      domain.Role `json:"role"`
	CompanyID string      `json:"companyId,omitempty"`
	SeekerID  string      `json:"seekerId,omitempty"`
}

// NewAuthService creates a new authentication service
func NewAuthService(stores Stores, tx domain.TxManager, tokens *auth.TokenManager, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		stores: stores,
		tx:     tx,
		tokens: tokens,
		ttl:    ttl,
		logger: orDefaultLogger(logger),
	}
}

// Register creates the user and, in the same transaction, the seeker
// profile or company that belongs to it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	switch in.Role {
	case domain.RoleSeeker:
	case domain.RoleCompany:
		if strings.TrimSpace(in.CompanyName) == "" {
			return nil, validation("companyName is required")
		}
	default:
		return nil, validation("role must be SEEKER or COMPANY")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	p := security.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Users.Create(ctx, user); err != nil {
			return err
		}
		if in.Role == domain.RoleCompany {
			company := &domain.Company{ID: uuid.NewString(), UserID: user.ID, Name: in.CompanyName}
			p.CompanyID = company.ID
			return s.stores.Companies.Create(ctx, company)
		}
		seeker := &domain.JobSeeker{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			DisplayName: in.Name,
			Email:       in.Email,
			Phone:       in.Phone,
		}
		p.SeekerID = seeker.ID
		return s.stores.Seekers.Create(ctx, seeker)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return s.issue(p)
}

// Login checks the password and issues a token for the user's principal.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validation("email and password are required")
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("login attempt with unknown email", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	p, err := s.principalFor(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return s.issue(p)
}

// SeedAdmin creates an ADMIN user. It is only reachable from the operator CLI.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := s.stores.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("admin seeded", slog.String("user_id", user.ID))
	return user, nil
}

func (s *AuthService) principalFor(ctx context.Context, user *domain.User) (security.Principal, error) {
	p := security.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
	switch user.Role {
	case domain.RoleCompany:
		company, err := s.stores.Companies.GetByUserID(ctx, user.ID)
		if err != nil {
			return p, fmt.Errorf("company of user %s: %w", user.ID, err)
		}
		p.CompanyID = company.ID
	case domain.RoleSeeker:
		seeker, err := s.stores.Seekers.GetByUserID(ctx, user.ID)
		if err != nil {
			return p, fmt.Errorf("seeker of user %s: %w", user.ID, err)
		}
		p.SeekerID = seeker.ID
	}
	return p, nil
}

func (s *AuthService) issue(p security.Principal) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(p, s.ttl)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(s.ttl.Seconds()),
		UserID:    p.UserID,
		Role:      p.Role,
		CompanyID: p.CompanyID,
		SeekerID:  p.SeekerID,
	}, nil
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return validation("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return validation("invalid email address")
	}
	if len(password) < minPasswordLength {
		return validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
