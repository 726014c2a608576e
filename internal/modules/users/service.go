package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service implements registration, login and account settings
type Service struct {
	repo   *Repository
	tokens *TokenManager
	cost   int
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a new user service
func NewService(repo *Repository, tokens *TokenManager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		log:    log.With().Str("service", "users").Logger(),
	}
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Register creates an account with a unique email and username
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CompanyName:  strings.TrimSpace(req.CompanyName),
		BusinessType: strings.TrimSpace(req.BusinessType),
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func validateRegistration(req RegisterRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// Login verifies credentials and issues a bearer token
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn().Int64("user_id", user.ID).Msg("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile updates company settings and returns the updated user
func (s *Service) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*User, error) {
	update.CompanyName = strings.TrimSpace(update.CompanyName)
	update.BusinessType = strings.TrimSpace(update.BusinessType)

	if err := s.repo.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// ChangePassword replaces the password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, userID int64, change PasswordChange) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(change.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if change.NewPassword != change.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(change.NewPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(change.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", userID).Msg("Password changed")
	return nil
}
