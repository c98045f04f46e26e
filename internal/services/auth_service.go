package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tquast/kimai2/internal/constants"
	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrUsernameRequired     = errors.New("username is required")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserDisabled         = errors.New("user account is disabled")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication and account preferences.
type AuthService struct {
	userRepo        repository.UserRepository
	defaultTimezone string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, defaultTimezone string) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		defaultTimezone: defaultTimezone,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Password string
	Alias    string
	Timezone string
}

// Signup creates a new user with billing preferences at their defaults.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, ErrInvalidTimezone
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		Alias:        strings.TrimSpace(input.Alias),
		PasswordHash: string(hashedPassword),
		Timezone:     timezone,
		Enabled:      true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		return nil, ErrUserDisabled
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// UpdatePreferencesInput holds optional account preference changes.
type UpdatePreferencesInput struct {
	Alias      *string
	Timezone   *string
	HourlyRate *float64
}

// UpdatePreferences changes a user's display and billing preferences.
func (s *AuthService) UpdatePreferences(id uint64, input UpdatePreferencesInput) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if input.Alias != nil {
		user.Alias = strings.TrimSpace(*input.Alias)
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, ErrInvalidTimezone
		}
		user.Timezone = *input.Timezone
	}
	if input.HourlyRate != nil {
		if *input.HourlyRate < 0 {
			return nil, ErrNegativeRate
		}
		user.HourlyRate = input.HourlyRate
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
