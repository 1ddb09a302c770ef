package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/auth-service/internal/auth"
	"github.com/Dan9191/auth-service/internal/config"
	"github.com/Dan9191/auth-service/internal/models"
	"github.com/Dan9191/auth-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials is returned when the password check fails for an
// existing user. Handlers must present it identically to
// repository.ErrUserNotFound so login failures do not leak which emails
// are registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the persistence surface the service needs
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch *models.UserPatch) (*models.User, error)
}

// Notifier sends account-related mail
type Notifier interface {
	SendWelcome(to string, fullName *string) error
}

// Service handles business logic
type Service struct {
	store  UserStore
	issuer *auth.TokenIssuer
	log    *logrus.Logger
	config *config.Config
	mailer Notifier
}

// NewService initializes a new service
func NewService(store UserStore, issuer *auth.TokenIssuer, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{store: store, issuer: issuer, log: log, config: cfg}
}

// WithMailer attaches an optional mail sender for registration notices
func (s *Service) WithMailer(m Notifier) *Service {
	s.mailer = m
	return s
}

// Register creates a new active, non-privileged user with a hashed password
func (s *Service) Register(ctx context.Context, in *models.UserCreate) (*models.User, error) {
	user, err := s.createUser(ctx, in, false)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		// Best effort: registration must not fail on mail trouble.
		go func(email string, fullName *string) {
			if err := s.mailer.SendWelcome(email, fullName); err != nil {
				s.log.Errorf("Failed to send welcome email to %s: %v", email, err)
			}
		}(user.Email, user.FullName)
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

func (s *Service) createUser(ctx context.Context, in *models.UserCreate, superuser bool) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hashedPassword,
		IsActive:     true,
		IsSuperuser:  superuser,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate validates an email/password pair. The two failure causes are
// distinguished here but collapse to one response at the HTTP boundary.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Debugf("Login attempt for unknown email: %s", email)
		}
		return nil, err
	}

	if err := auth.CheckPassword(password, user.PasswordHash); err != nil {
		s.log.Debugf("Password verification failed for user: %s", email)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates a user and returns a signed access token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	// Upgrade digests hashed under an older, weaker cost now that the
	// plaintext is available.
	if auth.NeedsRehash(user.PasswordHash) {
		if err := s.rehashPassword(ctx, user, password); err != nil {
			s.log.Errorf("Failed to upgrade password hash for %s: %v", user.Email, err)
		}
	}

	token, err := s.issuer.Issue(user.Email, 0)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return token, nil
}

func (s *Service) rehashPassword(ctx context.Context, user *models.User, password string) error {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	updated, err := s.store.UpdateUser(ctx, user.ID, &models.UserPatch{PasswordHash: &hashed})
	if err != nil {
		return err
	}
	user.PasswordHash = updated.PasswordHash
	return nil
}

// UpdateUser applies a partial update to the user with the given id. A
// supplied password is re-hashed before storage.
func (s *Service) UpdateUser(ctx context.Context, id int64, in *models.UserUpdate) (*models.User, error) {
	patch := &models.UserPatch{
		Email:       in.Email,
		FullName:    in.FullName,
		IsActive:    in.IsActive,
		IsSuperuser: in.IsSuperuser,
	}
	if in.Password != nil {
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		patch.PasswordHash = &hashed
	}

	user, err := s.store.UpdateUser(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.log.Infof("User updated: %d", user.ID)
	return user, nil
}

// EnsureSuperuser creates the configured first superuser if it does not
// exist yet. Safe to call on every startup.
func (s *Service) EnsureSuperuser(ctx context.Context) error {
	if s.config.SuperuserEmail == "" {
		return nil
	}

	_, err := s.store.FindUserByEmail(ctx, s.config.SuperuserEmail)
	if err == nil {
		s.log.Info("Superuser already exists")
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("failed to look up superuser: %w", err)
	}

	in := &models.UserCreate{
		Email:    s.config.SuperuserEmail,
		Password: s.config.SuperuserPass,
	}
	if _, err := s.createUser(ctx, in, true); err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	s.log.Infof("Superuser created: %s", s.config.SuperuserEmail)
	return nil
}
