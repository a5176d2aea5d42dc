package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	// Authenticate resolves a bearer token into the principal of a live session.
	Authenticate(ctx context.Context, tokenString string) (*model.Principal, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	notifier Notifier
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, notifier Notifier) AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// a new token version signs out every other device
	version := uuid.New().String()
	if err := s.userRepo.StartSession(ctx, user.ID, version, s.now()); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.FullName, user.RoleCode(), user.PrivilegeCodes(), version)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.RoleCode()}).Info("user logged in")
	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.PrivilegeCodes(),
	}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return validationFailed("new_password", "min")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	user.TokenVersion = uuid.New().String()
	return s.userRepo.Update(ctx, user)
}

// session checks the token against the stored account.
func (s *authService) session(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrMissingToken) {
			return nil, ErrInvalidCredentials.with(func(e *Error) { e.Message = err.Error() })
		}
		return nil, ErrSessionExpired.with(func(e *Error) { e.Message = err.Error() })
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound.with(func(e *Error) { e.Kind = KindUnauthorized })
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return user, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	user, err := s.session(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.PrivilegeCodes(),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*model.Principal, error) {
	user, err := s.session(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	p := user.Principal()
	return &p, nil
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	at := s.now()
	if err := s.userRepo.UpdateLastSeen(ctx, userID, at); err != nil {
		return err
	}
	s.notifier.Publish("user_status_update", map[string]interface{}{
		"user_id":      userID,
		"status":       "online",
		"last_seen_at": at,
	})
	return nil
}
