package service

import (
	"context"
	"fmt"
	"strings"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UserService interface {
	CreateUser(ctx context.Context, principal model.Principal, req *CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, principal model.Principal, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, principal model.Principal, userID uuid.UUID) error
	UpdateUserPrivileges(ctx context.Context, principal model.Principal, userID uuid.UUID, privilegeCodes []string) (*model.UserResponse, error)
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	GetRoles(ctx context.Context) ([]model.Role, error)
	GetPrivileges(ctx context.Context) ([]model.Privilege, error)
}

type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FullName    string `json:"full_name" validate:"required,notblank"`
	PhoneNumber string `json:"phone_number" validate:"max=20"`
	RoleID      uint   `json:"role_id" validate:"required"`
}

type UpdateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FullName    string  `json:"full_name" validate:"required,notblank"`
	PhoneNumber string  `json:"phone_number" validate:"max=20"`
	RoleID      uint    `json:"role_id" validate:"required"`
	IsActive    *bool   `json:"is_active"`
}

type userService struct {
	userRepo      repository.UserRepository
	privilegeRepo repository.PrivilegeRepository
	roleRepo      repository.RoleRepository
}

func NewUserService(userRepo repository.UserRepository, privilegeRepo repository.PrivilegeRepository, roleRepo repository.RoleRepository) UserService {
	return &userService{
		userRepo:      userRepo,
		privilegeRepo: privilegeRepo,
		roleRepo:      roleRepo,
	}
}

func (s *userService) emailTaken(ctx context.Context, email string) error {
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return ErrEmailExists.with(func(e *Error) { e.Field = "email" })
	}
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *userService) role(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRoleNotFound.with(func(e *Error) { e.Field = "role_id" })
		}
		return nil, err
	}
	return role, nil
}

func (s *userService) CreateUser(ctx context.Context, principal model.Principal, req *CreateUserRequest) (*model.UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.emailTaken(ctx, req.Email); err != nil {
		return nil, err
	}
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		RoleID:      &role.ID,
		IsActive:    true,
		Privileges:  role.Privileges,
	}
	user.CreatedBy = principal.AuditName()
	user.UpdatedBy = principal.AuditName()
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": role.Code, "by": principal.AuditName()}).Info("user created")
	return s.GetUserByID(ctx, user.ID)
}

func (s *userService) UpdateUser(ctx context.Context, principal model.Principal, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate(req); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if req.Email != user.Email {
		if err := s.emailTaken(ctx, req.Email); err != nil {
			return nil, err
		}
	}
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	roleChanged := user.RoleID == nil || *user.RoleID != role.ID
	user.Email = req.Email
	user.FullName = req.FullName
	user.PhoneNumber = req.PhoneNumber
	user.RoleID = &role.ID
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = principal.AuditName()
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	// a role change resets privileges to the role defaults
	if roleChanged {
		if err := s.userRepo.ReplacePrivileges(ctx, user, role.Privileges); err != nil {
			return nil, err
		}
	}
	return s.GetUserByID(ctx, userID)
}

func (s *userService) DeleteUser(ctx context.Context, principal model.Principal, userID uuid.UUID) error {
	if userID == principal.UserID {
		return ErrForbidden.with(func(e *Error) { e.Message = "you cannot delete your own account" })
	}
	if err := s.userRepo.Delete(ctx, userID, principal.AuditName()); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "by": principal.AuditName()}).Info("user deleted")
	return nil
}

func (s *userService) UpdateUserPrivileges(ctx context.Context, principal model.Principal, userID uuid.UUID, privilegeCodes []string) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	privileges, err := s.privilegeRepo.FindByCodes(ctx, privilegeCodes)
	if err != nil {
		return nil, err
	}
	if len(privileges) != len(privilegeCodes) {
		return nil, validationFailed("privileges", "unknown_code")
	}
	if err := s.userRepo.ReplacePrivileges(ctx, user, privileges); err != nil {
		return nil, err
	}
	user.UpdatedBy = principal.AuditName()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) GetRoles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.FindAll(ctx)
}

func (s *userService) GetPrivileges(ctx context.Context) ([]model.Privilege, error) {
	return s.privilegeRepo.FindAll(ctx)
}
