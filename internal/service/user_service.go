package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
)

// UserInput is the admin payload for creating or editing an operator.
// Password is optional on update; nil IsActive leaves the flag unchanged.
type UserInput struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	Password string      `json:"password"`
	IsActive *bool       `json:"is_active"`
}

type UserService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
}

func NewUserService(users repository.UserRepository, sessions repository.SessionRepository) *UserService {
	return &UserService{users: users, sessions: sessions}
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, query repository.UserListQuery) (repository.PageResult[domain.User], error) {
	return s.users.ListPaged(ctx, query)
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	u := &domain.User{
		Email:    domain.NormalizeEmail(in.Email),
		Name:     strings.TrimSpace(in.Name),
		Role:     in.Role,
		IsActive: true,
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	hash, err := hashUserPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, mapUserErr(err)
	}
	return u, nil
}

// Update edits profile fields. Deactivating a user or changing their password
// also clears the stored session token.
func (s *UserService) Update(ctx context.Context, actorID, id uint, in UserInput) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, mapUserErr(err)
	}
	if strings.TrimSpace(in.Email) != "" {
		u.Email = domain.NormalizeEmail(in.Email)
	}
	if strings.TrimSpace(in.Name) != "" {
		u.Name = strings.TrimSpace(in.Name)
	}
	if in.Role != "" {
		u.Role = in.Role
	}
	revoke := false
	if in.IsActive != nil {
		if !*in.IsActive && actorID == id {
			return nil, domain.NewValidationError("is_active", "cannot deactivate your own account")
		}
		revoke = u.IsActive && !*in.IsActive
		u.IsActive = *in.IsActive
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if in.Password != "" {
		hash, err := hashUserPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
		revoke = true
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, mapUserErr(err)
	}
	if revoke {
		if err := s.sessions.ClearToken(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("clear session token: %w", err)
		}
	}
	return u, nil
}

// Deactivate is the DELETE semantics for users: rows are kept for history.
func (s *UserService) Deactivate(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return domain.NewValidationError("id", "cannot deactivate your own account")
	}
	if err := s.users.SetActive(ctx, id, false); err != nil {
		return mapUserErr(err)
	}
	if err := s.sessions.ClearToken(ctx, id); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

func hashUserPassword(pw string) (string, error) {
	hash, err := security.HashPassword(pw)
	if errors.Is(err, security.ErrPasswordTooShort) {
		return "", domain.NewValidationError("password", "must be at least 8 characters")
	}
	return hash, err
}

func mapUserErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("user: %w", ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("user email already exists: %w", ErrConflict)
	default:
		return err
	}
}
