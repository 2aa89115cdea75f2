package service

import (
	"context"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
)

type AuthServiceInterface interface {
	Authenticate(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, p *Principal) error
	RevokeUserSession(ctx context.Context, userID uint) error
	LoginHistory(ctx context.Context, userID uint, limit int) ([]domain.LoginEvent, error)
}

type SessionValidator interface {
	ValidateClaim(ctx context.Context, claims *security.Claims) (*Principal, error)
}

type UserServiceInterface interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	List(ctx context.Context, query repository.UserListQuery) (repository.PageResult[domain.User], error)
	Create(ctx context.Context, in UserInput) (*domain.User, error)
	Update(ctx context.Context, actorID, id uint, in UserInput) (*domain.User, error)
	Deactivate(ctx context.Context, actorID, id uint) error
}

type RBACAuthorizer interface {
	HasPermission(role domain.Role, required string) bool
}
