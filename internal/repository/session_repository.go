package repository

import (
	"context"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"

	"gorm.io/gorm"
)

// SessionState is the slice of a user row that session validation reads on
// every authenticated request.
type SessionState struct {
	UserID       uint
	Role         domain.Role
	IsActive     bool
	SessionToken *string
}

type SessionRepository interface {
	// RotateToken replaces the user's session token in a single UPDATE.
	RotateToken(ctx context.Context, userID uint, token string, at time.Time) error
	ClearToken(ctx context.Context, userID uint) error
	State(ctx context.Context, userID uint) (*SessionState, error)
	RecordLogin(ctx context.Context, event *domain.LoginEvent) error
	ListLogins(ctx context.Context, userID uint, limit int) ([]domain.LoginEvent, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) RotateToken(ctx context.Context, userID uint, token string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"session_token": token, "last_login_at": at.UTC()})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "rotate_token", outcome(err))
	return err
}

func (r *GormSessionRepository) ClearToken(ctx context.Context, userID uint) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("session_token", gorm.Expr("NULL"))
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "clear_token", outcome(err))
	return err
}

func (r *GormSessionRepository) State(ctx context.Context, userID uint) (*SessionState, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Select("id", "role", "is_active", "session_token").
		First(&u, userID).Error
	observability.RecordRepositoryOperation(ctx, "session", "state", outcome(err))
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &SessionState{
		UserID:       u.ID,
		Role:         u.Role,
		IsActive:     u.IsActive,
		SessionToken: u.SessionToken,
	}, nil
}

func (r *GormSessionRepository) RecordLogin(ctx context.Context, event *domain.LoginEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	observability.RecordRepositoryOperation(ctx, "session", "record_login", outcome(err))
	return err
}

func (r *GormSessionRepository) ListLogins(ctx context.Context, userID uint, limit int) ([]domain.LoginEvent, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	events := []domain.LoginEvent{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	observability.RecordRepositoryOperation(ctx, "session", "list_logins", outcome(err))
	return events, err
}
