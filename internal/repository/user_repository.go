package repository

import (
	"context"
	"strings"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"

	"gorm.io/gorm"
)

type UserListQuery struct {
	PageRequest
	SortBy    string
	SortOrder string
	Search    string
	Status    string
	Role      string
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	SetActive(ctx context.Context, id uint, active bool) error
	ListPaged(ctx context.Context, query UserListQuery) (PageResult[domain.User], error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", outcome(err))
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&u).Error
	observability.RecordRepositoryOperation(ctx, "user", "find_by_email", outcome(err))
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	err := r.db.WithContext(ctx).Create(user).Error
	observability.RecordRepositoryOperation(ctx, "user", "create", outcome(err))
	return translate(err, ErrUserNotFound)
}

// Update writes profile columns only. The session token is owned by
// SessionRepository and is never touched here, so an edit racing a login
// cannot restore a stale token.
func (r *GormUserRepository) Update(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Select("email", "name", "role", "is_active", "password_hash").
		Updates(user)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "update", outcome(err))
	return translate(err, ErrUserNotFound)
}

func (r *GormUserRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("is_active", active)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "set_active", outcome(err))
	return err
}

var userSortColumns = map[string]string{
	"email":      "users.email",
	"name":       "users.name",
	"role":       "users.role",
	"created_at": "users.created_at",
}

func (r *GormUserRepository) ListPaged(ctx context.Context, query UserListQuery) (PageResult[domain.User], error) {
	base := r.db.WithContext(ctx).Model(&domain.User{})
	if term := strings.ToLower(strings.TrimSpace(query.Search)); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		base = base.Where("(LOWER(users.email) LIKE ? ESCAPE '\\' OR LOWER(users.name) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	switch query.Status {
	case "active":
		base = base.Where("users.is_active = ?", true)
	case "inactive":
		base = base.Where("users.is_active = ?", false)
	}
	if query.Role != "" {
		base = base.Where("users.role = ?", query.Role)
	}

	order := "desc"
	if strings.EqualFold(query.SortOrder, "asc") {
		order = "asc"
	}
	result, err := fetchPage[domain.User](base, func(tx *gorm.DB) *gorm.DB {
		if col, ok := userSortColumns[query.SortBy]; ok {
			tx = tx.Order(col + " " + order)
		}
		return tx.Order("users.id " + order)
	}, query.PageRequest)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "user", "list_paged", "success")
	return result, nil
}
