package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSupervisor:
		return true
	default:
		return false
	}
}

// User is a dashboard operator. SessionToken holds the only session value
// that claims may carry; replacing it voids every claim issued before.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Role         Role       `gorm:"size:32;not null" json:"role"`
	SessionToken *string    `gorm:"size:128" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	v := newValidator()
	v.check(strings.Contains(u.Email, "@") && len(u.Email) <= 255, "email", "must be a valid email address")
	v.check(strings.TrimSpace(u.Name) != "", "name", "is required")
	v.check(u.Role.Valid(), "role", "must be one of admin, manager, supervisor")
	return v.err()
}
