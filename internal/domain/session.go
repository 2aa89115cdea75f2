package domain

import "time"

// LoginEvent records a successful credential exchange. The newest event for a
// user identifies the device that holds the live session.
type LoginEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	UserAgent string    `gorm:"size:512" json:"user_agent"`
	IP        string    `gorm:"size:64" json:"ip"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

type SessionStatus string

const (
	SessionValid       SessionStatus = "valid"
	SessionMissing     SessionStatus = "missing"
	SessionExpired     SessionStatus = "expired"
	SessionInvalidated SessionStatus = "invalidated"
)
