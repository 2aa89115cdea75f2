package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrSessionExpired       = errors.New("session expired")
	ErrSessionInvalidated   = errors.New("session invalidated: logged in from another device")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrStorageDisabled      = errors.New("object storage is not configured")
)

// LoginThrottledError is returned while the login abuse guard holds a
// cooldown for the caller's email or IP.
type LoginThrottledError struct {
	RetryAfter time.Duration
}

func (e *LoginThrottledError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %s", e.RetryAfter.Round(time.Second))
}
