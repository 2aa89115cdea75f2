package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
)

// Principal is the authenticated caller after ValidateClaim.
type Principal struct {
	UserID    uint
	Role      domain.Role
	SessionID string
	Claims    *security.Claims
}

type SessionService struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
}

func NewSessionService(sessions repository.SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{sessions: sessions, logger: logger}
}

// ValidateClaim reloads the user's stored session token and requires it to
// equal the claim's sid. Store failures reject the request.
func (s *SessionService) ValidateClaim(ctx context.Context, claims *security.Claims) (*Principal, error) {
	if claims == nil {
		observability.RecordSessionCheck(ctx, "missing")
		return nil, ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		observability.RecordSessionCheck(ctx, "invalid")
		return nil, ErrUnauthenticated
	}
	state, err := s.sessions.State(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordSessionCheck(ctx, "invalidated")
			return nil, ErrSessionInvalidated
		}
		observability.RecordSessionCheck(ctx, "error")
		s.logger.ErrorContext(ctx, "session state lookup failed", "user_id", userID, "error", err)
		return nil, ErrAuthenticationFailed
	}
	if !state.IsActive || state.SessionToken == nil || !security.TokensEqual(*state.SessionToken, claims.SessionID) {
		observability.RecordSessionCheck(ctx, "invalidated")
		return nil, ErrSessionInvalidated
	}
	observability.RecordSessionCheck(ctx, "valid")
	return &Principal{
		UserID:    userID,
		Role:      state.Role,
		SessionID: claims.SessionID,
		Claims:    claims,
	}, nil
}
