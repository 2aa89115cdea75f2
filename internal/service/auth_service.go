package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
)

type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IP        string `json:"-"`
}

type LoginResult struct {
	User  *domain.User
	Claim IssuedClaim
}

type AuthOptions struct {
	LogoutRevokesSession bool
}

type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *TokenService
	comparer security.PasswordComparer
	guard    AuthAbuseGuard
	opts     AuthOptions
	logger   *slog.Logger
	now      func() time.Time
	newToken func() (string, error)
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *TokenService,
	guard AuthAbuseGuard,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	if guard == nil {
		guard = NoopAuthAbuseGuard{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		comparer: security.BcryptComparer{},
		guard:    guard,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		newToken: security.NewSessionToken,
	}
}

// WithComparer swaps the password comparer, mainly so tests can count
// hash comparisons.
func (s *AuthService) WithComparer(c security.PasswordComparer) *AuthService {
	s.comparer = c
	return s
}

// Authenticate exchanges credentials for a fresh session. The new token
// replaces the stored one, which voids every claim issued before.
func (s *AuthService) Authenticate(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if retry, err := s.guard.Check(ctx, AuthAbuseScopeLogin, email, in.IP); err != nil {
		s.logger.WarnContext(ctx, "auth abuse guard check failed", "error", err)
	} else if retry > 0 {
		observability.RecordAuthLogin(ctx, "throttled")
		return nil, &LoginThrottledError{RetryAfter: retry}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		observability.RecordAuthLogin(ctx, "error")
		s.logger.ErrorContext(ctx, "login user lookup failed", "error", err)
		return nil, ErrAuthenticationFailed
	}
	hash := ""
	if user != nil && user.IsActive {
		hash = user.PasswordHash
	}
	if !security.VerifyPassword(s.comparer, hash, in.Password) {
		if _, gerr := s.guard.RegisterFailure(ctx, AuthAbuseScopeLogin, email, in.IP); gerr != nil {
			s.logger.WarnContext(ctx, "auth abuse guard update failed", "error", gerr)
		}
		observability.RecordAuthLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	token, err := s.newToken()
	if err != nil {
		return nil, s.loginFailure(ctx, user.ID, "generate session token", err)
	}
	if err := s.sessions.RotateToken(ctx, user.ID, token, s.now()); err != nil {
		return nil, s.loginFailure(ctx, user.ID, "persist session token", err)
	}
	claim, err := s.tokens.Issue(user.ID, user.Role, token)
	if err != nil {
		return nil, s.loginFailure(ctx, user.ID, "sign session claim", err)
	}

	if err := s.sessions.RecordLogin(ctx, &domain.LoginEvent{UserID: user.ID, UserAgent: in.UserAgent, IP: in.IP}); err != nil {
		s.logger.WarnContext(ctx, "login event not recorded", "user_id", user.ID, "error", err)
	}
	if err := s.guard.Reset(ctx, AuthAbuseScopeLogin, email, in.IP); err != nil {
		s.logger.WarnContext(ctx, "auth abuse guard reset failed", "error", err)
	}
	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{User: user, Claim: claim}, nil
}

func (s *AuthService) loginFailure(ctx context.Context, userID uint, step string, err error) error {
	observability.RecordAuthLogin(ctx, "error")
	s.logger.ErrorContext(ctx, "login failed", "step", step, "user_id", userID, "error", err)
	return ErrAuthenticationFailed
}

// Logout ends the caller's session. The stored token is only cleared when
// AuthOptions.LogoutRevokesSession is set; the cookie is always dropped by
// the handler.
func (s *AuthService) Logout(ctx context.Context, p *Principal) error {
	observability.RecordAuthLogout(ctx, "success")
	if p == nil || !s.opts.LogoutRevokesSession {
		return nil
	}
	if err := s.sessions.ClearToken(ctx, p.UserID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("clear session token: %w", err)
	}
	observability.RecordSessionRevocation(ctx, "logout")
	return nil
}

func (s *AuthService) RevokeUserSession(ctx context.Context, userID uint) error {
	if err := s.sessions.ClearToken(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("revoke session: %w", ErrNotFound)
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	observability.RecordSessionRevocation(ctx, "admin")
	return nil
}

func (s *AuthService) LoginHistory(ctx context.Context, userID uint, limit int) ([]domain.LoginEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.sessions.ListLogins(ctx, userID, limit)
}
