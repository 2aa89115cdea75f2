package service

import (
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/security"
)

type IssuedClaim struct {
	Token     string
	ExpiresAt time.Time
	Claims    *security.Claims
}

// TokenService mints session claims. Claims expire MaxAge after issue;
// claims older than UpdateAge are reissued with the same sid on activity.
type TokenService struct {
	jwtMgr    *security.JWTManager
	maxAge    time.Duration
	updateAge time.Duration
	now       func() time.Time
}

func NewTokenService(jwtMgr *security.JWTManager, maxAge, updateAge time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, maxAge: maxAge, updateAge: updateAge, now: time.Now}
}

func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	s.jwtMgr.WithClock(now)
	return s
}

func (s *TokenService) MaxAge() time.Duration { return s.maxAge }

func (s *TokenService) Issue(userID uint, role domain.Role, sessionToken string) (IssuedClaim, error) {
	raw, claims, err := s.jwtMgr.SignSession(userID, string(role), sessionToken, s.maxAge)
	if err != nil {
		return IssuedClaim{}, err
	}
	return IssuedClaim{Token: raw, ExpiresAt: claims.ExpiresAt.Time, Claims: claims}, nil
}

// Parse maps claim failures onto ErrSessionExpired or ErrUnauthenticated.
func (s *TokenService) Parse(raw string) (*security.Claims, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.jwtMgr.ParseSession(raw)
	if err != nil {
		if err == security.ErrClaimExpired {
			return nil, ErrSessionExpired
		}
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

func (s *TokenService) NeedsRefresh(claims *security.Claims) bool {
	if claims == nil || s.updateAge <= 0 {
		return false
	}
	return s.now().Sub(claims.IssuedAtTime()) >= s.updateAge
}

// Refresh reissues claims for principal, keeping the sid and role it was
// validated with.
func (s *TokenService) Refresh(p *Principal) (IssuedClaim, error) {
	return s.Issue(p.UserID, p.Role, p.SessionID)
}
