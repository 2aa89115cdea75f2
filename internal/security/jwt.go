package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionTokenType = "session"

var (
	ErrClaimExpired = errors.New("session claim expired")
	ErrClaimInvalid = errors.New("session claim invalid")
)

// Claims is the signed session claim carried in the session cookie. SessionID
// is a snapshot of the user's server-side session token at issue time.
type Claims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrClaimInvalid)
	}
	return uint(id), nil
}

// IssuedAtTime returns the claim's iat, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
	now      func() time.Time
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
		now:      time.Now,
	}
}

// WithClock replaces the manager's time source.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) SignSession(userID uint, role, sessionID string, ttl time.Duration) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		TokenType: sessionTokenType,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session claim: %w", err)
	}
	return signed, claims, nil
}

// ParseSession verifies signature, issuer, audience and expiry. An expired
// claim yields ErrClaimExpired; every other failure yields ErrClaimInvalid.
func (m *JWTManager) ParseSession(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrClaimExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrClaimInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrClaimInvalid
	}
	if claims.TokenType != sessionTokenType {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrClaimInvalid, claims.TokenType)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sid", ErrClaimInvalid)
	}
	return claims, nil
}
