package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

const MinPasswordLength = 8

// dummyHash is compared against when the account does not exist so that
// unknown and known emails cost the same bcrypt work.
var dummyHash = mustHash("siteops-dummy-password-for-timing")

func mustHash(pw string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}

func HashPassword(pw string) (string, error) {
	if len(pw) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// PasswordComparer checks a plaintext password against a stored hash.
type PasswordComparer interface {
	Compare(hash []byte, password string) bool
}

type BcryptComparer struct{}

func (BcryptComparer) Compare(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// VerifyPassword compares against hash, or against the dummy hash when hash is
// empty, and always performs exactly one comparison.
func VerifyPassword(c PasswordComparer, hash, password string) bool {
	if hash == "" {
		c.Compare(dummyHash, password)
		return false
	}
	return c.Compare([]byte(hash), password)
}
