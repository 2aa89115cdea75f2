package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record conflicts with an existing record")
	ErrUserNotFound = errors.New("user not found")
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}
