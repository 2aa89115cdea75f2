package domain

import (
	"math"
	"sort"
	"strings"
)

// ValidationError carries per-field messages for a rejected record.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

type validator struct {
	fields map[string]string
}

func newValidator() *validator {
	return &validator{fields: map[string]string{}}
}

func (v *validator) check(ok bool, field, message string) {
	if ok {
		return
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

func (v *validator) required(value, field string) {
	v.check(strings.TrimSpace(value) != "", field, "is required")
}

func (v *validator) oneOf(value, field string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.check(false, field, "must be one of "+strings.Join(allowed, ", "))
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
