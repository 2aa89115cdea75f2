package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

// badRequestError marks a malformed request that never reached a service.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// writeError maps service errors onto the response envelope. Anything
// unrecognised is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		verr      *domain.ValidationError
		breq      *badRequestError
		throttled *service.LoginThrottledError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.As(err, &breq):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", breq.msg, nil)
	case errors.As(err, &maxErr):
		response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", strconv.Itoa(max(int(throttled.RetryAfter.Seconds()+0.999), 1)))
		response.Error(w, r, http.StatusTooManyRequests, "LOGIN_THROTTLED", throttled.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, service.ErrSessionInvalidated):
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALIDATED", "Session invalidated: logged in from another device", nil)
	case errors.Is(err, service.ErrSessionExpired):
		response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired", nil)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.Is(err, service.ErrConflict):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "record conflicts with an existing record", nil)
	case errors.Is(err, service.ErrStorageDisabled):
		response.Error(w, r, http.StatusServiceUnavailable, "STORAGE_DISABLED", "attachment storage is not configured", nil)
	case errors.Is(err, service.ErrAuthenticationFailed):
		logger.ErrorContext(r.Context(), "authentication failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "AUTHENTICATION_FAILED", "authentication failed", nil)
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, badRequest("read body: %v", err)
	}
	return body, nil
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	return unmarshalBody(body, dst)
}

func unmarshalBody(body []byte, dst any) error {
	if len(body) == 0 {
		return badRequest("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return uint(id), nil
}
