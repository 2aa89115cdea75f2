package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"
)

func parsePageRequest(q url.Values) (repository.PageRequest, error) {
	page, err := optionalInt(q, "page")
	if err != nil {
		return repository.PageRequest{}, err
	}
	limit, err := optionalInt(q, "limit")
	if err != nil {
		return repository.PageRequest{}, err
	}
	return repository.PageRequest{Page: page, PageSize: limit}, nil
}

// parseListQuery reads the filters shared by every entity list and export.
// "to" is inclusive of the whole day.
func parseListQuery(q url.Values) (repository.ListQuery, error) {
	page, err := parsePageRequest(q)
	if err != nil {
		return repository.ListQuery{}, err
	}
	out := repository.ListQuery{
		PageRequest: page,
		Search:      strings.TrimSpace(q.Get("search")),
		Status:      strings.TrimSpace(q.Get("status")),
		SortBy:      strings.TrimSpace(q.Get("sort_by")),
		SortOrder:   strings.TrimSpace(q.Get("sort_order")),
	}
	if out.SiteID, err = optionalID(q, "site_id"); err != nil {
		return repository.ListQuery{}, err
	}
	if out.WorkerID, err = optionalID(q, "worker_id"); err != nil {
		return repository.ListQuery{}, err
	}
	if out.From, err = optionalDate(q, "from"); err != nil {
		return repository.ListQuery{}, err
	}
	if out.To, err = optionalDate(q, "to"); err != nil {
		return repository.ListQuery{}, err
	}
	if !out.To.IsZero() {
		out.To = out.To.Add(24*time.Hour - time.Nanosecond)
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		return repository.ListQuery{}, domain.NewValidationError("to", "must not be before from")
	}
	return out, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return v, nil
}

func optionalID(q url.Values, key string) (uint, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be a positive integer")
	}
	return uint(v), nil
}

func optionalDate(q url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(key, "must be a date in YYYY-MM-DD form")
	}
	return d.Time, nil
}
