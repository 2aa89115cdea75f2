package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
)

// ExportLimit caps the rows a CSV export reads in one request.
const ExportLimit = 10000

type EntityCacheOptions struct {
	Lists       ListCacheStore
	NotFound    NegativeLookupCacheStore
	ListTTL     time.Duration
	NotFoundTTL time.Duration
}

func (o EntityCacheOptions) withDefaults() EntityCacheOptions {
	if o.Lists == nil {
		o.Lists = NewNoopListCacheStore()
	}
	if o.NotFound == nil {
		o.NotFound = NewNoopNegativeLookupCacheStore()
	}
	return o
}

// EntityService runs the shared CRUD flow for one resource: derive, validate,
// check references, persist, then invalidate cached lists of this resource and
// of every resource whose rows embed it.
type EntityService[T any, PT interface {
	*T
	domain.Record
}] struct {
	resource string
	repo     repository.EntityRepository[T]
	refs     repository.ReferenceChecker
	cache    EntityCacheOptions
	related  []string
	logger   *slog.Logger
	now      func() time.Time
}

func NewEntityService[T any, PT interface {
	*T
	domain.Record
}](resource string, repo repository.EntityRepository[T], refs repository.ReferenceChecker, cache EntityCacheOptions, related []string, logger *slog.Logger) *EntityService[T, PT] {
	return &EntityService[T, PT]{
		resource: resource,
		repo:     repo,
		refs:     refs,
		cache:    cache.withDefaults(),
		related:  related,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *EntityService[T, PT]) Resource() string { return s.resource }

func (s *EntityService[T, PT]) namespace() string { return s.repo.Spec().Name }

func (s *EntityService[T, PT]) Get(ctx context.Context, id uint) (*T, error) {
	key := strconv.FormatUint(uint64(id), 10)
	if missing, err := s.cache.NotFound.Get(ctx, s.namespace()+".not_found", key); err == nil && missing {
		observability.RecordCacheEvent(ctx, "negative_lookup", "hit")
		return nil, fmt.Errorf("%s %d: %w", s.namespace(), id, ErrNotFound)
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if serr := s.cache.NotFound.Set(ctx, s.namespace()+".not_found", key, s.cache.NotFoundTTL); serr != nil {
				s.logger.WarnContext(ctx, "negative lookup cache write failed", "resource", s.resource, "error", serr)
			}
		}
		return nil, s.mapErr(err)
	}
	return rec, nil
}

func (s *EntityService[T, PT]) List(ctx context.Context, q repository.ListQuery) (repository.PageResult[T], error) {
	key, kerr := listCacheKey(q)
	if kerr == nil {
		if payload, ok, err := s.cache.Lists.Get(ctx, s.namespace(), key); err == nil && ok {
			var cached repository.PageResult[T]
			if json.Unmarshal(payload, &cached) == nil {
				observability.RecordCacheEvent(ctx, "list", "hit")
				return cached, nil
			}
		}
		observability.RecordCacheEvent(ctx, "list", "miss")
	}
	page, err := s.repo.List(ctx, q)
	if err != nil {
		return repository.PageResult[T]{}, err
	}
	if kerr == nil {
		if payload, err := json.Marshal(page); err == nil {
			if err := s.cache.Lists.Set(ctx, s.namespace(), key, payload, s.cache.ListTTL); err != nil {
				s.logger.WarnContext(ctx, "list cache write failed", "resource", s.resource, "error", err)
			}
		}
	}
	return page, nil
}

// Export reads every row matching q, newest first, for spreadsheet export.
func (s *EntityService[T, PT]) Export(ctx context.Context, q repository.ListQuery) ([]T, error) {
	return s.repo.ListAll(ctx, q, ExportLimit)
}

func (s *EntityService[T, PT]) Create(ctx context.Context, rec PT) (PT, error) {
	*rec.Base() = domain.Model{}
	if err := s.prepare(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, (*T)(rec)); err != nil {
		return nil, s.mapErr(err)
	}
	s.afterWrite(ctx, "create")
	return s.reload(ctx, rec)
}

// Update loads the stored row, lets apply overwrite it with the client
// payload and re-runs the full derive/validate pass on the merged record, so
// cross-field rules hold whichever fields the payload touched.
func (s *EntityService[T, PT]) Update(ctx context.Context, id uint, apply func(PT) error) (PT, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	rec := PT(existing)
	base := *rec.Base()
	if err := apply(rec); err != nil {
		return nil, err
	}
	*rec.Base() = base
	if err := s.prepare(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, (*T)(rec)); err != nil {
		return nil, s.mapErr(err)
	}
	s.afterWrite(ctx, "update")
	return s.reload(ctx, rec)
}

func (s *EntityService[T, PT]) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapErr(err)
	}
	s.afterWrite(ctx, "delete")
	return nil
}

func (s *EntityService[T, PT]) prepare(ctx context.Context, rec PT) error {
	rec.Prepare(s.now())
	if err := rec.Validate(); err != nil {
		return err
	}
	ref, ok := any(rec).(domain.Referencer)
	if !ok || s.refs == nil {
		return nil
	}
	for _, r := range ref.References() {
		exists, err := s.refs.Exists(ctx, r.Model, r.ID)
		if err != nil {
			return fmt.Errorf("check %s: %w", r.Field, err)
		}
		if !exists {
			return domain.NewValidationError(r.Field, "references a missing record")
		}
	}
	return nil
}

func (s *EntityService[T, PT]) reload(ctx context.Context, rec PT) (PT, error) {
	fresh, err := s.repo.FindByID(ctx, rec.GetID())
	if err != nil {
		s.logger.WarnContext(ctx, "reload after write failed", "resource", s.resource, "id", rec.GetID(), "error", err)
		return rec, nil
	}
	return PT(fresh), nil
}

func (s *EntityService[T, PT]) afterWrite(ctx context.Context, action string) {
	observability.RecordMutation(ctx, s.resource, action)
	namespaces := append([]string{s.namespace()}, s.related...)
	for _, ns := range namespaces {
		if err := s.cache.Lists.InvalidateNamespace(ctx, ns); err != nil {
			s.logger.WarnContext(ctx, "list cache invalidation failed", "namespace", ns, "error", err)
		}
	}
	if err := s.cache.NotFound.InvalidateNamespace(ctx, s.namespace()+".not_found"); err != nil {
		s.logger.WarnContext(ctx, "negative lookup cache invalidation failed", "resource", s.resource, "error", err)
	}
}

func (s *EntityService[T, PT]) mapErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", s.namespace(), ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w", s.namespace(), ErrConflict)
	default:
		return err
	}
}

func listCacheKey(q repository.ListQuery) (string, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return hashToken(string(raw)), nil
}
