package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/observability"

	"gorm.io/gorm"
)

// ListQuery carries the filters shared by every entity list endpoint. Zero
// values mean "no filter".
type ListQuery struct {
	PageRequest
	Search    string
	SiteID    uint
	WorkerID  uint
	Status    string
	From      time.Time
	To        time.Time
	SortBy    string
	SortOrder string
}

// EntitySpec describes how one table answers ListQuery filters.
type EntitySpec struct {
	Name          string
	DateColumn    string
	SearchColumns []string
	SiteColumns   []string
	WorkerColumn  string
	StatusColumn  string
	// ActiveColumn backs DELETE as a soft disable and answers
	// status=active|inactive when the table has no StatusColumn.
	ActiveColumn string
	SortColumns  []string
	DefaultSort  string
	Preloads     []string
	// Children are has-many associations deleted with the parent.
	Children []string
	// BeforeSave runs inside the write transaction ahead of the insert or
	// update and may reject the record.
	BeforeSave func(tx *gorm.DB, record any) error
	AfterSave  func(tx *gorm.DB, record any) error
}

type EntityRepository[T any] interface {
	FindByID(ctx context.Context, id uint) (*T, error)
	List(ctx context.Context, query ListQuery) (PageResult[T], error)
	ListAll(ctx context.Context, query ListQuery, limit int) ([]T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	Delete(ctx context.Context, id uint) error
	Spec() EntitySpec
}

type GormEntityRepository[T any] struct {
	db   *gorm.DB
	spec EntitySpec
}

func NewEntityRepository[T any](db *gorm.DB, spec EntitySpec) EntityRepository[T] {
	return &GormEntityRepository[T]{db: db, spec: spec}
}

func (r *GormEntityRepository[T]) Spec() EntitySpec { return r.spec }

func (r *GormEntityRepository[T]) record(ctx context.Context, op string, err error) {
	observability.RecordRepositoryOperation(ctx, r.spec.Name, op, outcome(err))
}

func (r *GormEntityRepository[T]) withPreloads(tx *gorm.DB) *gorm.DB {
	for _, p := range r.spec.Preloads {
		tx = tx.Preload(p)
	}
	return tx
}

func (r *GormEntityRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var rec T
	err := r.withPreloads(r.db.WithContext(ctx)).First(&rec, id).Error
	r.record(ctx, "find_by_id", err)
	if err != nil {
		return nil, translate(err, ErrNotFound)
	}
	return &rec, nil
}

func (r *GormEntityRepository[T]) List(ctx context.Context, query ListQuery) (PageResult[T], error) {
	base := r.filtered(r.db.WithContext(ctx).Model(new(T)), query)
	result, err := fetchPage[T](base, func(tx *gorm.DB) *gorm.DB {
		return r.ordered(r.withPreloads(tx), query)
	}, query.PageRequest)
	r.record(ctx, "list_paged", err)
	return result, err
}

// ListAll returns up to limit filtered rows without paging, for exports.
func (r *GormEntityRepository[T]) ListAll(ctx context.Context, query ListQuery, limit int) ([]T, error) {
	items := []T{}
	tx := r.ordered(r.withPreloads(r.filtered(r.db.WithContext(ctx).Model(new(T)), query)), query)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	err := tx.Find(&items).Error
	r.record(ctx, "list_all", err)
	return items, err
}

func (r *GormEntityRepository[T]) Create(ctx context.Context, record *T) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.beforeSave(tx, record); err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return r.afterSave(tx, record)
	})
	r.record(ctx, "create", err)
	return translate(err, ErrNotFound)
}

func (r *GormEntityRepository[T]) Update(ctx context.Context, record *T) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.beforeSave(tx, record); err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(record).Error; err != nil {
			return err
		}
		return r.afterSave(tx, record)
	})
	r.record(ctx, "update", err)
	return translate(err, ErrNotFound)
}

func (r *GormEntityRepository[T]) beforeSave(tx *gorm.DB, record *T) error {
	if r.spec.BeforeSave == nil {
		return nil
	}
	return r.spec.BeforeSave(tx, record)
}

func (r *GormEntityRepository[T]) afterSave(tx *gorm.DB, record *T) error {
	if r.spec.AfterSave == nil {
		return nil
	}
	return r.spec.AfterSave(tx, record)
}

// Delete soft-disables rows of tables with an ActiveColumn and removes the
// rest together with their Children.
func (r *GormEntityRepository[T]) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	var res *gorm.DB
	if r.spec.ActiveColumn != "" {
		res = db.Model(new(T)).Where("id = ?", id).Update(r.spec.ActiveColumn, false)
	} else {
		var rec T
		if err := db.First(&rec, id).Error; err != nil {
			r.record(ctx, "delete", err)
			return translate(err, ErrNotFound)
		}
		if len(r.spec.Children) > 0 {
			res = db.Select(r.spec.Children).Delete(&rec)
		} else {
			res = db.Delete(&rec)
		}
	}
	if res.Error != nil {
		r.record(ctx, "delete", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.record(ctx, "delete", ErrNotFound)
		return ErrNotFound
	}
	r.record(ctx, "delete", nil)
	return nil
}

func (r *GormEntityRepository[T]) filtered(tx *gorm.DB, q ListQuery) *gorm.DB {
	s := r.spec
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" && len(s.SearchColumns) > 0 {
		pattern := "%" + escapeLike(term) + "%"
		clauses := make([]string, 0, len(s.SearchColumns))
		args := make([]any, 0, len(s.SearchColumns))
		for _, col := range s.SearchColumns {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", col))
			args = append(args, pattern)
		}
		tx = tx.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	if q.SiteID != 0 && len(s.SiteColumns) > 0 {
		clauses := make([]string, 0, len(s.SiteColumns))
		args := make([]any, 0, len(s.SiteColumns))
		for _, col := range s.SiteColumns {
			clauses = append(clauses, col+" = ?")
			args = append(args, q.SiteID)
		}
		tx = tx.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	if q.WorkerID != 0 && s.WorkerColumn != "" {
		tx = tx.Where(s.WorkerColumn+" = ?", q.WorkerID)
	}
	if status := strings.TrimSpace(q.Status); status != "" {
		switch {
		case s.StatusColumn != "":
			tx = tx.Where(s.StatusColumn+" = ?", status)
		case s.ActiveColumn != "" && (status == "active" || status == "inactive"):
			tx = tx.Where(s.ActiveColumn+" = ?", status == "active")
		}
	}
	if s.DateColumn != "" {
		if !q.From.IsZero() {
			tx = tx.Where(s.DateColumn+" >= ?", q.From)
		}
		if !q.To.IsZero() {
			tx = tx.Where(s.DateColumn+" <= ?", q.To)
		}
	}
	return tx
}

func (r *GormEntityRepository[T]) ordered(tx *gorm.DB, q ListQuery) *gorm.DB {
	order := "desc"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "asc"
	}
	column := r.spec.DefaultSort
	for _, allowed := range r.spec.SortColumns {
		if q.SortBy == allowed {
			column = allowed
			break
		}
	}
	if column != "" && column != "id" {
		tx = tx.Order(column + " " + order)
	}
	return tx.Order("id " + order)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ReferenceChecker reports whether a referenced row exists.
type ReferenceChecker interface {
	Exists(ctx context.Context, model any, id uint) (bool, error)
}

type GormReferenceChecker struct{ db *gorm.DB }

func NewReferenceChecker(db *gorm.DB) ReferenceChecker { return &GormReferenceChecker{db: db} }

func (c *GormReferenceChecker) Exists(ctx context.Context, model any, id uint) (bool, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(model).Where("id = ?", id).Limit(1).Count(&n).Error
	observability.RecordRepositoryOperation(ctx, "reference", "exists", outcome(err))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
