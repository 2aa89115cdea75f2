package repository

import (
	"context"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"

	"gorm.io/gorm"
)

// DashboardRepository answers the aggregate queries behind the summary
// panel. Each method is one round trip so callers may run them in parallel.
type DashboardRepository interface {
	CountActiveWorkers(ctx context.Context) (int64, error)
	CountActiveSites(ctx context.Context) (int64, error)
	CountAttendance(ctx context.Context, day time.Time, status domain.AttendanceStatus) (int64, error)
	CountOpenWork(ctx context.Context) (int64, error)
	SumExpenses(ctx context.Context, from, to time.Time) (float64, error)
	SumPayments(ctx context.Context, from, to time.Time) (float64, error)
}

type GormDashboardRepository struct{ db *gorm.DB }

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &GormDashboardRepository{db: db}
}

func (r *GormDashboardRepository) count(ctx context.Context, op string, model any, where string, args ...any) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(model).Where(where, args...).Count(&n).Error
	observability.RecordRepositoryOperation(ctx, "dashboard", op, outcome(err))
	return n, err
}

func (r *GormDashboardRepository) sum(ctx context.Context, op string, model any, column, dateColumn string, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(model).
		Select("COALESCE(SUM("+column+"), 0)").
		Where(dateColumn+" >= ? AND "+dateColumn+" <= ?", domain.NewDate(from), domain.NewDate(to)).
		Scan(&total).Error
	observability.RecordRepositoryOperation(ctx, "dashboard", op, outcome(err))
	return total, err
}

func (r *GormDashboardRepository) CountActiveWorkers(ctx context.Context) (int64, error) {
	return r.count(ctx, "count_active_workers", &domain.Worker{}, "is_active = ?", true)
}

func (r *GormDashboardRepository) CountActiveSites(ctx context.Context) (int64, error) {
	return r.count(ctx, "count_active_sites", &domain.Site{}, "is_active = ? AND status = ?", true, domain.SiteActive)
}

func (r *GormDashboardRepository) CountAttendance(ctx context.Context, day time.Time, status domain.AttendanceStatus) (int64, error) {
	return r.count(ctx, "count_attendance", &domain.AttendanceRecord{}, "date = ? AND status = ?", domain.NewDate(day), status)
}

func (r *GormDashboardRepository) CountOpenWork(ctx context.Context) (int64, error) {
	return r.count(ctx, "count_open_work", &domain.PendingWork{}, "status <> ?", domain.WorkCompleted)
}

func (r *GormDashboardRepository) SumExpenses(ctx context.Context, from, to time.Time) (float64, error) {
	return r.sum(ctx, "sum_expenses", &domain.Expense{}, "amount", "expense_date", from, to)
}

func (r *GormDashboardRepository) SumPayments(ctx context.Context, from, to time.Time) (float64, error) {
	return r.sum(ctx, "sum_payments", &domain.Payment{}, "amount", "payment_date", from, to)
}
