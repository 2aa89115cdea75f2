package service

import (
	"context"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"

	"golang.org/x/sync/errgroup"
)

type DashboardSummary struct {
	ActiveWorkers   int64     `json:"active_workers"`
	ActiveSites     int64     `json:"active_sites"`
	PresentToday    int64     `json:"present_today"`
	AbsentToday     int64     `json:"absent_today"`
	OpenPendingWork int64     `json:"open_pending_work"`
	MonthExpenses   float64   `json:"month_expenses"`
	MonthPayments   float64   `json:"month_payments"`
	GeneratedAt     time.Time `json:"generated_at"`
}

type DashboardService struct {
	repo repository.DashboardRepository
	now  func() time.Time
}

func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// Summary runs the aggregate queries concurrently; the first failure cancels
// the rest.
func (s *DashboardService) Summary(ctx context.Context) (DashboardSummary, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var out DashboardSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.ActiveWorkers, err = s.repo.CountActiveWorkers(gctx); return })
	g.Go(func() (err error) { out.ActiveSites, err = s.repo.CountActiveSites(gctx); return })
	g.Go(func() (err error) {
		out.PresentToday, err = s.repo.CountAttendance(gctx, today, domain.AttendancePresent)
		return
	})
	g.Go(func() (err error) {
		out.AbsentToday, err = s.repo.CountAttendance(gctx, today, domain.AttendanceAbsent)
		return
	})
	g.Go(func() (err error) { out.OpenPendingWork, err = s.repo.CountOpenWork(gctx); return })
	g.Go(func() (err error) { out.MonthExpenses, err = s.repo.SumExpenses(gctx, monthStart, today); return })
	g.Go(func() (err error) { out.MonthPayments, err = s.repo.SumPayments(gctx, monthStart, today); return })
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}
	out.GeneratedAt = now
	return out, nil
}
