package service

import (
	"log/slog"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"
)

// dependentLists names the list caches that embed a resource through
// preloads and must be dropped when it changes.
var dependentLists = map[string][]string{
	repository.WorkerSpec.Name: {
		repository.AttendanceSpec.Name, repository.OvertimeSpec.Name,
		repository.PaymentSpec.Name, repository.PendingWorkSpec.Name,
	},
	repository.SiteSpec.Name: {
		repository.WorkerSpec.Name, repository.AttendanceSpec.Name, repository.MaterialSpec.Name,
		repository.DispatchSpec.Name, repository.OvertimeSpec.Name, repository.ExpenseSpec.Name,
		repository.PendingWorkSpec.Name, repository.WorkUpdateSpec.Name,
	},
}

type Entities struct {
	Workers     *EntityService[domain.Worker, *domain.Worker]
	Sites       *EntityService[domain.Site, *domain.Site]
	Attendance  *EntityService[domain.AttendanceRecord, *domain.AttendanceRecord]
	Materials   *EntityService[domain.MaterialRecord, *domain.MaterialRecord]
	Dispatch    *EntityService[domain.DispatchRecord, *domain.DispatchRecord]
	Overtime    *EntityService[domain.Overtime, *domain.Overtime]
	Payments    *EntityService[domain.Payment, *domain.Payment]
	Expenses    *EntityService[domain.Expense, *domain.Expense]
	PendingWork *EntityService[domain.PendingWork, *domain.PendingWork]
	WorkUpdates *EntityService[domain.WorkUpdate, *domain.WorkUpdate]
}

func NewEntities(repos *repository.EntityRepositories, refs repository.ReferenceChecker, cache EntityCacheOptions, logger *slog.Logger) *Entities {
	return &Entities{
		Workers:     newEntity[domain.Worker](domain.ResourceWorkers, repos.Workers, refs, cache, logger),
		Sites:       newEntity[domain.Site](domain.ResourceSites, repos.Sites, refs, cache, logger),
		Attendance:  newEntity[domain.AttendanceRecord](domain.ResourceAttendance, repos.Attendance, refs, cache, logger),
		Materials:   newEntity[domain.MaterialRecord](domain.ResourceMaterials, repos.Materials, refs, cache, logger),
		Dispatch:    newEntity[domain.DispatchRecord](domain.ResourceDispatch, repos.Dispatch, refs, cache, logger),
		Overtime:    newEntity[domain.Overtime](domain.ResourceOvertime, repos.Overtime, refs, cache, logger),
		Payments:    newEntity[domain.Payment](domain.ResourcePayments, repos.Payments, refs, cache, logger),
		Expenses:    newEntity[domain.Expense](domain.ResourceExpenses, repos.Expenses, refs, cache, logger),
		PendingWork: newEntity[domain.PendingWork](domain.ResourcePendingWork, repos.PendingWork, refs, cache, logger),
		WorkUpdates: newEntity[domain.WorkUpdate](domain.ResourceWorkUpdates, repos.WorkUpdates, refs, cache, logger),
	}
}

func newEntity[T any, PT interface {
	*T
	domain.Record
}](resource string, repo repository.EntityRepository[T], refs repository.ReferenceChecker, cache EntityCacheOptions, logger *slog.Logger) *EntityService[T, PT] {
	return NewEntityService[T, PT](resource, repo, refs, cache, dependentLists[repo.Spec().Name], logger)
}
