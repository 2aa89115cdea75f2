package repository

import (
	"fmt"

	"github.com/sandeepkv93/siteops-service/internal/domain"

	"gorm.io/gorm"
)

var (
	WorkerSpec = EntitySpec{
		Name:          "worker",
		SearchColumns: []string{"name", "phone", "trade"},
		SiteColumns:   []string{"site_id"},
		ActiveColumn:  "is_active",
		SortColumns:   []string{"name", "daily_wage", "join_date", "created_at"},
		DefaultSort:   "name",
		Preloads:      []string{"Site"},
	}
	SiteSpec = EntitySpec{
		Name:          "site",
		DateColumn:    "start_date",
		SearchColumns: []string{"name", "location", "client_name"},
		StatusColumn:  "status",
		ActiveColumn:  "is_active",
		SortColumns:   []string{"name", "start_date", "budget", "created_at"},
		DefaultSort:   "name",
	}
	AttendanceSpec = EntitySpec{
		Name:          "attendance",
		DateColumn:    "date",
		SearchColumns: []string{"notes"},
		SiteColumns:   []string{"site_id"},
		WorkerColumn:  "worker_id",
		StatusColumn:  "status",
		SortColumns:   []string{"date", "hours_worked", "created_at"},
		DefaultSort:   "date",
		Preloads:      []string{"Worker", "Site"},
	}
	MaterialSpec = EntitySpec{
		Name:          "material",
		DateColumn:    "date",
		SearchColumns: []string{"name", "supplier"},
		SiteColumns:   []string{"site_id"},
		StatusColumn:  "type",
		SortColumns:   []string{"date", "name", "quantity", "total_cost", "created_at"},
		DefaultSort:   "date",
		Preloads:      []string{"Site"},
	}
	DispatchSpec = EntitySpec{
		Name:          "dispatch",
		DateColumn:    "dispatch_date",
		SearchColumns: []string{"material_name", "vehicle_number", "notes"},
		SiteColumns:   []string{"from_site_id", "to_site_id"},
		StatusColumn:  "status",
		SortColumns:   []string{"dispatch_date", "material_name", "quantity", "created_at"},
		DefaultSort:   "dispatch_date",
		Preloads:      []string{"FromSite", "ToSite"},
	}
	OvertimeSpec = EntitySpec{
		Name:          "overtime",
		DateColumn:    "date",
		SearchColumns: []string{"notes"},
		SiteColumns:   []string{"site_id"},
		WorkerColumn:  "worker_id",
		StatusColumn:  "status",
		SortColumns:   []string{"date", "hours", "total_amount", "created_at"},
		DefaultSort:   "date",
		Preloads:      []string{"Worker", "Site"},
	}
	PaymentSpec = EntitySpec{
		Name:          "payment",
		DateColumn:    "payment_date",
		SearchColumns: []string{"reference", "notes"},
		WorkerColumn:  "worker_id",
		StatusColumn:  "type",
		SortColumns:   []string{"payment_date", "amount", "created_at"},
		DefaultSort:   "payment_date",
		Preloads:      []string{"Worker"},
	}
	ExpenseSpec = EntitySpec{
		Name:          "expense",
		DateColumn:    "expense_date",
		SearchColumns: []string{"category", "description", "paid_to"},
		SiteColumns:   []string{"site_id"},
		StatusColumn:  "category",
		SortColumns:   []string{"expense_date", "amount", "category", "created_at"},
		DefaultSort:   "expense_date",
		Preloads:      []string{"Site"},
	}
	PendingWorkSpec = EntitySpec{
		Name:          "pending_work",
		DateColumn:    "due_date",
		SearchColumns: []string{"title", "description"},
		SiteColumns:   []string{"site_id"},
		WorkerColumn:  "assigned_worker_id",
		StatusColumn:  "status",
		SortColumns:   []string{"due_date", "priority", "title", "created_at"},
		DefaultSort:   "created_at",
		Preloads:      []string{"Site", "AssignedWorker"},
	}
	WorkUpdateSpec = EntitySpec{
		Name:          "work_update",
		DateColumn:    "update_date",
		SearchColumns: []string{"title", "description"},
		SiteColumns:   []string{"site_id"},
		SortColumns:   []string{"update_date", "progress_percent", "created_at"},
		DefaultSort:   "update_date",
		Preloads:      []string{"Site", "Attachments"},
		Children:      []string{"Attachments"},
		BeforeSave:    checkWorkUpdateAttachments,
		AfterSave:     pruneWorkUpdateAttachments,
	}
)

// checkWorkUpdateAttachments rejects attachment ids that belong to another
// work update, so an upsert can never move a row between parents.
func checkWorkUpdateAttachments(tx *gorm.DB, record any) error {
	wu, ok := record.(*domain.WorkUpdate)
	if !ok {
		return nil
	}
	claimed := make([]uint, 0, len(wu.Attachments))
	for i := range wu.Attachments {
		wu.Attachments[i].WorkUpdateID = wu.ID
		if id := wu.Attachments[i].ID; id != 0 {
			claimed = append(claimed, id)
		}
	}
	if len(claimed) == 0 {
		return nil
	}
	var owned []uint
	if wu.ID != 0 {
		if err := tx.Model(&domain.WorkUpdateAttachment{}).
			Where("work_update_id = ? AND id IN ?", wu.ID, claimed).
			Pluck("id", &owned).Error; err != nil {
			return err
		}
	}
	mine := make(map[uint]struct{}, len(owned))
	for _, id := range owned {
		mine[id] = struct{}{}
	}
	for _, id := range claimed {
		if _, ok := mine[id]; !ok {
			return domain.NewValidationError("attachments", fmt.Sprintf("attachment %d does not belong to this work update", id))
		}
	}
	return nil
}

// pruneWorkUpdateAttachments removes attachment rows dropped from an update.
func pruneWorkUpdateAttachments(tx *gorm.DB, record any) error {
	wu, ok := record.(*domain.WorkUpdate)
	if !ok || wu.ID == 0 {
		return nil
	}
	keep := make([]uint, 0, len(wu.Attachments))
	for _, a := range wu.Attachments {
		if a.ID != 0 {
			keep = append(keep, a.ID)
		}
	}
	q := tx.Where("work_update_id = ?", wu.ID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(&domain.WorkUpdateAttachment{}).Error
}

// EntityRepositories bundles one repository per CRUD resource.
type EntityRepositories struct {
	Workers     EntityRepository[domain.Worker]
	Sites       EntityRepository[domain.Site]
	Attendance  EntityRepository[domain.AttendanceRecord]
	Materials   EntityRepository[domain.MaterialRecord]
	Dispatch    EntityRepository[domain.DispatchRecord]
	Overtime    EntityRepository[domain.Overtime]
	Payments    EntityRepository[domain.Payment]
	Expenses    EntityRepository[domain.Expense]
	PendingWork EntityRepository[domain.PendingWork]
	WorkUpdates EntityRepository[domain.WorkUpdate]
}

func NewEntityRepositories(db *gorm.DB) *EntityRepositories {
	return &EntityRepositories{
		Workers:     NewEntityRepository[domain.Worker](db, WorkerSpec),
		Sites:       NewEntityRepository[domain.Site](db, SiteSpec),
		Attendance:  NewEntityRepository[domain.AttendanceRecord](db, AttendanceSpec),
		Materials:   NewEntityRepository[domain.MaterialRecord](db, MaterialSpec),
		Dispatch:    NewEntityRepository[domain.DispatchRecord](db, DispatchSpec),
		Overtime:    NewEntityRepository[domain.Overtime](db, OvertimeSpec),
		Payments:    NewEntityRepository[domain.Payment](db, PaymentSpec),
		Expenses:    NewEntityRepository[domain.Expense](db, ExpenseSpec),
		PendingWork: NewEntityRepository[domain.PendingWork](db, PendingWorkSpec),
		WorkUpdates: NewEntityRepository[domain.WorkUpdate](db, WorkUpdateSpec),
	}
}
