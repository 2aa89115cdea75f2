package handler

import (
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/export"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

type CRUD interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// Resource binds one /api/<Path> collection to its permission name.
// Export is nil for resources without a spreadsheet download.
type Resource struct {
	Path       string
	Permission string
	CRUD       CRUD
	Export     http.HandlerFunc
}

func NewResources(e *service.Entities, logger *slog.Logger) []Resource {
	attendance := NewEntityHandler(e.Attendance, logger)
	payments := NewEntityHandler(e.Payments, logger)
	expenses := NewEntityHandler(e.Expenses, logger)
	overtime := NewEntityHandler(e.Overtime, logger)
	return []Resource{
		{Path: "workers", Permission: domain.ResourceWorkers, CRUD: NewEntityHandler(e.Workers, logger)},
		{Path: "sites", Permission: domain.ResourceSites, CRUD: NewEntityHandler(e.Sites, logger)},
		{Path: "attendance", Permission: domain.ResourceAttendance, CRUD: attendance, Export: attendance.Export(export.AttendanceColumns)},
		{Path: "materials", Permission: domain.ResourceMaterials, CRUD: NewEntityHandler(e.Materials, logger)},
		{Path: "dispatch", Permission: domain.ResourceDispatch, CRUD: NewEntityHandler(e.Dispatch, logger)},
		{Path: "overtime", Permission: domain.ResourceOvertime, CRUD: overtime, Export: overtime.Export(export.OvertimeColumns)},
		{Path: "payments", Permission: domain.ResourcePayments, CRUD: payments, Export: payments.Export(export.PaymentColumns)},
		{Path: "expenses", Permission: domain.ResourceExpenses, CRUD: expenses, Export: expenses.Export(export.ExpenseColumns)},
		{Path: "pending-work", Permission: domain.ResourcePendingWork, CRUD: NewEntityHandler(e.PendingWork, logger)},
		{Path: "work-updates", Permission: domain.ResourceWorkUpdates, CRUD: NewEntityHandler(e.WorkUpdates, logger)},
	}
}
