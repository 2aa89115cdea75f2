package domain

import (
	"strings"
	"time"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceHalfDay AttendanceStatus = "half_day"
	AttendanceLeave   AttendanceStatus = "leave"
)

// AttendanceRecord is unique per worker and date.
type AttendanceRecord struct {
	Model
	WorkerID    uint             `gorm:"not null;uniqueIndex:idx_attendance_worker_date" json:"worker_id"`
	Worker      *Worker          `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	SiteID      *uint            `gorm:"index" json:"site_id"`
	Site        *Site            `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Date        Date             `gorm:"not null;uniqueIndex:idx_attendance_worker_date" json:"date"`
	CheckIn     *time.Time       `json:"check_in"`
	CheckOut    *time.Time       `json:"check_out"`
	Status      AttendanceStatus `gorm:"size:32;not null;index" json:"status"`
	HoursWorked float64          `gorm:"not null;default:0" json:"hours_worked"`
	Notes       string           `gorm:"size:1024" json:"notes"`
}

func (AttendanceRecord) TableName() string { return "attendance_records" }

// Prepare derives HoursWorked. A non-positive interval leaves it at zero and
// is rejected by Validate.
func (a *AttendanceRecord) Prepare(time.Time) {
	a.Worker, a.Site = nil, nil
	a.Notes = strings.TrimSpace(a.Notes)
	if a.Status == "" {
		a.Status = AttendancePresent
	}
	a.HoursWorked = 0
	if a.CheckIn != nil && a.CheckOut != nil && a.CheckOut.After(*a.CheckIn) {
		a.HoursWorked = round2(a.CheckOut.Sub(*a.CheckIn).Hours())
	}
}

func (a *AttendanceRecord) Validate() error {
	v := newValidator()
	v.check(a.WorkerID != 0, "worker_id", "is required")
	v.check(!a.Date.IsZero(), "date", "is required")
	v.oneOf(string(a.Status), "status",
		string(AttendancePresent), string(AttendanceAbsent), string(AttendanceHalfDay), string(AttendanceLeave))
	if a.CheckIn != nil && a.CheckOut != nil {
		v.check(a.CheckOut.After(*a.CheckIn), "check_out", "must be after check_in")
	}
	return v.err()
}

func (a *AttendanceRecord) References() []Reference {
	refs := []Reference{{Field: "worker_id", Model: &Worker{}, ID: a.WorkerID}}
	return append(refs, optionalRef("site_id", &Site{}, a.SiteID)...)
}
