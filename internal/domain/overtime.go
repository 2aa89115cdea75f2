package domain

import (
	"strings"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type Overtime struct {
	Model
	WorkerID    uint           `gorm:"not null;index" json:"worker_id"`
	Worker      *Worker        `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	SiteID      *uint          `gorm:"index" json:"site_id"`
	Site        *Site          `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Date        Date           `gorm:"not null;index" json:"date"`
	Hours       float64        `gorm:"not null" json:"hours"`
	Rate        float64        `gorm:"not null" json:"rate"`
	TotalAmount float64        `gorm:"not null;default:0" json:"total_amount"`
	Status      ApprovalStatus `gorm:"size:16;not null;index" json:"status"`
	Notes       string         `gorm:"size:1024" json:"notes"`
}

func (Overtime) TableName() string { return "overtime" }

func (o *Overtime) Prepare(now time.Time) {
	o.Worker, o.Site = nil, nil
	o.Notes = strings.TrimSpace(o.Notes)
	if o.Status == "" {
		o.Status = ApprovalPending
	}
	if o.Date.IsZero() {
		o.Date = NewDate(now)
	}
	o.TotalAmount = round2(o.Rate * o.Hours)
}

func (o *Overtime) Validate() error {
	v := newValidator()
	v.check(o.WorkerID != 0, "worker_id", "is required")
	v.check(o.Hours > 0 && o.Hours <= 24, "hours", "must be greater than 0 and at most 24")
	v.check(o.Rate > 0, "rate", "must be greater than zero")
	v.oneOf(string(o.Status), "status", string(ApprovalPending), string(ApprovalApproved), string(ApprovalRejected))
	return v.err()
}

func (o *Overtime) References() []Reference {
	refs := []Reference{{Field: "worker_id", Model: &Worker{}, ID: o.WorkerID}}
	return append(refs, optionalRef("site_id", &Site{}, o.SiteID)...)
}
