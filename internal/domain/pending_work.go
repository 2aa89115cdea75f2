package domain

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type WorkStatus string

const (
	WorkPending    WorkStatus = "pending"
	WorkInProgress WorkStatus = "in_progress"
	WorkCompleted  WorkStatus = "completed"
)

type PendingWork struct {
	Model
	SiteID           uint       `gorm:"not null;index" json:"site_id"`
	Site             *Site      `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"size:2048" json:"description"`
	Priority         Priority   `gorm:"size:16;not null;index" json:"priority"`
	Status           WorkStatus `gorm:"size:16;not null;index" json:"status"`
	DueDate          *Date      `json:"due_date"`
	AssignedWorkerID *uint      `gorm:"index" json:"assigned_worker_id"`
	AssignedWorker   *Worker    `gorm:"foreignKey:AssignedWorkerID" json:"assigned_worker,omitempty"`
	CompletedAt      *time.Time `json:"completed_at"`
}

func (PendingWork) TableName() string { return "pending_work" }

// Prepare keeps CompletedAt in step with Status: stamped on the first
// transition to completed, cleared on any other status.
func (p *PendingWork) Prepare(now time.Time) {
	p.Site, p.AssignedWorker = nil, nil
	p.Title = strings.TrimSpace(p.Title)
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Status == "" {
		p.Status = WorkPending
	}
	switch {
	case p.Status == WorkCompleted && p.CompletedAt == nil:
		ts := now.UTC()
		p.CompletedAt = &ts
	case p.Status != WorkCompleted:
		p.CompletedAt = nil
	}
}

func (p *PendingWork) Validate() error {
	v := newValidator()
	v.check(p.SiteID != 0, "site_id", "is required")
	v.required(p.Title, "title")
	v.oneOf(string(p.Priority), "priority", string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent))
	v.oneOf(string(p.Status), "status", string(WorkPending), string(WorkInProgress), string(WorkCompleted))
	return v.err()
}

func (p *PendingWork) References() []Reference {
	refs := []Reference{{Field: "site_id", Model: &Site{}, ID: p.SiteID}}
	return append(refs, optionalRef("assigned_worker_id", &Worker{}, p.AssignedWorkerID)...)
}
