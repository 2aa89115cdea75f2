package domain

import (
	"strings"
	"time"
)

type SiteStatus string

const (
	SiteActive    SiteStatus = "active"
	SiteOnHold    SiteStatus = "on_hold"
	SiteCompleted SiteStatus = "completed"
)

type Site struct {
	Model
	Name       string     `gorm:"size:255;not null;index" json:"name"`
	Location   string     `gorm:"size:512" json:"location"`
	ClientName string     `gorm:"size:255" json:"client_name"`
	StartDate  *Date      `json:"start_date"`
	EndDate    *Date      `json:"end_date"`
	Status     SiteStatus `gorm:"size:32;not null;index" json:"status"`
	Budget     float64    `gorm:"not null;default:0" json:"budget"`
	IsActive   *bool      `gorm:"not null;default:true;index" json:"is_active"`
}

func (s *Site) Prepare(time.Time) {
	s.Name = strings.TrimSpace(s.Name)
	s.Location = strings.TrimSpace(s.Location)
	if s.Status == "" {
		s.Status = SiteActive
	}
	s.IsActive = activeOrDefault(s.IsActive)
}

func (s *Site) Active() bool { return s.IsActive == nil || *s.IsActive }

func (s *Site) Validate() error {
	v := newValidator()
	v.required(s.Name, "name")
	v.oneOf(string(s.Status), "status", string(SiteActive), string(SiteOnHold), string(SiteCompleted))
	v.check(s.Budget >= 0, "budget", "must not be negative")
	if s.StartDate != nil && s.EndDate != nil {
		v.check(!s.EndDate.Before(s.StartDate.Time), "end_date", "must not be before start_date")
	}
	return v.err()
}
