package domain

import (
	"strings"
	"time"
)

type Worker struct {
	Model
	Name       string  `gorm:"size:255;not null;index" json:"name"`
	Phone      string  `gorm:"size:32" json:"phone"`
	Trade      string  `gorm:"size:64" json:"trade"`
	DailyWage  float64 `gorm:"not null;default:0" json:"daily_wage"`
	HourlyRate float64 `gorm:"not null;default:0" json:"hourly_rate"`
	SiteID     *uint   `gorm:"index" json:"site_id"`
	Site       *Site   `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	JoinDate   *Date   `json:"join_date"`
	IsActive   *bool   `gorm:"not null;default:true;index" json:"is_active"`
}

func (w *Worker) Prepare(time.Time) {
	w.Name = strings.TrimSpace(w.Name)
	w.Phone = strings.TrimSpace(w.Phone)
	w.Trade = strings.TrimSpace(w.Trade)
	w.Site = nil
	w.IsActive = activeOrDefault(w.IsActive)
}

func (w *Worker) Active() bool { return w.IsActive == nil || *w.IsActive }

func (w *Worker) Validate() error {
	v := newValidator()
	v.required(w.Name, "name")
	v.check(len(w.Name) <= 255, "name", "must be at most 255 characters")
	v.check(w.DailyWage >= 0, "daily_wage", "must not be negative")
	v.check(w.HourlyRate >= 0, "hourly_rate", "must not be negative")
	return v.err()
}

func (w *Worker) References() []Reference {
	return optionalRef("site_id", &Site{}, w.SiteID)
}
