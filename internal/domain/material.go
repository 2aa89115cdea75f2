package domain

import (
	"strings"
	"time"
)

type MaterialType string

const (
	MaterialReceived MaterialType = "received"
	MaterialUsed     MaterialType = "used"
)

type MaterialRecord struct {
	Model
	SiteID    uint         `gorm:"not null;index" json:"site_id"`
	Site      *Site        `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Name      string       `gorm:"size:255;not null;index" json:"name"`
	Unit      string       `gorm:"size:32" json:"unit"`
	Quantity  float64      `gorm:"not null" json:"quantity"`
	UnitPrice float64      `gorm:"not null;default:0" json:"unit_price"`
	TotalCost float64      `gorm:"not null;default:0" json:"total_cost"`
	Supplier  string       `gorm:"size:255" json:"supplier"`
	Type      MaterialType `gorm:"size:16;not null;index" json:"type"`
	Date      Date         `gorm:"not null;index" json:"date"`
}

func (m *MaterialRecord) Prepare(now time.Time) {
	m.Site = nil
	m.Name = strings.TrimSpace(m.Name)
	if m.Type == "" {
		m.Type = MaterialReceived
	}
	if m.Date.IsZero() {
		m.Date = NewDate(now)
	}
	m.TotalCost = round2(m.Quantity * m.UnitPrice)
}

func (m *MaterialRecord) Validate() error {
	v := newValidator()
	v.check(m.SiteID != 0, "site_id", "is required")
	v.required(m.Name, "name")
	v.check(m.Quantity > 0, "quantity", "must be greater than zero")
	v.check(m.UnitPrice >= 0, "unit_price", "must not be negative")
	v.oneOf(string(m.Type), "type", string(MaterialReceived), string(MaterialUsed))
	return v.err()
}

func (m *MaterialRecord) References() []Reference {
	return []Reference{{Field: "site_id", Model: &Site{}, ID: m.SiteID}}
}
