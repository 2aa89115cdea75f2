package domain

import (
	"strings"
	"time"
)

type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchInTransit DispatchStatus = "in_transit"
	DispatchDelivered DispatchStatus = "delivered"
)

type DispatchRecord struct {
	Model
	FromSiteID    *uint          `gorm:"index" json:"from_site_id"`
	FromSite      *Site          `gorm:"foreignKey:FromSiteID" json:"from_site,omitempty"`
	ToSiteID      uint           `gorm:"not null;index" json:"to_site_id"`
	ToSite        *Site          `gorm:"foreignKey:ToSiteID" json:"to_site,omitempty"`
	MaterialName  string         `gorm:"size:255;not null" json:"material_name"`
	Quantity      float64        `gorm:"not null" json:"quantity"`
	Unit          string         `gorm:"size:32" json:"unit"`
	VehicleNumber string         `gorm:"size:32" json:"vehicle_number"`
	DispatchDate  Date           `gorm:"not null;index" json:"dispatch_date"`
	Status        DispatchStatus `gorm:"size:32;not null;index" json:"status"`
	Notes         string         `gorm:"size:1024" json:"notes"`
}

func (d *DispatchRecord) Prepare(now time.Time) {
	d.FromSite, d.ToSite = nil, nil
	d.MaterialName = strings.TrimSpace(d.MaterialName)
	d.VehicleNumber = strings.ToUpper(strings.TrimSpace(d.VehicleNumber))
	if d.Status == "" {
		d.Status = DispatchPending
	}
	if d.DispatchDate.IsZero() {
		d.DispatchDate = NewDate(now)
	}
}

func (d *DispatchRecord) Validate() error {
	v := newValidator()
	v.check(d.ToSiteID != 0, "to_site_id", "is required")
	v.check(d.FromSiteID == nil || *d.FromSiteID != d.ToSiteID, "to_site_id", "must differ from from_site_id")
	v.required(d.MaterialName, "material_name")
	v.check(d.Quantity > 0, "quantity", "must be greater than zero")
	v.oneOf(string(d.Status), "status", string(DispatchPending), string(DispatchInTransit), string(DispatchDelivered))
	return v.err()
}

func (d *DispatchRecord) References() []Reference {
	refs := []Reference{{Field: "to_site_id", Model: &Site{}, ID: d.ToSiteID}}
	return append(refs, optionalRef("from_site_id", &Site{}, d.FromSiteID)...)
}
