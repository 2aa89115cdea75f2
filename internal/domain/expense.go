package domain

import (
	"strings"
	"time"
)

type Expense struct {
	Model
	SiteID        *uint   `gorm:"index" json:"site_id"`
	Site          *Site   `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Category      string  `gorm:"size:64;not null;index" json:"category"`
	Description   string  `gorm:"size:1024" json:"description"`
	Amount        float64 `gorm:"not null" json:"amount"`
	ExpenseDate   Date    `gorm:"not null;index" json:"expense_date"`
	PaidTo        string  `gorm:"size:255" json:"paid_to"`
	PaymentMethod string  `gorm:"size:32" json:"payment_method"`
}

func (e *Expense) Prepare(now time.Time) {
	e.Site = nil
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))
	e.Description = strings.TrimSpace(e.Description)
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = NewDate(now)
	}
	e.Amount = round2(e.Amount)
}

func (e *Expense) Validate() error {
	v := newValidator()
	v.required(e.Category, "category")
	v.check(e.Amount > 0, "amount", "must be greater than zero")
	return v.err()
}

func (e *Expense) References() []Reference {
	return optionalRef("site_id", &Site{}, e.SiteID)
}
