package domain

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentUPI          PaymentMethod = "upi"
	PaymentCheque       PaymentMethod = "cheque"
)

type PaymentType string

const (
	PaymentSalary   PaymentType = "salary"
	PaymentAdvance  PaymentType = "advance"
	PaymentOvertime PaymentType = "overtime"
	PaymentBonus    PaymentType = "bonus"
)

type Payment struct {
	Model
	WorkerID    uint          `gorm:"not null;index" json:"worker_id"`
	Worker      *Worker       `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	Amount      float64       `gorm:"not null" json:"amount"`
	PaymentDate Date          `gorm:"not null;index" json:"payment_date"`
	Method      PaymentMethod `gorm:"size:32;not null" json:"method"`
	Type        PaymentType   `gorm:"size:32;not null;index" json:"type"`
	PeriodStart *Date         `json:"period_start"`
	PeriodEnd   *Date         `json:"period_end"`
	Reference   string        `gorm:"size:128" json:"reference"`
	Notes       string        `gorm:"size:1024" json:"notes"`
}

func (p *Payment) Prepare(now time.Time) {
	p.Worker = nil
	p.Reference = strings.TrimSpace(p.Reference)
	if p.Method == "" {
		p.Method = PaymentCash
	}
	if p.Type == "" {
		p.Type = PaymentSalary
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = NewDate(now)
	}
	p.Amount = round2(p.Amount)
}

func (p *Payment) Validate() error {
	v := newValidator()
	v.check(p.WorkerID != 0, "worker_id", "is required")
	v.check(p.Amount > 0, "amount", "must be greater than zero")
	v.oneOf(string(p.Method), "method", string(PaymentCash), string(PaymentBankTransfer), string(PaymentUPI), string(PaymentCheque))
	v.oneOf(string(p.Type), "type", string(PaymentSalary), string(PaymentAdvance), string(PaymentOvertime), string(PaymentBonus))
	if p.PeriodStart != nil && p.PeriodEnd != nil {
		v.check(!p.PeriodEnd.Before(p.PeriodStart.Time), "period_end", "must not be before period_start")
	}
	return v.err()
}

func (p *Payment) References() []Reference {
	return []Reference{{Field: "worker_id", Model: &Worker{}, ID: p.WorkerID}}
}
