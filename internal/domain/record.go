package domain

import "time"

// Record is implemented by every CRUD entity exposed under /api.
type Record interface {
	GetID() uint
	// Prepare recomputes derived fields before validation and persistence.
	Prepare(now time.Time)
	Validate() error
	Base() *Model
}

// Reference names a foreign row that must exist for a record to be stored.
type Reference struct {
	Field string
	Model any
	ID    uint
}

type Referencer interface {
	References() []Reference
}

type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Model) GetID() uint { return m.ID }

// Base exposes the row identity so updates can restore it after decoding a
// client payload over an existing record.
func (m *Model) Base() *Model { return m }

// Bool returns a pointer to v, for optional flags such as IsActive.
func Bool(v bool) *bool { return &v }

// activeOrDefault keeps an explicit flag and treats an omitted one as active.
// The flag is a pointer so gorm writes an explicit false instead of applying
// the column default.
func activeOrDefault(v *bool) *bool {
	if v == nil {
		return Bool(true)
	}
	return v
}

func optionalRef(field string, model any, id *uint) []Reference {
	if id == nil || *id == 0 {
		return nil
	}
	return []Reference{{Field: field, Model: model, ID: *id}}
}
