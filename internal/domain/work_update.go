package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type WorkUpdate struct {
	Model
	SiteID          uint                   `gorm:"not null;index" json:"site_id"`
	Site            *Site                  `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Title           string                 `gorm:"size:255;not null" json:"title"`
	Description     string                 `gorm:"size:4096" json:"description"`
	ProgressPercent int                    `gorm:"not null;default:0" json:"progress_percent"`
	UpdateDate      Date                   `gorm:"not null;index" json:"update_date"`
	Attachments     []WorkUpdateAttachment `gorm:"foreignKey:WorkUpdateID;constraint:OnDelete:CASCADE" json:"attachments"`
}

// WorkUpdateAttachment points at an object uploaded through a presigned URL.
type WorkUpdateAttachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	WorkUpdateID uint      `gorm:"not null;index" json:"work_update_id"`
	StorageKey   string    `gorm:"size:512;not null" json:"storage_key"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	SizeBytes    int64     `gorm:"not null;default:0" json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// UnmarshalJSON replaces the attachment list wholesale when the payload
// carries one, instead of merging into existing elements by index.
func (w *WorkUpdate) UnmarshalJSON(b []byte) error {
	type plain WorkUpdate
	var head struct {
		Attachments json.RawMessage `json:"attachments"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	if head.Attachments != nil {
		w.Attachments = nil
	}
	return json.Unmarshal(b, (*plain)(w))
}

func (w *WorkUpdate) Prepare(now time.Time) {
	w.Site = nil
	w.Title = strings.TrimSpace(w.Title)
	if w.UpdateDate.IsZero() {
		w.UpdateDate = NewDate(now)
	}
	for i := range w.Attachments {
		w.Attachments[i].FileName = strings.TrimSpace(w.Attachments[i].FileName)
		// A new work update starts with new attachment rows only.
		if w.ID == 0 {
			w.Attachments[i].ID = 0
			w.Attachments[i].CreatedAt = time.Time{}
		}
	}
}

func (w *WorkUpdate) Validate() error {
	v := newValidator()
	v.check(w.SiteID != 0, "site_id", "is required")
	v.required(w.Title, "title")
	v.check(w.ProgressPercent >= 0 && w.ProgressPercent <= 100, "progress_percent", "must be between 0 and 100")
	for _, a := range w.Attachments {
		v.check(strings.TrimSpace(a.StorageKey) != "", "attachments", "storage_key is required")
		v.check(a.FileName != "", "attachments", "file_name is required")
		v.check(a.SizeBytes >= 0, "attachments", "size_bytes must not be negative")
	}
	return v.err()
}

func (w *WorkUpdate) References() []Reference {
	return []Reference{{Field: "site_id", Model: &Site{}, ID: w.SiteID}}
}

// Attachment returns the attachment with the given id.
func (w *WorkUpdate) Attachment(id uint) (WorkUpdateAttachment, bool) {
	for _, a := range w.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return WorkUpdateAttachment{}, false
}
