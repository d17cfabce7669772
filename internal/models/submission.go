package models

import (
	"time"
)

// Submission is append-only: rows are written once per submitted URL and
// never updated, so history keeps every attempt including failed ones.
type Submission struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	SiteID uint `gorm:"not null;index" json:"site_id"`

	URL        string    `gorm:"not null" json:"url"`
	StatusCode int       `gorm:"not null" json:"status_code"`
	Engine     string    `gorm:"default:'indexnow'" json:"engine"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
