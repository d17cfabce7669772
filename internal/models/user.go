package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan names understood by the batcher's per-request cap lookup.
const (
	PlanStandard = "standard"
	PlanPro      = "pro"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Plan     string `gorm:"default:'standard'" json:"plan"`
	Credits  int64  `gorm:"not null;default:0" json:"credits"`
	APIKey   string `gorm:"uniqueIndex;not null" json:"-"`
	TestMode bool   `gorm:"default:false" json:"test_mode"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
