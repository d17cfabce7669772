package models

import (
	"time"

	"gorm.io/gorm"
)

type Site struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index;uniqueIndex:idx_user_property" json:"user_id"`

	Domain      string `gorm:"not null" json:"domain"`
	PropertyURL string `gorm:"not null;uniqueIndex:idx_user_property" json:"property_url"`
	Verified    bool   `gorm:"default:false" json:"verified"`
	AutoIndex   bool   `gorm:"default:false" json:"auto_index"`

	IndexNowKey         string  `gorm:"not null" json:"-"`
	IndexNowKeyVerified bool    `gorm:"default:false" json:"indexnow_key_verified"`
	KeyLocation         *string `json:"key_location,omitempty"`

	Sitemaps    []Sitemap    `gorm:"constraint:OnDelete:CASCADE" json:"sitemaps,omitempty"`
	Submissions []Submission `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
