package models

import (
	"time"
)

type Sitemap struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	SiteID uint `gorm:"not null;index;uniqueIndex:idx_site_sitemap" json:"site_id"`

	URL           string     `gorm:"not null;uniqueIndex:idx_site_sitemap" json:"url"`
	URLCount      int        `gorm:"default:0" json:"url_count"`
	Enabled       bool       `gorm:"default:true" json:"enabled"`
	LastCrawledAt *time.Time `json:"last_crawled_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
