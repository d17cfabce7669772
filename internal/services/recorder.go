package services

import (
	"time"

	"indexpilot/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecorderService implements pipeline.Recorder and owns the best-effort
// sitemap stat refresh.
type RecorderService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRecorderService(db *gorm.DB, logger *zap.Logger) *RecorderService {
	return &RecorderService{db: db, logger: logger}
}

// RecordBatch writes one submission row per URL. Rows are append-only.
func (s *RecorderService) RecordBatch(siteID uint, urls []string, statusCode int) error {
	if len(urls) == 0 {
		return nil
	}
	rows := make([]models.Submission, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, models.Submission{
			SiteID:     siteID,
			URL:        u,
			StatusCode: statusCode,
		})
	}
	return s.db.Create(&rows).Error
}

// TouchSitemap refreshes a sitemap's cached URL count and crawl timestamp.
// Best-effort telemetry: callers run it detached and failures are only
// logged, never surfaced.
func (s *RecorderService) TouchSitemap(sitemapID uint, urlCount int) {
	now := time.Now()
	err := s.db.Model(&models.Sitemap{}).
		Where("id = ?", sitemapID).
		Updates(map[string]interface{}{
			"url_count":       urlCount,
			"last_crawled_at": now,
		}).Error
	if err != nil {
		s.logger.Warn("sitemap stat refresh failed", zap.Uint("sitemap_id", sitemapID), zap.Error(err))
	}
}
