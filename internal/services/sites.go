package services

import (
	"errors"

	"indexpilot/internal/models"
	"indexpilot/internal/pipeline"

	"gorm.io/gorm"
)

// SiteService implements pipeline.SiteStore on the relational store.
type SiteService struct {
	db *gorm.DB
}

func NewSiteService(db *gorm.DB) *SiteService {
	return &SiteService{db: db}
}

// OwnedSite returns the site only when it belongs to the user; anything else
// is pipeline.ErrNotFound so callers cannot distinguish "missing" from "not
// yours".
func (s *SiteService) OwnedSite(userID, siteID uint) (*models.Site, error) {
	var site models.Site
	err := s.db.Where("id = ? AND user_id = ?", siteID, userID).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.ErrNotFound
		}
		return nil, err
	}
	return &site, nil
}

// OwnedSiteByProperty resolves a site by its GSC property URL or bare domain.
func (s *SiteService) OwnedSiteByProperty(userID uint, siteURL string) (*models.Site, error) {
	var site models.Site
	err := s.db.Where("user_id = ? AND (property_url = ? OR domain = ?)", userID, siteURL, siteURL).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.ErrNotFound
		}
		return nil, err
	}
	return &site, nil
}

// EnabledSitemapURLs lists the enabled sitemap sources registered for a site.
func (s *SiteService) EnabledSitemapURLs(siteID uint) ([]string, map[string]uint, error) {
	var sitemaps []models.Sitemap
	if err := s.db.Where("site_id = ? AND enabled = ?", siteID, true).Order("id").Find(&sitemaps).Error; err != nil {
		return nil, nil, err
	}
	urls := make([]string, 0, len(sitemaps))
	ids := make(map[string]uint, len(sitemaps))
	for _, sm := range sitemaps {
		urls = append(urls, sm.URL)
		ids[sm.URL] = sm.ID
	}
	return urls, ids, nil
}

// AutoIndexSites lists every site with auto-indexing turned on, with owners
// preloaded for the cron run.
func (s *SiteService) AutoIndexSites() ([]models.Site, error) {
	var sites []models.Site
	err := s.db.Where("auto_index = ?", true).Order("id").Find(&sites).Error
	return sites, err
}

// DeleteCascade removes a site along with its sitemaps and submissions.
func (s *SiteService) DeleteCascade(siteID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", siteID).Delete(&models.Sitemap{}).Error; err != nil {
			return err
		}
		if err := tx.Where("site_id = ?", siteID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Site{}, siteID).Error
	})
}
