package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"indexpilot/internal/database"
	"indexpilot/internal/indexnow"
	"indexpilot/internal/models"
	"indexpilot/internal/pipeline"
	"indexpilot/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *Handler) ListSites(c echo.Context) error {
	user := currentUser(c)

	var sites []models.Site
	if err := database.DB.Where("user_id = ?", user.ID).Preload("Sitemaps").Order("id").Find(&sites).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, sites)
}

func (h *Handler) CreateSite(c echo.Context) error {
	var req struct {
		Domain      string `json:"domain"`
		PropertyURL string `json:"property_url"`
		AutoIndex   bool   `json:"auto_index"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	domain := indexnow.Hostname(req.Domain)
	if domain == "" || !strings.Contains(domain, ".") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid domain"})
	}

	property := strings.TrimSpace(req.PropertyURL)
	if property == "" {
		property = "https://" + domain + "/"
	}

	user := currentUser(c)
	site := models.Site{
		UserID:      user.ID,
		Domain:      domain,
		PropertyURL: property,
		AutoIndex:   req.AutoIndex,
		IndexNowKey: services.GenerateKey(),
	}
	if err := database.DB.Create(&site).Error; err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "site already registered for this property"})
	}

	// The key is hidden from normal serialization but the owner needs it
	// once to host the key file.
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"site":         site,
		"indexnow_key": site.IndexNowKey,
	})
}

func (h *Handler) DeleteSite(c echo.Context) error {
	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	if err := h.sites.DeleteCascade(site.ID); err != nil {
		h.logger.Error("site delete failed", zap.Uint("site_id", site.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VerifyKey(c echo.Context) error {
	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}
	if site.IndexNowKey == "" {
		return h.mapPipelineError(c, pipeline.ErrMissingKey)
	}

	ok, message, err := h.keys.VerifyKeyFile(pipelineContext(c), site.Domain, site.IndexNowKey)
	if err != nil {
		h.logger.Error("key verification failed", zap.Uint("site_id", site.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	if err := database.DB.Model(site).Update("index_now_key_verified", ok).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"verified": ok, "message": message})
}

func (h *Handler) RotateKey(c echo.Context) error {
	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	newKey := services.GenerateKey()
	err = database.DB.Model(site).Updates(map[string]interface{}{
		"index_now_key":          newKey,
		"index_now_key_verified": false,
	}).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"indexnow_key": newKey})
}

func (h *Handler) ToggleAutoIndex(c echo.Context) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	if err := database.DB.Model(site).Update("auto_index", req.Enabled).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, site)
}

func (h *Handler) ListSitemaps(c echo.Context) error {
	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	var sitemaps []models.Sitemap
	if err := database.DB.Where("site_id = ?", site.ID).Order("id").Find(&sitemaps).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, sitemaps)
}

func (h *Handler) AddSitemap(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := validateSubmitURL(strings.TrimSpace(req.URL)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	sitemap := models.Sitemap{
		SiteID:  site.ID,
		URL:     strings.TrimSpace(req.URL),
		Enabled: true,
	}
	if err := database.DB.Create(&sitemap).Error; err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "sitemap already registered for this site"})
	}

	return c.JSON(http.StatusCreated, sitemap)
}

func (h *Handler) UpdateSitemap(c echo.Context) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user := currentUser(c)
	sitemap, err := h.ownedSitemapParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	if err := database.DB.Model(sitemap).Update("enabled", req.Enabled).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, sitemap)
}

// DeleteSitemap removes the source registration. Submission history stays.
func (h *Handler) DeleteSitemap(c echo.Context) error {
	user := currentUser(c)
	sitemap, err := h.ownedSitemapParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	if err := database.DB.Delete(&models.Sitemap{}, sitemap.ID).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListSubmissions(c echo.Context) error {
	user := currentUser(c)
	site, err := h.ownedSiteParam(c, user)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	var submissions []models.Submission
	err = database.DB.Where("site_id = ?", site.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, submissions)
}

// Usage reports the caller's balance, plan cap, and submissions this
// calendar month.
func (h *Handler) Usage(c echo.Context) error {
	user := currentUser(c)

	var fresh models.User
	if err := database.DB.First(&fresh, user.ID).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var monthCount int64
	err := database.DB.Model(&models.Submission{}).
		Joins("JOIN sites ON sites.id = submissions.site_id").
		Where("sites.user_id = ? AND submissions.created_at >= ?", user.ID, monthStart).
		Count(&monthCount).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"plan":                   fresh.Plan,
		"credits":                fresh.Credits,
		"per_request_max":        h.cfg.PlanMax(fresh.Plan),
		"submissions_this_month": monthCount,
	})
}

func (h *Handler) ownedSiteParam(c echo.Context, user *models.User) (*models.Site, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, pipeline.ErrNotFound
	}
	return h.sites.OwnedSite(user.ID, uint(id))
}

func (h *Handler) ownedSitemapParam(c echo.Context, user *models.User) (*models.Sitemap, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, pipeline.ErrNotFound
	}

	var sitemap models.Sitemap
	if err := database.DB.First(&sitemap, uint(id)).Error; err != nil {
		return nil, pipeline.ErrNotFound
	}
	if _, err := h.sites.OwnedSite(user.ID, sitemap.SiteID); err != nil {
		return nil, err
	}
	return &sitemap, nil
}
