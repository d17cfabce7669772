package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"indexpilot/internal/database"
	"indexpilot/internal/models"
	"indexpilot/internal/pipeline"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SubmitURLs is the programmatic v1 submission endpoint. The URL list is
// explicit, so discovery is bypassed entirely.
func (h *Handler) SubmitURLs(c echo.Context) error {
	var req struct {
		SiteID uint     `json:"site_id"`
		URLs   []string `json:"urls"`
		Engine string   `json:"engine"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user := currentUser(c)
	planMax := h.cfg.PlanMax(user.Plan)

	if len(req.URLs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no URLs provided"})
	}
	if len(req.URLs) > planMax {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("too many URLs: plan allows %d per request", planMax),
		})
	}
	for _, u := range req.URLs {
		if err := validateSubmitURL(u); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	res, err := h.orch.Run(pipelineContext(c), pipeline.Request{
		User:          user,
		SiteID:        req.SiteID,
		ManualURLs:    req.URLs,
		PerRequestMax: planMax,
	})
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	if res.UpstreamDown {
		return c.JSON(http.StatusBadGateway, res)
	}
	return c.JSON(http.StatusOK, res)
}

// SyncSitemaps is the dashboard sync: discover URLs from the site's
// sitemaps (or take a manual list) and push them through the same pipeline.
func (h *Handler) SyncSitemaps(c echo.Context) error {
	var req struct {
		SiteURL    string   `json:"siteUrl"`
		SitemapURL string   `json:"sitemapUrl"`
		ManualURLs []string `json:"manualUrls"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.SiteURL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "siteUrl is required"})
	}

	user := currentUser(c)
	site, err := h.sites.OwnedSiteByProperty(user.ID, strings.TrimSpace(req.SiteURL))
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	preq := pipeline.Request{
		User:          user,
		SiteID:        site.ID,
		PerRequestMax: h.cfg.PlanMax(user.Plan),
	}

	if len(req.ManualURLs) > 0 {
		for _, u := range req.ManualURLs {
			if err := validateSubmitURL(u); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
		}
		preq.ManualURLs = req.ManualURLs
	} else {
		sitemapIDs := map[string]uint{}
		if req.SitemapURL != "" {
			preq.SitemapURLs = []string{req.SitemapURL}
			var sm models.Sitemap
			if err := database.DB.Where("site_id = ? AND url = ?", site.ID, req.SitemapURL).First(&sm).Error; err == nil {
				sitemapIDs[sm.URL] = sm.ID
			}
		} else {
			urls, ids, err := h.sites.EnabledSitemapURLs(site.ID)
			if err != nil {
				h.logger.Error("list sitemaps failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
			preq.SitemapURLs = urls
			sitemapIDs = ids
		}

		// Stat refresh is best-effort telemetry: detached, errors swallowed.
		preq.OnSourceCrawled = func(sitemapURL string, urlCount int) {
			if id, ok := sitemapIDs[sitemapURL]; ok {
				go h.recorder.TouchSitemap(id, urlCount)
			}
		}
	}

	res, err := h.orch.Run(pipelineContext(c), preq)
	if err != nil {
		return h.mapPipelineError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":           res.Success,
		"processed":         len(res.Results),
		"submitted":         res.Submitted,
		"credits_remaining": res.CreditsRemaining,
		"indexNowResult":    res.IndexNow,
	})
}

// ServeKeyFile serves the hosted IndexNow key file so search engines can
// verify domain control.
func (h *Handler) ServeKeyFile(c echo.Context) error {
	key := strings.TrimSuffix(c.Param("key"), ".txt")
	if key == "" {
		return c.NoContent(http.StatusNotFound)
	}

	var site models.Site
	if err := database.DB.Where("index_now_key = ?", key).First(&site).Error; err != nil {
		return c.NoContent(http.StatusNotFound)
	}

	return c.String(http.StatusOK, site.IndexNowKey)
}

// RunAutoIndex is the scheduled trigger: one orchestrator run per
// auto-index-enabled site, with failures isolated per site.
func (h *Handler) RunAutoIndex(c echo.Context) error {
	if h.cfg.CronSecret == "" || c.Request().Header.Get("X-Cron-Secret") != h.cfg.CronSecret {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	sites, err := h.sites.AutoIndexSites()
	if err != nil {
		h.logger.Error("list auto-index sites failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	type outcome struct {
		SiteID    uint   `json:"site_id"`
		Domain    string `json:"domain"`
		Submitted int    `json:"submitted"`
		Failed    int    `json:"failed"`
		Error     string `json:"error,omitempty"`
	}

	outcomes := make([]outcome, 0, len(sites))
	for _, site := range sites {
		out := outcome{SiteID: site.ID, Domain: site.Domain}

		var user models.User
		if err := database.DB.First(&user, site.UserID).Error; err != nil {
			out.Error = "owner not found"
			outcomes = append(outcomes, out)
			continue
		}

		urls, ids, err := h.sites.EnabledSitemapURLs(site.ID)
		if err != nil {
			out.Error = err.Error()
			outcomes = append(outcomes, out)
			continue
		}

		res, err := h.orch.Run(context.Background(), pipeline.Request{
			User:          &user,
			SiteID:        site.ID,
			SitemapURLs:   urls,
			PerRequestMax: h.cfg.PlanMax(user.Plan),
			OnSourceCrawled: func(sitemapURL string, urlCount int) {
				if id, ok := ids[sitemapURL]; ok {
					go h.recorder.TouchSitemap(id, urlCount)
				}
			},
		})
		if err != nil {
			h.logger.Warn("auto-index run failed", zap.Uint("site_id", site.ID), zap.Error(err))
			out.Error = err.Error()
			outcomes = append(outcomes, out)
			continue
		}

		out.Submitted = res.Submitted
		out.Failed = res.Failed
		outcomes = append(outcomes, out)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"sites": outcomes})
}

// pipelineContext deliberately detaches from the request context: if the
// caller disconnects mid-pipeline, in-flight calls run to their own timeouts
// and a half-finished submission is recovered by re-syncing.
func pipelineContext(echo.Context) context.Context {
	return context.Background()
}
