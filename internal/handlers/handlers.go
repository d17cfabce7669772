package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"indexpilot/internal/config"
	"indexpilot/internal/database"
	"indexpilot/internal/models"
	"indexpilot/internal/pipeline"
	"indexpilot/internal/ratelimit"
	"indexpilot/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	cfg      *config.Config
	logger   *zap.Logger
	orch     *pipeline.Orchestrator
	sites    *services.SiteService
	recorder *services.RecorderService
	keys     *services.KeyService
	limiter  ratelimit.Limiter
}

func NewHandler(cfg *config.Config, logger *zap.Logger, orch *pipeline.Orchestrator, sites *services.SiteService, recorder *services.RecorderService, keys *services.KeyService, limiter ratelimit.Limiter) *Handler {
	return &Handler{
		cfg:      cfg,
		logger:   logger,
		orch:     orch,
		sites:    sites,
		recorder: recorder,
		keys:     keys,
		limiter:  limiter,
	}
}

func RegisterRoutes(e *echo.Echo, h *Handler) {
	// Public: key file hosting for search-engine verification.
	e.GET("/api/indexnow/:key", h.ServeKeyFile)

	// Cron: shared-secret header, no user identity.
	e.POST("/api/cron/auto-index", h.RunAutoIndex)

	api := e.Group("/api", h.requireAPIKey)
	api.POST("/sync-sitemaps", h.SyncSitemaps)

	api.GET("/sites", h.ListSites)
	api.POST("/sites", h.CreateSite)
	api.DELETE("/sites/:id", h.DeleteSite)
	api.POST("/sites/:id/verify-key", h.VerifyKey)
	api.POST("/sites/:id/rotate-key", h.RotateKey)
	api.PATCH("/sites/:id/auto-index", h.ToggleAutoIndex)

	api.GET("/sites/:id/sitemaps", h.ListSitemaps)
	api.POST("/sites/:id/sitemaps", h.AddSitemap)
	api.PATCH("/sitemaps/:id", h.UpdateSitemap)
	api.DELETE("/sitemaps/:id", h.DeleteSitemap)

	api.GET("/sites/:id/submissions", h.ListSubmissions)
	api.GET("/usage", h.Usage)

	v1 := e.Group("/api/v1", h.requireAPIKey, h.rateLimit)
	v1.POST("/urls/submit", h.SubmitURLs)
}

// requireAPIKey resolves the bearer token to a user and stashes it on the
// context. Session management lives outside this service; every
// authenticated surface here speaks API keys.
func (h *Handler) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			var user models.User
			if err := database.DB.Where("api_key = ?", key).First(&user).Error; err != nil {
				return false, nil
			}
			c.Set("user", &user)
			return true, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or missing API key"})
		},
	})(next)
}

func (h *Handler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if !h.limiter.Allow(strconv.FormatUint(uint64(user.ID), 10)) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

// validateSubmitURL rejects anything that is not an absolute http(s) URL.
func validateSubmitURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: only http and https are supported", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}

func (h *Handler) mapPipelineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "site not found"})
	case errors.Is(err, pipeline.ErrInsufficientCredits):
		return c.JSON(http.StatusPaymentRequired, map[string]string{"error": "insufficient credits"})
	case errors.Is(err, pipeline.ErrMissingKey):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "missing_key",
			"message": "IndexNow key not configured for this site",
		})
	default:
		h.logger.Error("pipeline failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
