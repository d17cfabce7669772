package config

import (
	"strings"
	"time"

	"indexpilot/internal/models"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Port        int    `mapstructure:"PORT"`

	DatabasePath string `mapstructure:"DB_PATH"`

	IndexNowEndpoint string        `mapstructure:"INDEXNOW_ENDPOINT"`
	SitemapTimeout   time.Duration `mapstructure:"SITEMAP_TIMEOUT"`
	SubmitTimeout    time.Duration `mapstructure:"SUBMIT_TIMEOUT"`

	CronSecret string `mapstructure:"CRON_SECRET"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	StandardPlanMax    int `mapstructure:"STANDARD_PLAN_MAX"`
	ProPlanMax         int `mapstructure:"PRO_PLAN_MAX"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("ENVIRONMENT", "production")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_PATH", "indexpilot.db")
	viper.SetDefault("INDEXNOW_ENDPOINT", "https://api.indexnow.org/indexnow")
	viper.SetDefault("SITEMAP_TIMEOUT", 10*time.Second)
	viper.SetDefault("SUBMIT_TIMEOUT", 30*time.Second)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("STANDARD_PLAN_MAX", 100)
	viper.SetDefault("PRO_PLAN_MAX", 1000)

	viper.SetEnvPrefix("INDEXPILOT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigFile(".env")
	// Ignore err if .env doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// PlanMax returns the per-request URL cap for a subscription plan.
func (c *Config) PlanMax(plan string) int {
	if plan == models.PlanPro {
		return c.ProPlanMax
	}
	return c.StandardPlanMax
}
