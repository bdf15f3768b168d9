package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration: a YAML file overridden by
// environment variables. Everything has a workable default except the
// secrets, which main validates at startup.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	Database struct {
		Driver string `yaml:"driver"` // sqlite (default) or postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		APIBase  string `yaml:"api_base"`
	} `yaml:"telegram"`

	LinkedIn struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
		APIBase      string `yaml:"api_base"`
	} `yaml:"linkedin"`

	Generation struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"generation"`

	Images struct {
		BaseURL string `yaml:"base_url"` // empty disables the image step
		Dir     string `yaml:"dir"`
	} `yaml:"images"`

	CleanupDays int `yaml:"cleanup_days"`
}

// Load reads the YAML file at path (optional), applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.ListenAddr, "POSTFLOW_LISTEN_ADDR")
	setFromEnv(&cfg.Database.Driver, "POSTFLOW_DB_DRIVER")
	setFromEnv(&cfg.Database.DSN, "POSTFLOW_DB_DSN")
	setFromEnv(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setFromEnv(&cfg.Telegram.APIBase, "TELEGRAM_API_BASE")
	setFromEnv(&cfg.LinkedIn.ClientID, "LINKEDIN_CLIENT_ID")
	setFromEnv(&cfg.LinkedIn.ClientSecret, "LINKEDIN_CLIENT_SECRET")
	setFromEnv(&cfg.LinkedIn.RedirectURL, "LINKEDIN_REDIRECT_URL")
	setFromEnv(&cfg.Generation.BaseURL, "GENERATION_BASE_URL")
	setFromEnv(&cfg.Generation.APIKey, "GENERATION_API_KEY")
	setFromEnv(&cfg.Generation.Model, "GENERATION_MODEL")
	setFromEnv(&cfg.Images.BaseURL, "IMAGE_BASE_URL")
}

func setFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "postflow.db"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Images.Dir == "" {
		cfg.Images.Dir = "images"
	}
	if cfg.CleanupDays <= 0 {
		cfg.CleanupDays = 30
	}
}
