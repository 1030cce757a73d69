package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
	// BotUsername is resolved from the Bot API at startup (getMe) unless bot.username is set.
	BotUsername string
}

type BotConfig struct {
	Token    string `yaml:"token"`
	Mode     string `yaml:"mode"` // polling only; webhook is handled upstream
	Username string `yaml:"username"`
	Workers  int    `yaml:"workers"` // polling workers
	Language string `yaml:"language"`
	// InlineCacheSeconds is passed to answerInlineQuery. Results are personal, so keep it low.
	InlineCacheSeconds int `yaml:"inline_cache_seconds"`
	// Disabled skips Telegram entirely: no polling, admin sends are only logged.
	Disabled bool `yaml:"disabled"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LinkConfig holds the attribution parameters appended to every tracked link.
type LinkConfig struct {
	UTMSource      string `yaml:"utm_source"`
	UTMMedium      string `yaml:"utm_medium"`
	UTMCampaign    string `yaml:"utm_campaign"`
	RefPrefix      string `yaml:"ref_prefix"`
	TrackingPrefix string `yaml:"tracking_prefix"`
}

type SearchConfig struct {
	DisplayLimit int `yaml:"display_limit"` // max inline results
	PageSize     int `yaml:"page_size"`     // /merchants page size
	Examples     int `yaml:"examples"`      // merchants listed in the not-found fallback
}

type AnalyticsConfig struct {
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
	StatsDays int           `yaml:"stats_days"`
	// DigestInterval is how often window totals are logged and exported as gauges.
	DigestInterval time.Duration `yaml:"digest_interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Links     LinkConfig      `yaml:"links"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays environment variables
// (optionally from a .env file next to the binary) and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg, err := ReadConfig(path, dev)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation, for tools that need only part
// of the file. A missing file yields defaults plus environment overrides.
func ReadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.Runtime.Dev = dev
	cfg.Runtime.BotUsername = strings.TrimPrefix(cfg.Bot.Username, "@")
	return cfg, nil
}

// Parse decodes raw YAML and fills defaults without validating required fields.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Bot.InlineCacheSeconds < 0 {
		cfg.Bot.InlineCacheSeconds = 0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Links.UTMSource == "" {
		cfg.Links.UTMSource = "telegram"
	}
	if cfg.Links.UTMMedium == "" {
		cfg.Links.UTMMedium = "inline_bot"
	}
	if cfg.Links.UTMCampaign == "" {
		cfg.Links.UTMCampaign = "viral_share"
	}
	if cfg.Links.RefPrefix == "" {
		cfg.Links.RefPrefix = "tg_"
	}
	if cfg.Links.TrackingPrefix == "" {
		cfg.Links.TrackingPrefix = "tg"
	}

	// Telegram accepts at most 50 inline results
	if cfg.Search.DisplayLimit <= 0 || cfg.Search.DisplayLimit > 50 {
		cfg.Search.DisplayLimit = 10
	}
	if cfg.Search.PageSize <= 0 {
		cfg.Search.PageSize = 8
	}
	if cfg.Search.Examples <= 0 {
		cfg.Search.Examples = 5
	}

	if cfg.Analytics.Workers <= 0 {
		cfg.Analytics.Workers = 4
	}
	if cfg.Analytics.Timeout <= 0 {
		cfg.Analytics.Timeout = 5 * time.Second
	}
	if cfg.Analytics.StatsDays <= 0 {
		cfg.Analytics.StatsDays = 7
	}
	if cfg.Analytics.DigestInterval <= 0 {
		cfg.Analytics.DigestInterval = time.Hour
	}
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
}

// Validate checks the minimal set of fields the bot cannot start without.
func (cfg *Config) Validate() error {
	if cfg.Bot.Token == "" && !cfg.Bot.Disabled {
		return errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if strings.ToLower(cfg.Bot.Mode) != "polling" {
		return fmt.Errorf("bot.mode=%s is not supported, use polling", cfg.Bot.Mode)
	}
	return nil
}

// minCacheTTL keeps the cache warmer, which runs every TTL/2, from spinning.
const minCacheTTL = 10 * time.Second

func normalizeTTL(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return 10 * time.Minute
	case d < minCacheTTL:
		return minCacheTTL
	}
	return d
}
