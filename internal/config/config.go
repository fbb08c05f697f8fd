package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/extract"
)

const (
	defaultTimezone      = "UTC"
	defaultMinInterval   = 6 * 24 * time.Hour
	defaultFetchTimeout  = 3 * time.Minute
	defaultMaxCandidates = 10
	defaultAPITimeout    = 30 * time.Second

	configPathEnv     = "ENGAGEMENT_SYNC_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	rapidAPIKeyEnv    = "RAPIDAPI_KEY"
	mediumAPIKeyEnv   = "MEDIUM_API_KEY"
	linkedInAPIKeyEnv = "LINKEDIN_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	State         StateConfig        `yaml:"state"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	APIs          APIConfig          `yaml:"apis"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when the daemon runs a cycle.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// StateConfig points at the freshness bookkeeping file.
type StateConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig describes the optional Postgres history store. Empty DSN disables it.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	ListenAddr   string `yaml:"listenAddr"`
	TextfilePath string `yaml:"textfilePath"`
}

// APIConfig groups the RapidAPI-hosted collaborators.
type APIConfig struct {
	Medium     RapidAPIConfig `yaml:"medium"`
	LinkedIn   RapidAPIConfig `yaml:"linkedin"`
	Timeout    time.Duration  `yaml:"timeout"`
	RetryCount int            `yaml:"retryCount"`
}

// RapidAPIConfig identifies one RapidAPI host.
type RapidAPIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"apiKey"`
}

// StrategyConfig names one fetch strategy of a source and its options.
type StrategyConfig struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

// SourceConfig describes one tracked source and the ordered strategies that can fetch it.
type SourceConfig struct {
	Name          string            `yaml:"name"`
	Kind          domain.SourceKind `yaml:"kind"`
	Strategies    []StrategyConfig  `yaml:"strategies"`
	SnapshotPath  string            `yaml:"snapshotPath"`
	MinInterval   time.Duration     `yaml:"minInterval"`
	FetchTimeout  time.Duration     `yaml:"fetchTimeout"`
	MaxCandidates int               `yaml:"maxCandidates"`
	RetainMissing bool              `yaml:"retainMissing"`
	// Author fills records whose payload carries no author.
	Author     string            `yaml:"author"`
	Fields     *extract.FieldMap `yaml:"fields"`
	Estimation *extract.Policy   `yaml:"estimation"`
}

// FieldMap returns the configured field map or the kind default.
func (s SourceConfig) FieldMap() extract.FieldMap {
	if s.Fields != nil {
		return *s.Fields
	}
	return extract.DefaultFieldMap(s.Kind)
}

// Policy returns the configured estimation policy or the kind default.
func (s SourceConfig) Policy() extract.Policy {
	if s.Estimation != nil {
		return *s.Estimation
	}
	return extract.DefaultPolicy(s.Kind)
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
// An explicit path wins over ENGAGEMENT_SYNC_CONFIG.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.applySourceDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that sources are usable.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config: no sources configured")
	}
	names := map[string]struct{}{}
	kinds := map[domain.SourceKind]string{}
	for _, src := range c.Sources {
		if src.Name == "" {
			return errors.New("config: source without name")
		}
		if _, ok := names[src.Name]; ok {
			return fmt.Errorf("config: duplicate source %s", src.Name)
		}
		names[src.Name] = struct{}{}

		kind, err := domain.ParseSourceKind(string(src.Kind))
		if err != nil {
			return fmt.Errorf("config: source %s: %w", src.Name, err)
		}
		if other, ok := kinds[kind]; ok {
			return fmt.Errorf("config: sources %s and %s share kind %s", other, src.Name, kind)
		}
		kinds[kind] = src.Name

		if len(src.Strategies) == 0 {
			return fmt.Errorf("config: source %s has no strategies", src.Name)
		}
		if src.SnapshotPath == "" {
			return fmt.Errorf("config: source %s has no snapshotPath", src.Name)
		}
		if src.MinInterval < 0 || src.FetchTimeout < 0 {
			return fmt.Errorf("config: source %s has negative durations", src.Name)
		}
	}
	return nil
}

// Source finds a source by name.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(rapidAPIKeyEnv); v != "" {
		if c.APIs.Medium.APIKey == "" {
			c.APIs.Medium.APIKey = v
		}
		if c.APIs.LinkedIn.APIKey == "" {
			c.APIs.LinkedIn.APIKey = v
		}
	}
	if v := os.Getenv(mediumAPIKeyEnv); v != "" {
		c.APIs.Medium.APIKey = v
	}
	if v := os.Getenv(linkedInAPIKeyEnv); v != "" {
		c.APIs.LinkedIn.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func (c *Config) applySourceDefaults() {
	for i := range c.Sources {
		src := &c.Sources[i]
		src.Kind = domain.SourceKind(strings.ToLower(strings.TrimSpace(string(src.Kind))))
		if src.MinInterval == 0 {
			src.MinInterval = defaultMinInterval
		}
		if src.FetchTimeout == 0 {
			src.FetchTimeout = defaultFetchTimeout
		}
		if src.MaxCandidates == 0 {
			src.MaxCandidates = defaultMaxCandidates
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Metrics.ListenAddr != "" {
		base.Metrics.ListenAddr = override.Metrics.ListenAddr
	}
	if override.Metrics.TextfilePath != "" {
		base.Metrics.TextfilePath = override.Metrics.TextfilePath
	}

	base.APIs.Medium = mergeRapidAPI(base.APIs.Medium, override.APIs.Medium)
	base.APIs.LinkedIn = mergeRapidAPI(base.APIs.LinkedIn, override.APIs.LinkedIn)
	if override.APIs.Timeout != 0 {
		base.APIs.Timeout = override.APIs.Timeout
	}
	if override.APIs.RetryCount != 0 {
		base.APIs.RetryCount = override.APIs.RetryCount
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func mergeRapidAPI(base, override RapidAPIConfig) RapidAPIConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Host != "" {
		base.Host = override.Host
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		State:     StateConfig{Path: "data/sync-state.json"},
		APIs: APIConfig{
			Medium: RapidAPIConfig{
				BaseURL: "https://medium2.p.rapidapi.com",
				Host:    "medium2.p.rapidapi.com",
			},
			LinkedIn: RapidAPIConfig{
				BaseURL: "https://linkedin-data-scraper.p.rapidapi.com",
				Host:    "linkedin-data-scraper.p.rapidapi.com",
			},
			Timeout:    defaultAPITimeout,
			RetryCount: 2,
		},
		Sources: []SourceConfig{
			{
				Name: "medium",
				Kind: domain.KindArticle,
				Strategies: []StrategyConfig{
					{Name: "medium-api"},
					{Name: "medium-feed"},
				},
				SnapshotPath: "data/medium-articles.json",
			},
			{
				Name: "linkedin",
				Kind: domain.KindPost,
				Strategies: []StrategyConfig{
					{Name: "linkedin-api"},
				},
				SnapshotPath: "data/linkedin-posts.json",
			},
		},
	}
}
