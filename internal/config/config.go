package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWSRELAY_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	databasePathEnv   = "DATABASE_PATH"
	botTokenEnv       = "BOT_TOKEN"
	newsChannelEnv    = "CHANNEL_ID"
	jobsChannelEnv    = "JOB_CHANNEL_ID"
	ownerIDEnv        = "OWNER_ID"
	openRouterKeyEnv  = "OPENROUTER_API_KEY"
	adminAddrEnv      = "ADMIN_ADDR"

	// numbered keys are read until the first gap
	maxNumberedKeys = 32
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Translator TranslatorConfig `yaml:"translator"`
	News       NewsConfig       `yaml:"news"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Admin      AdminConfig      `yaml:"admin"`
}

// LoggingConfig selects the console log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig picks the dedup store backend.
// Driver is "sqlite" (DSN is a file path) or "postgres" (DSN is a lib/pq connection string).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the pollers run.
type SchedulerConfig struct {
	Interval       Duration       `yaml:"interval"`
	NewsStartDelay Duration       `yaml:"newsStartDelay"`
	JobsStartDelay Duration       `yaml:"jobsStartDelay"`
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

// TelegramConfig wires the bot and the target channels.
type TelegramConfig struct {
	BotToken         string   `yaml:"botToken"`
	OwnerID          int64    `yaml:"ownerId"`
	NewsChannel      string   `yaml:"newsChannel"`
	JobsChannel      string   `yaml:"jobsChannel"`
	NewsSubscribeURL string   `yaml:"newsSubscribeUrl"`
	JobsSubscribeURL string   `yaml:"jobsSubscribeUrl"`
	PollTimeout      Duration `yaml:"pollTimeout"`
}

// SummarizerConfig defines how to contact the chat-completions API.
type SummarizerConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	Model          string   `yaml:"model"`
	APIKeys        []string `yaml:"apiKeys"`
	Referer        string   `yaml:"referer"`
	Title          string   `yaml:"title"`
	Temperature    float64  `yaml:"temperature"`
	MaxTokens      int      `yaml:"maxTokens"`
	RetryBackoff   Duration `yaml:"retryBackoff"`
	PromptTemplate string   `yaml:"promptTemplate"`
	Timeout        Duration `yaml:"timeout"`
}

// TranslatorConfig describes the translation endpoint.
type TranslatorConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	SourceLang string   `yaml:"sourceLang"`
	TargetLang string   `yaml:"targetLang"`
	Timeout    Duration `yaml:"timeout"`
}

// NewsConfig tunes the Hacker News poller.
type NewsConfig struct {
	BaseURL           string   `yaml:"baseUrl"`
	DiscussionURL     string   `yaml:"discussionUrl"`
	TopN              int      `yaml:"topN"`
	MaxItemsPerRun    int      `yaml:"maxItemsPerRun"`
	PublishDelay      Duration `yaml:"publishDelay"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond"`
}

// JobsConfig tunes the remote jobs poller.
type JobsConfig struct {
	ListURL           string   `yaml:"listUrl"`
	Count             int      `yaml:"count"`
	MaxItemsPerRun    int      `yaml:"maxItemsPerRun"`
	PublishDelay      Duration `yaml:"publishDelay"`
	ExcerptRunes      int      `yaml:"excerptRunes"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond"`
}

// AdminConfig enables the HTTP admin API when ListenAddr is set.
type AdminConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// Duration accepts Go duration strings in YAML ("30m", "5s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports settings the process cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("config: %s is required", botTokenEnv)
	}
	if c.Telegram.NewsChannel == "" && c.Telegram.JobsChannel == "" {
		return fmt.Errorf("config: at least one of %s or %s is required", newsChannelEnv, jobsChannelEnv)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(botTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(newsChannelEnv); v != "" {
		c.Telegram.NewsChannel = v
	}
	if v := os.Getenv(jobsChannelEnv); v != "" {
		c.Telegram.JobsChannel = v
	}
	if v := os.Getenv(ownerIDEnv); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			c.Telegram.OwnerID = id
		} else {
			log.Printf("config: ignoring non-numeric %s", ownerIDEnv)
		}
	}

	if keys := keysFromEnv(); len(keys) > 0 {
		c.Summarizer.APIKeys = keys
	}

	if v := os.Getenv(adminAddrEnv); v != "" {
		c.Admin.ListenAddr = v
	}
}

// keysFromEnv collects OPENROUTER_API_KEY followed by OPENROUTER_API_KEY1..N.
func keysFromEnv() []string {
	var keys []string
	if v := strings.TrimSpace(os.Getenv(openRouterKeyEnv)); v != "" {
		keys = append(keys, v)
	}
	for i := 1; i <= maxNumberedKeys; i++ {
		v := strings.TrimSpace(os.Getenv(openRouterKeyEnv + strconv.Itoa(i)))
		if v == "" {
			break
		}
		keys = append(keys, v)
	}
	return keys
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

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	mergeDuration(&base.Scheduler.Interval, override.Scheduler.Interval)
	mergeDuration(&base.Scheduler.NewsStartDelay, override.Scheduler.NewsStartDelay)
	mergeDuration(&base.Scheduler.JobsStartDelay, override.Scheduler.JobsStartDelay)
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	t := override.Telegram
	mergeString(&base.Telegram.BotToken, t.BotToken)
	mergeString(&base.Telegram.NewsChannel, t.NewsChannel)
	mergeString(&base.Telegram.JobsChannel, t.JobsChannel)
	mergeString(&base.Telegram.NewsSubscribeURL, t.NewsSubscribeURL)
	mergeString(&base.Telegram.JobsSubscribeURL, t.JobsSubscribeURL)
	mergeDuration(&base.Telegram.PollTimeout, t.PollTimeout)
	if t.OwnerID != 0 {
		base.Telegram.OwnerID = t.OwnerID
	}

	s := override.Summarizer
	mergeString(&base.Summarizer.Endpoint, s.Endpoint)
	mergeString(&base.Summarizer.Model, s.Model)
	mergeString(&base.Summarizer.Referer, s.Referer)
	mergeString(&base.Summarizer.Title, s.Title)
	mergeString(&base.Summarizer.PromptTemplate, s.PromptTemplate)
	mergeDuration(&base.Summarizer.RetryBackoff, s.RetryBackoff)
	mergeDuration(&base.Summarizer.Timeout, s.Timeout)
	if len(s.APIKeys) > 0 {
		base.Summarizer.APIKeys = s.APIKeys
	}
	if s.Temperature > 0 {
		base.Summarizer.Temperature = s.Temperature
	}
	if s.MaxTokens > 0 {
		base.Summarizer.MaxTokens = s.MaxTokens
	}

	tr := override.Translator
	mergeString(&base.Translator.Endpoint, tr.Endpoint)
	mergeString(&base.Translator.SourceLang, tr.SourceLang)
	mergeString(&base.Translator.TargetLang, tr.TargetLang)
	mergeDuration(&base.Translator.Timeout, tr.Timeout)

	n := override.News
	mergeString(&base.News.BaseURL, n.BaseURL)
	mergeString(&base.News.DiscussionURL, n.DiscussionURL)
	mergeInt(&base.News.TopN, n.TopN)
	mergeInt(&base.News.MaxItemsPerRun, n.MaxItemsPerRun)
	mergeDuration(&base.News.PublishDelay, n.PublishDelay)
	if n.RequestsPerSecond > 0 {
		base.News.RequestsPerSecond = n.RequestsPerSecond
	}

	j := override.Jobs
	mergeString(&base.Jobs.ListURL, j.ListURL)
	mergeInt(&base.Jobs.Count, j.Count)
	mergeInt(&base.Jobs.MaxItemsPerRun, j.MaxItemsPerRun)
	mergeInt(&base.Jobs.ExcerptRunes, j.ExcerptRunes)
	mergeDuration(&base.Jobs.PublishDelay, j.PublishDelay)
	if j.RequestsPerSecond > 0 {
		base.Jobs.RequestsPerSecond = j.RequestsPerSecond
	}

	mergeString(&base.Admin.ListenAddr, override.Admin.ListenAddr)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func mergeDuration(dst *Duration, v Duration) {
	if v.Duration > 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "data/newsrelay.db"},
		Scheduler: SchedulerConfig{
			Interval:       Duration{30 * time.Minute},
			NewsStartDelay: Duration{5 * time.Second},
			JobsStartDelay: Duration{15 * time.Second},
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Telegram: TelegramConfig{
			NewsSubscribeURL: "https://t.me/hackernewru",
			JobsSubscribeURL: "https://t.me/remote_jobs_ru",
			PollTimeout:      Duration{10 * time.Second},
		},
		Summarizer: SummarizerConfig{
			Endpoint:     "https://openrouter.ai/api/v1/chat/completions",
			Model:        "deepseek/deepseek-chat-v3.1:free",
			Referer:      "https://t.me/hackernewru",
			Title:        "Hacker News RU",
			Temperature:  0.7,
			MaxTokens:    1000,
			RetryBackoff: Duration{5 * time.Second},
			Timeout:      Duration{90 * time.Second},
		},
		Translator: TranslatorConfig{
			Endpoint:   "https://translate.googleapis.com/translate_a/single",
			SourceLang: "en",
			TargetLang: "ru",
			Timeout:    Duration{15 * time.Second},
		},
		News: NewsConfig{
			BaseURL:           "https://hacker-news.firebaseio.com/v0",
			DiscussionURL:     "https://news.ycombinator.com/item?id=",
			TopN:              30,
			MaxItemsPerRun:    3,
			PublishDelay:      Duration{30 * time.Second},
			RequestsPerSecond: 5,
		},
		Jobs: JobsConfig{
			ListURL:           "https://jobicy.com/api/v2/remote-jobs",
			Count:             20,
			MaxItemsPerRun:    3,
			PublishDelay:      Duration{20 * time.Second},
			ExcerptRunes:      400,
			RequestsPerSecond: 1,
		},
	}
}
