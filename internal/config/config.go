package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CE_COLLECTOR_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	gnewsKeyEnv       = "GNEWS_API_KEY"
	newsAPIKeyEnv     = "NEWSAPI_KEY"
	guardianKeyEnv    = "GUARDIAN_API_KEY"
	serpAPIKeyEnv     = "SERP_API_KEY"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	databasePathEnv   = "DATABASE_PATH"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Quotas        QuotaConfig        `yaml:"quotas"`
	RSSFeeds      []FeedConfig       `yaml:"rssFeeds"`
	ScrapeSeeds   []SeedConfig       `yaml:"scrapeSeeds"`
	APIs          APIsConfig         `yaml:"apis"`
	Scholar       ScholarConfig      `yaml:"scholar"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Database      DatabaseConfig     `yaml:"database"`
	Output        OutputConfig       `yaml:"output"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig tunes the shared fetcher.
type HTTPConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	Retries          int           `yaml:"retries"`
	BaseDelay        time.Duration `yaml:"baseDelay"`
	UserAgent        string        `yaml:"userAgent"`
	BrowserUserAgent string        `yaml:"browserUserAgent"`
}

// QuotaConfig is the run target and per-phase ceilings.
type QuotaConfig struct {
	Target int `yaml:"target"`
	RSS    int `yaml:"rss"`
	API    int `yaml:"api"`
	Scrape int `yaml:"scrape"`
}

// FeedConfig is a single RSS/Atom endpoint.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SeedConfig is a scrape start page. MaxDepth defaults to 1 when omitted.
type SeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	MaxDepth *int   `yaml:"maxDepth"`
}

// Depth resolves the crawl depth of the seed.
func (s SeedConfig) Depth() int {
	if s.MaxDepth == nil {
		return 1
	}
	return *s.MaxDepth
}

// APIsConfig groups the news search backends in priority order.
type APIsConfig struct {
	GNews    APIConfig `yaml:"gnews"`
	NewsAPI  APIConfig `yaml:"newsapi"`
	Guardian APIConfig `yaml:"guardian"`
}

// APIConfig describes one news search backend.
type APIConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"apiKey"`
	Queries      []string      `yaml:"queries"`
	MaxResults   int           `yaml:"maxResults"`
	PageSize     int           `yaml:"pageSize"`
	LookbackDays int           `yaml:"lookbackDays"`
	Delay        time.Duration `yaml:"delay"`
}

// ScholarConfig drives the academic search collector.
type ScholarConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"apiKey"`
	Queries         []string      `yaml:"queries"`
	MaxPapers       int           `yaml:"maxPapers"`
	ResultsPerQuery int           `yaml:"resultsPerQuery"`
	Delay           time.Duration `yaml:"delay"`
}

// ClassifierConfig defines how to contact the LLM API.
type ClassifierConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"apiKey"`
	MaxContent int           `yaml:"maxContent"`
	Retries    int           `yaml:"retries"`
	RetryWait  time.Duration `yaml:"retryWait"`
	Delay      time.Duration `yaml:"delay"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig names the dataset and report locations.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	ReportDir string `yaml:"reportDir"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	Endpoint string `yaml:"endpoint"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Parse decodes YAML over the defaults. Zero values left by the file are
// filled back from the defaults.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{logLevelEnv, &c.Logging.Level},
		{gnewsKeyEnv, &c.APIs.GNews.APIKey},
		{newsAPIKeyEnv, &c.APIs.NewsAPI.APIKey},
		{guardianKeyEnv, &c.APIs.Guardian.APIKey},
		{serpAPIKeyEnv, &c.Scholar.APIKey},
		{llmAPIKeyEnv, &c.Classifier.APIKey},
		{llmModelEnv, &c.Classifier.Model},
		{databasePathEnv, &c.Database.Path},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) fillDefaults() {
	def := defaultConfig()

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}

	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = def.HTTP.Timeout
	}
	if c.HTTP.Retries <= 0 {
		c.HTTP.Retries = def.HTTP.Retries
	}
	if c.HTTP.BaseDelay <= 0 {
		c.HTTP.BaseDelay = def.HTTP.BaseDelay
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = def.HTTP.UserAgent
	}
	if c.HTTP.BrowserUserAgent == "" {
		c.HTTP.BrowserUserAgent = def.HTTP.BrowserUserAgent
	}

	if c.Quotas.Target <= 0 {
		c.Quotas.Target = def.Quotas.Target
	}

	mergeAPI(&c.APIs.GNews, def.APIs.GNews)
	mergeAPI(&c.APIs.NewsAPI, def.APIs.NewsAPI)
	mergeAPI(&c.APIs.Guardian, def.APIs.Guardian)

	if c.Scholar.Endpoint == "" {
		c.Scholar.Endpoint = def.Scholar.Endpoint
	}
	if len(c.Scholar.Queries) == 0 {
		c.Scholar.Queries = def.Scholar.Queries
	}
	if c.Scholar.MaxPapers <= 0 {
		c.Scholar.MaxPapers = def.Scholar.MaxPapers
	}
	if c.Scholar.ResultsPerQuery <= 0 {
		c.Scholar.ResultsPerQuery = def.Scholar.ResultsPerQuery
	}

	if c.Classifier.Endpoint == "" {
		c.Classifier.Endpoint = def.Classifier.Endpoint
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = def.Classifier.Model
	}
	if c.Classifier.MaxContent <= 0 {
		c.Classifier.MaxContent = def.Classifier.MaxContent
	}
	if c.Classifier.Retries <= 0 {
		c.Classifier.Retries = def.Classifier.Retries
	}
	if c.Classifier.RetryWait <= 0 {
		c.Classifier.RetryWait = def.Classifier.RetryWait
	}
	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = def.Classifier.Timeout
	}

	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Output.ReportDir == "" {
		c.Output.ReportDir = def.Output.ReportDir
	}
	if c.Notifications.Telegram.Endpoint == "" {
		c.Notifications.Telegram.Endpoint = def.Notifications.Telegram.Endpoint
	}
}

func mergeAPI(dst *APIConfig, def APIConfig) {
	if dst.Endpoint == "" {
		dst.Endpoint = def.Endpoint
	}
	if len(dst.Queries) == 0 {
		dst.Queries = def.Queries
	}
	if dst.MaxResults <= 0 {
		dst.MaxResults = def.MaxResults
	}
	if dst.PageSize <= 0 {
		dst.PageSize = def.PageSize
	}
	if dst.LookbackDays <= 0 {
		dst.LookbackDays = def.LookbackDays
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Timeout:          30 * time.Second,
			Retries:          3,
			BaseDelay:        time.Second,
			UserAgent:        "CivilEngineeringAI-NewsBot/1.0 (Academic Research)",
			BrowserUserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Quotas: QuotaConfig{Target: 700, RSS: 300, API: 250, Scrape: 150},
		RSSFeeds: []FeedConfig{
			{Name: "Construction Dive", URL: "https://www.constructiondive.com/feeds/news/"},
			{Name: "ENR", URL: "https://www.enr.com/rss/articles"},
			{Name: "New Civil Engineer", URL: "https://www.newcivilengineer.com/feed"},
			{Name: "ASCE Civil Engineering Source", URL: "https://www.asce.org/publications-and-news/civil-engineering-source/rss"},
		},
		ScrapeSeeds: []SeedConfig{
			{Name: "Construction Dive Technology", URL: "https://www.constructiondive.com/topic/technology/"},
			{Name: "New Civil Engineer Latest", URL: "https://www.newcivilengineer.com/latest/"},
		},
		APIs: APIsConfig{
			GNews: APIConfig{
				Endpoint: "https://gnews.io/api/v4/search",
				Queries: []string{
					`"civil engineering" AND (AI OR "artificial intelligence")`,
					`construction AND (AI OR "machine learning" OR automation)`,
					`infrastructure AND ("artificial intelligence" OR robotics)`,
					`"structural engineering" AND (AI OR "deep learning")`,
					`building AND ("computer vision" OR "predictive maintenance")`,
					`BIM AND (AI OR "machine learning")`,
					`"smart construction" OR "construction technology"`,
					`"digital twin" AND (construction OR infrastructure)`,
				},
				MaxResults:   100,
				PageSize:     10,
				LookbackDays: 365,
				Delay:        time.Second,
			},
			NewsAPI: APIConfig{
				Endpoint: "https://newsapi.org/v2/everything",
				Queries: []string{
					"civil engineering AI",
					"construction technology",
					"infrastructure artificial intelligence",
					"smart building automation",
				},
				MaxResults:   50,
				PageSize:     20,
				LookbackDays: 30,
				Delay:        time.Second,
			},
			Guardian: APIConfig{
				Endpoint: "https://content.guardianapis.com/search",
				Queries: []string{
					"civil engineering",
					"construction technology",
					"infrastructure AI",
				},
				MaxResults:   50,
				PageSize:     20,
				LookbackDays: 365,
				Delay:        500 * time.Millisecond,
			},
		},
		Scholar: ScholarConfig{
			Endpoint: "https://serpapi.com/search",
			Queries: []string{
				"civil engineering artificial intelligence",
				"construction machine learning",
				"infrastructure AI deep learning",
				"structural engineering neural network",
				"BIM artificial intelligence",
				"smart construction automation",
				"digital twin construction",
				"construction robotics",
				"predictive maintenance infrastructure",
				"computer vision construction",
				"3D printing construction AI",
				"green building machine learning",
				"autonomous construction equipment",
				"IoT construction monitoring",
				"construction safety AI",
			},
			MaxPapers:       200,
			ResultsPerQuery: 20,
			Delay:           time.Second,
		},
		Classifier: ClassifierConfig{
			Endpoint:   "https://api.openai.com/v1/chat/completions",
			Model:      "gpt-4o-mini",
			MaxContent: 2000,
			Retries:    3,
			RetryWait:  5 * time.Second,
			Delay:      4 * time.Second,
			Timeout:    60 * time.Second,
		},
		Database: DatabaseConfig{Path: "data/processed/articles.db"},
		Output:   OutputConfig{Dir: "data/raw", ReportDir: "reports"},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{Endpoint: "https://api.telegram.org"},
		},
	}
}
