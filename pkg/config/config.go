package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultCatalogURL = "https://www.auchan.ru/catalog/sobstvennye-marki-ashan/"
	defaultBaseURL    = "https://www.auchan.ru"
	defaultRegions    = "Москва=1,Санкт-Петербург=2"
)

// Region pairs a human-readable region name with the identifier the site
// expects in the region_id cookie.
type Region struct {
	Name string
	ID   string
}

// DefaultRegions returns a new slice on every call so callers may modify it.
func DefaultRegions() []Region {
	return []Region{{Name: "Москва", ID: "1"}}
}

// Config holds all configuration for the application
type Config struct {
	Environment   string
	IsProduction  bool
	IsDevelopment bool

	// Crawl target
	CatalogURL string
	BaseURL    string
	Pages      int
	Regions    []Region

	// Output
	OutputPath    string
	SelectorsFile string
	LogDir        string

	// HTTP and retry behaviour
	HTTPTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RetryBackoff  float64

	// MongoDB Configuration (optional)
	MongoDBURI      string
	MongoDBDatabase string

	// Discord Configuration (optional)
	DiscordToken     string
	ProductChannelID string

	// S3 Configuration (optional)
	S3Bucket  string
	S3Key     string
	AWSRegion string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		CatalogURL:       getEnv("CATALOG_URL", defaultCatalogURL),
		BaseURL:          strings.TrimRight(getEnv("BASE_URL", defaultBaseURL), "/"),
		OutputPath:       getEnv("OUTPUT_PATH", "auchan.json"),
		SelectorsFile:    getEnv("SELECTORS_FILE", ""),
		LogDir:           getEnv("LOG_DIR", "logs"),
		MongoDBURI:       getEnv("MONGODB_URI", ""),
		MongoDBDatabase:  getEnv("MONGODB_DATABASE", "auchan"),
		DiscordToken:     getEnv("DISCORD_TOKEN", ""),
		ProductChannelID: getEnv("PRODUCT_CHANNEL_ID", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Key:            getEnv("S3_KEY", "auchan.json"),
		AWSRegion:        getEnv("AWS_REGION", "eu-central-1"),
	}

	// Derived properties
	cfg.IsProduction = cfg.Environment == "production"
	cfg.IsDevelopment = !cfg.IsProduction

	var err error
	if cfg.Pages, err = getEnvInt("PAGES", 1); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = getEnvInt("RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	timeoutSeconds, err := getEnvInt("HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	delayMillis, err := getEnvInt("RETRY_DELAY_MS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.RetryDelay = time.Duration(delayMillis) * time.Millisecond

	cfg.RetryBackoff, err = strconv.ParseFloat(getEnv("RETRY_BACKOFF", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("RETRY_BACKOFF: %w", err)
	}

	cfg.Regions, err = ParseRegions(getEnv("REGIONS", defaultRegions))
	if err != nil {
		return nil, err
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("CATALOG_URL environment variable is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL environment variable is required")
	}
	if c.Pages < 1 {
		return fmt.Errorf("PAGES must be positive, got %d", c.Pages)
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive, got %d", c.RetryAttempts)
	}
	if c.RetryBackoff < 1 {
		return fmt.Errorf("RETRY_BACKOFF must be at least 1, got %v", c.RetryBackoff)
	}
	if c.DiscordToken != "" && c.ProductChannelID == "" {
		return fmt.Errorf("PRODUCT_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}

	return nil
}

// ParseRegions parses an ordered "Name=ID,Name=ID" list. An empty string
// yields DefaultRegions.
func ParseRegions(s string) ([]Region, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultRegions(), nil
	}

	var regions []Region
	seen := make(map[string]bool)
	seenIDs := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, id, ok := strings.Cut(part, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid region %q: want Name=ID", part)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate region %q", name)
		}
		if seenIDs[id] {
			return nil, fmt.Errorf("duplicate region id %q", id)
		}
		seen[name] = true
		seenIDs[id] = true

		regions = append(regions, Region{Name: name, ID: id})
	}

	if len(regions) == 0 {
		return DefaultRegions(), nil
	}
	return regions, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
