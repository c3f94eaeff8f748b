package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	OpenAI OpenAIConfig
	Review ReviewConfig
	Search SearchConfig
	Redis  RedisConfig
	Server ServerConfig
	Slack  SlackConfig
}

// OpenAIConfig holds LLM provider settings.
type OpenAIConfig struct {
	APIKey  string //nolint:gosec // G117: provider credential config
	BaseURL string
	Model   string
}

// ReviewConfig holds review engine settings.
type ReviewConfig struct {
	PapersPerReview int
	MaxSessions     int
	MaxTurns        int
	PlannerMaxTurns int
	ApprovalToken   string
}

// SearchConfig holds paper search provider settings.
type SearchConfig struct {
	SemanticScholarAPIKey string //nolint:gosec // G117: provider credential config
	RequestTimeout        time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// SlackConfig holds optional completion notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only; the OpenAI API key has no
// default and must be set before any review can start.
func Load() (*Config, error) {
	papersPerReview, err := getEnvInt("LITREV_PAPERS_PER_REVIEW", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxSessions, err := getEnvInt("LITREV_MAX_SESSIONS", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxTurns, err := getEnvInt("LITREV_MAX_TURNS", 6)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	plannerMaxTurns, err := getEnvInt("LITREV_PLANNER_MAX_TURNS", 2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	searchTimeout, err := getEnvDuration("LITREV_SEARCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("LITREV_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("LITREV_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("LITREV_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("LITREV_CORS_ORIGINS", []string{"http://localhost:3000"})

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("LITREV_OPENAI_API_KEY", ""),
			BaseURL: getEnv("LITREV_OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("LITREV_DEFAULT_MODEL", "gpt-4o-mini"),
		},
		Review: ReviewConfig{
			PapersPerReview: papersPerReview,
			MaxSessions:     maxSessions,
			MaxTurns:        maxTurns,
			PlannerMaxTurns: plannerMaxTurns,
			ApprovalToken:   getEnv("LITREV_APPROVAL_TOKEN", "APPROVED"),
		},
		Search: SearchConfig{
			SemanticScholarAPIKey: getEnv("LITREV_SEMANTIC_SCHOLAR_API_KEY", ""),
			RequestTimeout:        searchTimeout,
		},
		Redis: RedisConfig{
			Addr:     getEnv("LITREV_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("LITREV_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("LITREV_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Slack: SlackConfig{
			BotToken: getEnv("LITREV_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("LITREV_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// The OpenAI key is required (no insecure default).
	if c.OpenAI.APIKey == "" {
		return errors.New("LITREV_OPENAI_API_KEY is required")
	}

	if c.Search.SemanticScholarAPIKey == "" {
		log.Warn().Msg("LITREV_SEMANTIC_SCHOLAR_API_KEY not set; Semantic Scholar requests are heavily rate limited without a key")
	}

	// Bounds checks.
	if c.Review.PapersPerReview < 1 || c.Review.PapersPerReview > 20 {
		return fmt.Errorf("LITREV_PAPERS_PER_REVIEW must be 1-20, got %d", c.Review.PapersPerReview)
	}
	if c.Review.MaxSessions < 1 {
		return fmt.Errorf("LITREV_MAX_SESSIONS must be >= 1, got %d", c.Review.MaxSessions)
	}
	if c.Review.MaxTurns < 3 {
		return fmt.Errorf("LITREV_MAX_TURNS must be >= 3 (one search, one summary, one critique), got %d", c.Review.MaxTurns)
	}
	if c.Review.PlannerMaxTurns < 1 {
		return fmt.Errorf("LITREV_PLANNER_MAX_TURNS must be >= 1, got %d", c.Review.PlannerMaxTurns)
	}
	if c.Review.ApprovalToken == "" {
		return errors.New("LITREV_APPROVAL_TOKEN must not be empty")
	}
	if strings.ContainsAny(c.Review.ApprovalToken, "\r\n") {
		return errors.New("LITREV_APPROVAL_TOKEN must be a single line")
	}
	if c.Search.RequestTimeout <= 0 {
		return fmt.Errorf("LITREV_SEARCH_TIMEOUT must be positive, got %s", c.Search.RequestTimeout)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("LITREV_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("LITREV_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return errors.New("LITREV_SLACK_CHANNEL is required when LITREV_SLACK_BOT_TOKEN is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
