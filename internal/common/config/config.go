// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// AuthConfig holds the shared bearer token callers must present. The
// verified token doubles as the rate-limit identity.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Policy Sections ---

// WindowConfig bounds requests per identity over a fixed window.
type WindowConfig struct {
	Limit  int `mapstructure:"limit"`
	Window int `mapstructure:"window"` // milliseconds
}

// RateLimitConfig holds per-operation budgets. FailOpen selects the
// policy when the counter store is unreachable: true admits the request,
// false (default) rejects it.
type RateLimitConfig struct {
	Analyze  WindowConfig `mapstructure:"analyze"`
	Chat     WindowConfig `mapstructure:"chat"`
	FailOpen bool         `mapstructure:"fail_open"`
}

type CacheConfig struct {
	ContentTTL  int `mapstructure:"content_ttl"`  // milliseconds
	AnalysisTTL int `mapstructure:"analysis_ttl"` // milliseconds
}

type ScraperConfig struct {
	Timeout      int    `mapstructure:"timeout"` // milliseconds
	MaxRedirects int    `mapstructure:"max_redirects"`
	// MaxContentChars bounds the page text handed to the model: the
	// leading N runes of the normalized text are kept, the rest dropped.
	MaxContentChars int    `mapstructure:"max_content_chars"`
	UserAgent       string `mapstructure:"user_agent"`
}

// --- Model Backend Config ---

type LLMConfig struct {
	Groq         GroqConfig   `mapstructure:"groq"`
	Ollama       OllamaConfig `mapstructure:"ollama"`
	MaxTokens    int          `mapstructure:"max_tokens"`
	Temperature  float64      `mapstructure:"temperature"`
	HistoryTurns int          `mapstructure:"history_turns"`
}

type GroqConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type OllamaConfig struct {
	Host    string `mapstructure:"host"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
