// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GROQ_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Auth.APIKey == "" {
		if val := os.Getenv("APP_SECRET_KEY"); val != "" {
			cfg.Auth.APIKey = val
		}
	}

	if cfg.LLM.Groq.APIKey == "" {
		if val := os.Getenv("GROQ_API_KEY"); val != "" {
			cfg.LLM.Groq.APIKey = val
		}
	}

	if cfg.LLM.Ollama.Host == "" {
		if val := os.Getenv("OLLAMA_HOST"); val != "" {
			cfg.LLM.Ollama.Host = val
		}
	}

	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.RateLimit.Analyze.Limit == 0 {
		cfg.RateLimit.Analyze.Limit = 5
	}
	if cfg.RateLimit.Analyze.Window == 0 {
		cfg.RateLimit.Analyze.Window = 60000
	}
	if cfg.RateLimit.Chat.Limit == 0 {
		cfg.RateLimit.Chat.Limit = 15
	}
	if cfg.RateLimit.Chat.Window == 0 {
		cfg.RateLimit.Chat.Window = 60000
	}

	if cfg.Cache.ContentTTL == 0 {
		cfg.Cache.ContentTTL = 600000 // 10 minutes
	}
	if cfg.Cache.AnalysisTTL == 0 {
		cfg.Cache.AnalysisTTL = 1800000 // 30 minutes
	}

	if cfg.Scraper.Timeout == 0 {
		cfg.Scraper.Timeout = 20000
	}
	if cfg.Scraper.MaxRedirects == 0 {
		cfg.Scraper.MaxRedirects = 5
	}
	if cfg.Scraper.MaxContentChars == 0 {
		cfg.Scraper.MaxContentChars = 16000
	}
	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"
	}

	if cfg.LLM.Groq.BaseURL == "" {
		cfg.LLM.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Groq.Model == "" {
		cfg.LLM.Groq.Model = "llama3-8b-8192"
	}
	if cfg.LLM.Groq.Timeout == 0 {
		cfg.LLM.Groq.Timeout = 60000
	}
	if cfg.LLM.Ollama.Host == "" {
		cfg.LLM.Ollama.Host = "http://localhost:11434"
	}
	if cfg.LLM.Ollama.Model == "" {
		cfg.LLM.Ollama.Model = "tinyllama"
	}
	if cfg.LLM.Ollama.Timeout == 0 {
		cfg.LLM.Ollama.Timeout = 60000
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.HistoryTurns == 0 {
		cfg.LLM.HistoryTurns = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required (set APP_SECRET_KEY)")
	}
	if cfg.RateLimit.Analyze.Limit < 1 || cfg.RateLimit.Chat.Limit < 1 {
		return fmt.Errorf("rate_limit limits must be positive")
	}
	return nil
}
