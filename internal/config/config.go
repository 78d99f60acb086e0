package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/pad-chat/internal/db"
	"github.com/RichardoC/pad-chat/internal/llm"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Environment    string
	ServerPort     string
	LogLevel       string
	StorageBackend string
	StoragePath    string
	LLMProvider    string
	LLMBaseURL     string
	LLMModel       string
	// LLMAPIKey seeds the completion client at startup when set.
	LLMAPIKey      string
	LLMTimeout     time.Duration
	LLMTemperature float64
	TitleLength    int
	JWTSecretKey   string
}

// Load reads configuration from environment variables or .env file.
func Load() (*Config, error) {
	env := getEnv("ENV", "development")
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		Environment:    env,
		ServerPort:     getEnv("SERVER_PORT", "8100"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StorageBackend: getEnv("STORAGE_BACKEND", db.BackendSQLite),
		StoragePath:    getEnv("STORAGE_PATH", "pad-chat.db"),
		LLMProvider:    getEnv("LLM_PROVIDER", llm.ProviderLangChain),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "http://localhost:11434/v1/"),
		LLMModel:       getEnv("LLM_MODEL", "llama3.1:8b"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		TitleLength:    getEnvAsInt("TITLE_LENGTH", 30),
		JWTSecretKey:   getEnv("JWT_SECRET_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	switch c.StorageBackend {
	case db.BackendSQLite, db.BackendGorm, db.BackendMemory:
	default:
		err = multierr.Append(err, fmt.Errorf("STORAGE_BACKEND must be sqlite, gorm or memory, got %q", c.StorageBackend))
	}
	if c.StorageBackend != db.BackendMemory && c.StoragePath == "" {
		err = multierr.Append(err, fmt.Errorf("STORAGE_PATH is required for %s storage", c.StorageBackend))
	}
	switch c.LLMProvider {
	case llm.ProviderLangChain, llm.ProviderOpenAI:
	default:
		err = multierr.Append(err, fmt.Errorf("LLM_PROVIDER must be langchain or openai, got %q", c.LLMProvider))
	}
	if c.LLMModel == "" {
		err = multierr.Append(err, fmt.Errorf("LLM_MODEL is required"))
	}
	if c.LLMTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("LLM_TIMEOUT must be positive"))
	}
	if c.TitleLength <= 0 {
		err = multierr.Append(err, fmt.Errorf("TITLE_LENGTH must be positive"))
	}
	if c.IsProduction() && c.JWTSecretKey == "" {
		err = multierr.Append(err, fmt.Errorf("JWT_SECRET_KEY is required in production"))
	}
	return err
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

// ProviderConfig returns the completion provider settings.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Name:        c.LLMProvider,
		BaseURL:     c.LLMBaseURL,
		Model:       c.LLMModel,
		Temperature: c.LLMTemperature,
	}
}

func isProduction(env string) bool {
	return strings.ToLower(env) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as number. Using default value.", key)
		return defaultValue
	}
	return v
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}
