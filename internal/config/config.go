package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	CORSOrigins string `yaml:"cors_origins"`

	// Store
	StoreDriver string `yaml:"store_driver"` // postgres, sqlite or mongo

	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`

	SQLitePath string `yaml:"sqlite_path"`

	MongoURL string `yaml:"mongo_url"`
	MongoDB  string `yaml:"mongo_db"`

	// Auth
	JWTSecret                string `yaml:"jwt_secret"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes"`

	// Completion
	CompletionProvider string        `yaml:"completion_provider"` // ollama, openai or none
	OllamaBaseURL      string        `yaml:"ollama_base_url"`
	OllamaModel        string        `yaml:"ollama_model"`
	OpenAIAPIKey       string        `yaml:"openai_api_key"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	OpenAIModel        string        `yaml:"openai_model"`
	GenerationTimeout  time.Duration `yaml:"-"`

	GenerationTimeoutRaw string `yaml:"generation_timeout"`
}

// Load builds the config from defaults, an optional YAML file named by
// CONFIG_FILE, and the environment, in that order of precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnv("DB_SSLMODE", cfg.DBSSLMode)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.MongoURL = getEnv("MONGO_URL", cfg.MongoURL)
	cfg.MongoDB = getEnv("MONGO_DB", cfg.MongoDB)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CompletionProvider = strings.ToLower(getEnv("COMPLETION_PROVIDER", cfg.CompletionProvider))
	cfg.OllamaBaseURL = getEnv("OLLAMA_BASE_URL", cfg.OllamaBaseURL)
	cfg.OllamaModel = getEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GenerationTimeoutRaw = getEnv("GENERATION_TIMEOUT", cfg.GenerationTimeoutRaw)

	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
		}
		cfg.AccessTokenExpireMinutes = n
	}

	d, err := time.ParseDuration(cfg.GenerationTimeoutRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing generation timeout %q: %w", cfg.GenerationTimeoutRaw, err)
	}
	cfg.GenerationTimeout = d

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                     "8000",
		Environment:              "development",
		LogLevel:                 "info",
		CORSOrigins:              "http://localhost:3000",
		StoreDriver:              "postgres",
		DBHost:                   "localhost",
		DBPort:                   "5432",
		DBUser:                   "postgres",
		DBName:                   "promptdesk",
		DBSSLMode:                "disable",
		SQLitePath:               "promptdesk.db",
		MongoURL:                 "mongodb://localhost:27017",
		MongoDB:                  "promptdesk",
		AccessTokenExpireMinutes: 30,
		CompletionProvider:       "ollama",
		OllamaBaseURL:            "http://localhost:11434",
		OllamaModel:              "llama3.1",
		OpenAIBaseURL:            "https://api.openai.com/v1",
		OpenAIModel:              "gpt-4o-mini",
		GenerationTimeoutRaw:     "120s",
	}
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks the settings that the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.CompletionProvider {
	case "ollama", "none":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown completion provider %q", c.CompletionProvider)
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("access token expiry must be positive")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}
	return nil
}

// CORSOriginList splits the comma-separated CORSOrigins value.
func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
