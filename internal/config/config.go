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
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultLLMModel    = "llama-3.1-8b-instant"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DB       DBConfig
	Auth     AuthConfig
	LLM      LLMConfig
	CORS     []string
	AIPerMin int
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file, ":memory:" allowed
}

// DSN builds the postgres connection string the same way for the server
// and the migrate command.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type AuthConfig struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set in the process win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:     getenv("PORT", "8080"),
		GinMode:  os.Getenv("GIN_MODE"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		DB: DBConfig{
			Driver:   strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
			Path:     getenv("DB_PATH", "qaforum.db"),
		},
		Auth: AuthConfig{
			Secret: []byte(os.Getenv("JWT_SECRET")),
			Issuer: getenv("JWT_ISSUER", "qa-forum"),
		},
		LLM: LLMConfig{
			APIKey:  firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("GROQ_API_KEY"), os.Getenv("OPENAI_API_KEY")),
			BaseURL: getenv("LLM_BASE_URL", defaultGroqBaseURL),
			Model:   getenv("LLM_MODEL", defaultLLMModel),
		},
		CORS: splitList(getenv("CORS_ALLOW_ORIGINS", "*")),
	}

	var err error
	if cfg.Auth.TokenTTL, err = durationEnv("TOKEN_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LLM.Timeout, err = durationEnv("LLM_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.AIPerMin, err = intEnv("ASSISTANT_RATE_PER_MINUTE", 6); err != nil {
		return nil, err
	}

	switch cfg.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DB.Driver)
	}
	if len(cfg.Auth.Secret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
