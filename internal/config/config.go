package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration.
type Config struct {
	// DataDir holds the sqlite file, the session token, the secret and
	// the TUI log file.
	DataDir string

	DB       DBConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Study    StudyConfig
	Webhook  WebhookConfig
	LogLevel string
}

// DBConfig selects the SQL driver and its data source.
type DBConfig struct {
	// Driver is "sqlite" or "postgres". Default: sqlite.
	Driver string
	// DSN is a file path for sqlite or a connection URL for postgres.
	// Empty means <DataDir>/simulado.db.
	DSN string
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration // Default: 30 days
}

// CacheConfig configures in-process caches.
type CacheConfig struct {
	PlanTTL time.Duration // Default: 5m
}

// StudyConfig tunes the interactive study flow.
type StudyConfig struct {
	CountDebounce   time.Duration // Default: 500ms
	AnswerQueueSize int           // Default: 64
	// DistinctStats counts only the latest attempt per question.
	DistinctStats bool
}

// WebhookConfig configures the payment webhook server and gateway client.
type WebhookConfig struct {
	Addr          string // Default: ":8080"
	PaymentsURL   string
	PaymentsToken string
	// PublicURL is where the provider reaches this server. Checkout
	// notifications go to PublicURL plus the webhook path.
	PublicURL string
}

// Default returns a Config with sensible defaults. DataDir is left empty
// and resolved by FromEnv.
func Default() Config {
	return Config{
		DB: DBConfig{
			Driver: "sqlite",
		},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			PlanTTL: 5 * time.Minute,
		},
		Study: StudyConfig{
			CountDebounce:   500 * time.Millisecond,
			AnswerQueueSize: 64,
		},
		Webhook: WebhookConfig{
			Addr:        ":8080",
			PaymentsURL: "https://api.mercadopago.com",
		},
		LogLevel: "info",
	}
}

// FromEnv builds a Config from SIMULADO_* environment variables, falling
// back to defaults for unset values.
func FromEnv() (Config, error) {
	cfg := Default()

	dataDir, err := resolveDataDir()
	if err != nil {
		return Config{}, err
	}
	cfg.DataDir = dataDir

	cfg.DB.Driver = envString("SIMULADO_DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = envString("SIMULADO_DB", cfg.DB.DSN)

	cfg.Auth.JWTSecret = envString("SIMULADO_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = envDuration("SIMULADO_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Cache.PlanTTL = envDuration("SIMULADO_PLAN_CACHE_TTL", cfg.Cache.PlanTTL)

	cfg.Study.CountDebounce = envDuration("SIMULADO_COUNT_DEBOUNCE", cfg.Study.CountDebounce)
	cfg.Study.AnswerQueueSize = envInt("SIMULADO_ANSWER_QUEUE", cfg.Study.AnswerQueueSize)
	cfg.Study.DistinctStats = envBool("SIMULADO_DISTINCT_STATS", cfg.Study.DistinctStats)

	cfg.Webhook.Addr = envString("SIMULADO_WEBHOOK_ADDR", cfg.Webhook.Addr)
	cfg.Webhook.PaymentsURL = envString("SIMULADO_PAYMENTS_URL", cfg.Webhook.PaymentsURL)
	cfg.Webhook.PaymentsToken = envString("SIMULADO_PAYMENTS_TOKEN", cfg.Webhook.PaymentsToken)
	cfg.Webhook.PublicURL = envString("SIMULADO_PUBLIC_URL", cfg.Webhook.PublicURL)

	cfg.LogLevel = envString("SIMULADO_LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Load reads an optional .env file from the working directory and then
// builds the Config from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("SIMULADO_DB is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.DB.Driver)
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("SIMULADO_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Study.AnswerQueueSize <= 0 {
		return fmt.Errorf("SIMULADO_ANSWER_QUEUE must be positive, got %d", c.Study.AnswerQueueSize)
	}
	if c.Study.CountDebounce < 0 {
		return fmt.Errorf("SIMULADO_COUNT_DEBOUNCE must not be negative, got %s", c.Study.CountDebounce)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	return nil
}

// DBPath returns the sqlite data source, defaulting to a file in DataDir.
func (c Config) DBPath() string {
	if c.DB.DSN != "" {
		return c.DB.DSN
	}
	return filepath.Join(c.DataDir, "simulado.db")
}

// TokenPath is where the signed-in session token is kept.
func (c Config) TokenPath() string {
	return filepath.Join(c.DataDir, "session.token")
}

// LogPath is where the study TUI writes its log.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "simulado.log")
}

// Secret returns the configured JWT secret. Without one, a random secret
// is generated on first use and persisted in DataDir.
func (c Config) Secret() ([]byte, error) {
	if c.Auth.JWTSecret != "" {
		return []byte(c.Auth.JWTSecret), nil
	}

	p := filepath.Join(c.DataDir, "secret.key")
	data, err := os.ReadFile(p)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return []byte(strings.TrimSpace(string(data))), nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read secret: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(p, []byte(secret), 0o600); err != nil {
		return nil, fmt.Errorf("write secret: %w", err)
	}
	return []byte(secret), nil
}

// resolveDataDir resolves the data directory in priority order:
// 1. SIMULADO_DATA_DIR environment variable
// 2. $XDG_DATA_HOME/simulado
// 3. ~/.local/share/simulado
func resolveDataDir() (string, error) {
	if p := os.Getenv("SIMULADO_DATA_DIR"); p != "" {
		return p, nil
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "simulado"), nil
}
