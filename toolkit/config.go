package toolkit

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardkit/internal/cardgen"
)

// Config is a configuration for the cardkit application
type Config struct {
	HTTPAddr string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// ExpiryTZ is an IANA timezone name used when deciding whether an expiry has passed.
	ExpiryTZ string
	// DefaultLength is the PAN length used when a generate request leaves it unset.
	DefaultLength int
	// MaxWorkers bounds the goroutines used to parse one batch.
	MaxWorkers int
	// DefaultSeparator is used by format requests that do not name one.
	DefaultSeparator string

	RateLimitRPS   float64
	RateLimitBurst int

	MetricsEnabled   bool
	MetricsNamespace string

	// ISO8583Currency is the ISO 4217 numeric code put in field 49 by default.
	ISO8583Currency string
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:         "localhost:9090",
		LogLevel:         "info",
		ExpiryTZ:         "UTC",
		DefaultLength:    cardgen.DefaultLength,
		MaxWorkers:       4,
		DefaultSeparator: "pipe",
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		MetricsEnabled:   true,
		MetricsNamespace: "cardkit",
		ISO8583Currency:  "840",
	}
}

// LoadConfig reads the environment (and the nearest .env file) over DefaultConfig.
func LoadConfig() *Config {
	loadDotEnv()

	def := DefaultConfig()
	return &Config{
		HTTPAddr:         env.GetString("HTTP_ADDR", def.HTTPAddr),
		LogLevel:         env.GetString("LOG_LEVEL", def.LogLevel),
		ExpiryTZ:         env.GetString("EXPIRY_TZ", def.ExpiryTZ),
		DefaultLength:    env.GetInt("DEFAULT_LENGTH", def.DefaultLength),
		MaxWorkers:       env.GetInt("MAX_WORKERS", def.MaxWorkers),
		DefaultSeparator: env.GetString("DEFAULT_SEPARATOR", def.DefaultSeparator),
		RateLimitRPS:     env.GetFloat64("RATE_LIMIT_RPS", def.RateLimitRPS),
		RateLimitBurst:   env.GetInt("RATE_LIMIT_BURST", def.RateLimitBurst),
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", def.MetricsEnabled),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", def.MetricsNamespace),
		ISO8583Currency:  env.GetString("ISO8583_CURRENCY", def.ISO8583Currency),
	}
}

// Level maps LogLevel to a slog level, falling back to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadDotEnv walks up from the working directory and loads the first .env found.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
