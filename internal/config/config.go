package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	DBDriver    string // postgres or sqlite
	DatabaseURL string
	DataDir     string

	JWTSecret string
	JWTTTL    time.Duration

	PDFDir          string
	PDFConcurrency  int64
	PDFTimeout      time.Duration
	PDFRatePerMin   int
	ChromePath      string
	LoginRatePerMin int

	Timezone          string
	LowStockThreshold int
	TopSellingLimit   int
	InvoiceNumbering  string // sequential or dated

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DashboardCacheTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendURL        string

	ResendAPIKey     string
	EmailFromAddress string
	BillReminders    bool
	ReminderInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. Callers load .env
// files beforehand.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:    getDuration("JWT_TTL", 24*time.Hour),

		PDFDir:          getEnv("PDF_DIR", "/tmp/invoices"),
		PDFConcurrency:  int64(getInt("PDF_CONCURRENCY", 2)),
		PDFTimeout:      getDuration("PDF_TIMEOUT", 30*time.Second),
		PDFRatePerMin:   getInt("PDF_RATE_PER_MINUTE", 30),
		ChromePath:      os.Getenv("CHROME_PATH"),
		LoginRatePerMin: getInt("LOGIN_RATE_PER_MINUTE", 10),

		Timezone:          getEnv("TIMEZONE", "Asia/Kolkata"),
		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 5),
		TopSellingLimit:   getInt("TOP_SELLING_LIMIT", 5),
		InvoiceNumbering:  strings.ToLower(getEnv("INVOICE_NUMBERING", "sequential")),

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		DashboardCacheTTL: getDuration("DASHBOARD_CACHE_TTL", 30*time.Second),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),

		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),
		BillReminders:    getBool("BILL_REMINDERS", false),
		ReminderInterval: getDuration("REMINDER_INTERVAL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.InvoiceNumbering {
	case "sequential", "dated":
	default:
		return fmt.Errorf("unsupported INVOICE_NUMBERING %q", c.InvoiceNumbering)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.PDFConcurrency < 1 {
		c.PDFConcurrency = 1
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.TopSellingLimit < 1 {
		c.TopSellingLimit = 5
	}
	if c.BillReminders && c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive when BILL_REMINDERS is on")
	}
	return nil
}

// Location returns the time zone used for day buckets and "today".
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DatabaseOptions returns the storage settings.
func (c *Config) DatabaseOptions() database.Options {
	return database.Options{
		Driver:      c.DBDriver,
		DatabaseURL: c.DatabaseURL,
		DataDir:     c.DataDir,
	}
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// GoogleEnabled reports whether Google login is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GetLoggerConfig converts the config into a logger configuration.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	return lc
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
