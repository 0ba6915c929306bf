package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is read once at startup and handed to each constructor.
type Config struct {
	Port string
	Env  string

	DBDriver   string // "postgres" or "sqlite"
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBTimezone string
	SQLitePath string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SessionSecret      string

	FrontendURL string
	AdminEmail  string
	LogLevel    string
}

// Load reads .env files (if present) and then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading env file: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment without touching disk.
func FromEnv() Config {
	return Config{
		Port:               getenv("PORT", "8080"),
		Env:                getenv("GO_ENV", "development"),
		DBDriver:           getenv("DB_DRIVER", "postgres"),
		DBHost:             os.Getenv("DB_HOST"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBPort:             getenv("DB_PORT", "5432"),
		DBTimezone:         getenv("DB_TIMEZONE", "UTC"),
		SQLitePath:         getenv("SQLITE_PATH", "habitstacker.db"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		FrontendURL:        getenv("FRONTEND_URL", "http://localhost:5173"),
		AdminEmail:         strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		LogLevel:           getenv("LOG_LEVEL", "info"),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN is the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimezone)
}

// AllowedOrigins always includes the local dev frontend.
func (c Config) AllowedOrigins() []string {
	origins := []string{"http://localhost:5173"}
	if c.FrontendURL != "" && c.FrontendURL != origins[0] {
		origins = append(origins, c.FrontendURL)
	}
	return origins
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" {
			return errors.New("DB_HOST and DB_NAME are required for postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.IsProduction() && c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required in production")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
