// Package config loads conversation store settings from the environment,
// optionally seeded from a .env file. Missing connection parameters are not
// an error: they are reported by StoreConfig.Missing and the store runs in
// degraded mode.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultPartitionKey   = "/userId"
	DefaultRegion         = "us-east-1"
	DefaultTimeZone       = "America/Mexico_City"
	DefaultTTL            = 90 * 24 * time.Hour
	DefaultKeepLast       = 50
	DefaultHistoryLimit   = 20
	DefaultRefreshWorkers = 4
	DefaultRefreshQueue   = 1024
)

// StoreConfig holds the document store connection parameters.
type StoreConfig struct {
	Endpoint     string // CONVSTORE_ENDPOINT
	Key          string // CONVSTORE_KEY, "<accessKeyID>:<secret>" or "ssm:<parameter>"
	Database     string // CONVSTORE_DATABASE
	Container    string // CONVSTORE_CONTAINER
	PartitionKey string // CONVSTORE_PARTITION_KEY
	Region       string // AWS_REGION
}

// Config holds all configuration values.
type Config struct {
	Store StoreConfig

	TimeZone       string
	TTL            time.Duration
	KeepLast       int
	HistoryLimit   int
	RefreshWorkers int
	RefreshQueue   int

	LogLevel slog.Level
	LogFile  string

	PushgatewayURL string
}

// Load reads configuration from environment variables. Variables already set
// in the environment win over values from the .env files.
func Load(envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	return Config{
		Store: StoreConfig{
			Endpoint:     getenv("CONVSTORE_ENDPOINT", ""),
			Key:          getenv("CONVSTORE_KEY", ""),
			Database:     getenv("CONVSTORE_DATABASE", ""),
			Container:    getenv("CONVSTORE_CONTAINER", ""),
			PartitionKey: getenv("CONVSTORE_PARTITION_KEY", DefaultPartitionKey),
			Region:       getenv("AWS_REGION", DefaultRegion),
		},
		TimeZone:       getenv("CONVSTORE_TIMEZONE", DefaultTimeZone),
		TTL:            time.Duration(getint("CONVSTORE_TTL_DAYS", int(DefaultTTL/(24*time.Hour)))) * 24 * time.Hour,
		KeepLast:       getint("CONVSTORE_KEEP_LAST", DefaultKeepLast),
		HistoryLimit:   getint("CONVSTORE_HISTORY_LIMIT", DefaultHistoryLimit),
		RefreshWorkers: getint("CONVSTORE_REFRESH_WORKERS", DefaultRefreshWorkers),
		RefreshQueue:   getint("CONVSTORE_REFRESH_QUEUE", DefaultRefreshQueue),
		LogLevel:       ParseLogLevel(getenv("CONVSTORE_LOG_LEVEL", "info")),
		LogFile:        getenv("CONVSTORE_LOG_FILE", ""),
		PushgatewayURL: getenv("CONVSTORE_PUSHGATEWAY_URL", ""),
	}, nil
}

// Missing lists the environment variables of required parameters that are
// empty. An empty result means the store can be configured.
func (s StoreConfig) Missing() []string {
	var missing []string
	for _, p := range []struct{ name, val string }{
		{"CONVSTORE_ENDPOINT", s.Endpoint},
		{"CONVSTORE_KEY", s.Key},
		{"CONVSTORE_DATABASE", s.Database},
		{"CONVSTORE_CONTAINER", s.Container},
	} {
		if strings.TrimSpace(p.val) == "" {
			missing = append(missing, p.name)
		}
	}
	return missing
}

// Location resolves the configured time zone, falling back to UTC.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// ParseLogLevel maps a level name to a slog level. Unknown names mean info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// loadEnvFiles loads the given files, or ./.env when none are given. A
// missing default file is fine; a missing explicit file is not.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(files...)
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getint(k string, def int) int {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}
