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
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	DefaultBodyLimit = "1M"
)

type Config struct {
	StorageType string
	Postgres    PostgresConfig
	SQLite      SQLiteConfig
	Redis       RedisConfig
	HTTP        HTTPConfig
	Log         LogConfig
	SeedOnStart bool
}

type PostgresConfig struct {
	// URL, when set, takes precedence over the individual fields.
	URL      string
	User     string
	Password string
	DB       string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

func (pc PostgresConfig) GetDSN() string {
	if pc.URL != "" {
		return pc.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.User,
		pc.Password,
		pc.Host,
		pc.Port,
		pc.DB,
		pc.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string
}

// RedisConfig enables the post cache when URL is set.
type RedisConfig struct {
	URL string
	TTL time.Duration
}

type HTTPConfig struct {
	Port           string
	BodyLimit      string
	MetricsEnabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig reads the environment, after loading .env from the working
// directory when one exists. It panics on missing or malformed variables.
func LoadConfig() Config {
	_ = godotenv.Load()

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", StorageMemory))

	cfg := Config{
		StorageType: storageType,
		HTTP: HTTPConfig{
			Port:           getEnv("HTTP_PORT", "8080"),
			BodyLimit:      getEnv("BODY_LIMIT", DefaultBodyLimit),
			MetricsEnabled: getBool("METRICS_ENABLED", true),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
			TTL: getDuration("CACHE_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		SeedOnStart: getBool("SEED_ON_START", false),
	}

	switch storageType {
	case StoragePostgres:
		cfg.Postgres = loadPostgres()
	case StorageSQLite:
		cfg.SQLite = SQLiteConfig{Path: getEnv("SQLITE_PATH", "posts.db")}
	case StorageMemory:
	default:
		panic("unsupported STORAGE_TYPE: " + storageType)
	}

	return cfg
}

func loadPostgres() PostgresConfig {
	pc := PostgresConfig{
		MaxConns: int32(getInt("POSTGRES_MAX_CONNS", 10)),
	}
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		pc.URL = url
		return pc
	}

	pc.User = mustGetEnv("POSTGRES_USER")
	pc.Password = mustGetEnv("POSTGRES_PASSWORD")
	pc.DB = mustGetEnv("POSTGRES_DB")
	pc.Host = mustGetEnv("POSTGRES_HOST")
	pc.Port = mustGetInt("POSTGRES_PORT")
	pc.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")
	return pc
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("missing required env var: " + key)
	}
	return val
}

func mustGetInt(key string) int {
	val := mustGetEnv(key)
	i, err := strconv.Atoi(val)
	if err != nil {
		panic("invalid int for env var " + key + ": " + val)
	}
	return i
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	if os.Getenv(key) == "" {
		return def
	}
	return mustGetInt(key)
}

func getBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		panic("invalid bool for env var " + key + ": " + val)
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		panic("invalid duration for env var " + key + ": " + val)
	}
	return d
}
