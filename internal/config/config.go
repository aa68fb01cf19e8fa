// Package config provides configuration management for sitelog.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultWorkerPort  = 3000
	DefaultWorkerHost  = "127.0.0.1"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
	DefaultDBDriver    = "sqlite"
	DefaultCacheTTL    = 30
)

// Settings keys. Environment variables with the same names override the file.
const (
	KeyWorkerPort    = "SITELOG_WORKER_PORT"
	KeyWorkerHost    = "SITELOG_WORKER_HOST"
	KeyDBDriver      = "SITELOG_DB_DRIVER"
	KeyDBPath        = "SITELOG_DB_PATH"
	KeyDBDSN         = "SITELOG_DB_DSN"
	KeyMaxConns      = "SITELOG_DB_MAX_CONNS"
	KeyModel         = "SITELOG_MODEL"
	KeyMaxTokens     = "SITELOG_MAX_TOKENS"
	KeyTemperature   = "SITELOG_TEMPERATURE"
	KeyOpenAIBaseURL = "SITELOG_OPENAI_BASE_URL"
	KeyRedisURL      = "SITELOG_REDIS_URL"
	KeyCacheTTL      = "SITELOG_CACHE_TTL_SECONDS"
	KeyAPITokenHash  = "SITELOG_API_TOKEN_HASH"
	KeyServerURL     = "SITELOG_SERVER_URL"
	KeySeedFile      = "SITELOG_SEED_FILE"
	KeySearch        = "SITELOG_SEARCH_ENABLED"

	// EnvOpenAIAPIKey is read from the environment only; it is never persisted.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Config holds sitelog configuration.
type Config struct {
	WorkerPort int    `json:"SITELOG_WORKER_PORT"`
	WorkerHost string `json:"SITELOG_WORKER_HOST"`

	DBDriver string `json:"SITELOG_DB_DRIVER"`
	DBPath   string `json:"SITELOG_DB_PATH"`
	DBDSN    string `json:"SITELOG_DB_DSN"`
	MaxConns int    `json:"SITELOG_DB_MAX_CONNS"`

	Model         string  `json:"SITELOG_MODEL"`
	MaxTokens     int     `json:"SITELOG_MAX_TOKENS"`
	Temperature   float64 `json:"SITELOG_TEMPERATURE"`
	OpenAIBaseURL string  `json:"SITELOG_OPENAI_BASE_URL"`
	OpenAIAPIKey  string  `json:"-"`

	// Snapshot cache; disabled when RedisURL is empty.
	RedisURL        string `json:"SITELOG_REDIS_URL"`
	CacheTTLSeconds int    `json:"SITELOG_CACHE_TTL_SECONDS"`

	// bcrypt hash of the API bearer token; empty disables auth.
	APITokenHash string `json:"SITELOG_API_TOKEN_HASH"`

	// Base URL the terminal chat client talks to.
	ServerURL string `json:"SITELOG_SERVER_URL"`

	SeedFile      string `json:"SITELOG_SEED_FILE"`
	SearchEnabled bool   `json:"SITELOG_SEARCH_ENABLED"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the sitelog data directory.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sitelog")
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "sitelog.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// ThreadsPath returns the file backing the terminal client's chat threads.
func ThreadsPath() string {
	return filepath.Join(DataDir(), "threads.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and default settings.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkerPort:      DefaultWorkerPort,
		WorkerHost:      DefaultWorkerHost,
		DBDriver:        DefaultDBDriver,
		DBPath:          DBPath(),
		MaxConns:        4,
		Model:           DefaultModel,
		MaxTokens:       DefaultMaxTokens,
		Temperature:     DefaultTemperature,
		CacheTTLSeconds: DefaultCacheTTL,
		ServerURL:       "http://" + DefaultWorkerHost + ":" + strconv.Itoa(DefaultWorkerPort),
		SearchEnabled:   true,
	}
}

// LoadDotEnv loads a .env file into the process environment. Existing
// variables win. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads settings.json and applies environment overrides. An unreadable
// or invalid settings file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err == nil {
		var settings map[string]interface{}
		if err := json.Unmarshal(data, &settings); err == nil {
			cfg.apply(func(key string) (string, bool) {
				v, ok := settings[key]
				if !ok || v == nil {
					return "", false
				}
				return stringify(v), true
			})
		}
	}

	cfg.apply(os.LookupEnv)
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey))
	return cfg, nil
}

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	configOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	})
	return globalConfig
}

// GetWorkerPort returns the worker port, preferring a valid env value.
func GetWorkerPort() int {
	if port, ok := positiveInt(os.Getenv(KeyWorkerPort)); ok {
		return port
	}
	return Get().WorkerPort
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return c.WorkerHost + ":" + strconv.Itoa(c.WorkerPort)
}

func (c *Config) apply(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, ok := positiveInt(v); ok {
				*dst = n
			}
		}
	}

	num(KeyWorkerPort, &c.WorkerPort)
	str(KeyWorkerHost, &c.WorkerHost)
	str(KeyDBDriver, &c.DBDriver)
	str(KeyDBPath, &c.DBPath)
	str(KeyDBDSN, &c.DBDSN)
	num(KeyMaxConns, &c.MaxConns)
	str(KeyModel, &c.Model)
	num(KeyMaxTokens, &c.MaxTokens)
	str(KeyOpenAIBaseURL, &c.OpenAIBaseURL)
	str(KeyRedisURL, &c.RedisURL)
	num(KeyCacheTTL, &c.CacheTTLSeconds)
	str(KeyAPITokenHash, &c.APITokenHash)
	str(KeyServerURL, &c.ServerURL)
	str(KeySeedFile, &c.SeedFile)

	if v, ok := lookup(KeyTemperature); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 && f <= 2 {
			c.Temperature = f
		}
	}
	if v, ok := lookup(KeySearch); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.SearchEnabled = b
		}
	}
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// stringify renders a decoded JSON value the way it would appear in an env var.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
