// =============================================================================
// Trip Dashboard - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults
//   2. Main Config (config.yaml)
//   3. .env file (loaded into the process environment)
//   4. TRIPDASH_* environment variables and command line flags (via viper)
//
// Environment keys replace "." with "_": geocoder.workers is read from
// TRIPDASH_GEOCODER_WORKERS.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is the application version. It is used in the default geocoder
// User-Agent and set at build time using ldflags:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/trip-dashboard/internal/config.Version=1.0.0'"
var Version = "1.0.0"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TRIPDASH"

// Geocoding providers.
const (
	ProviderNominatim = "nominatim"
	ProviderPhoton    = "photon"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultNamespace is the key under which the geocode cache is persisted.
const DefaultNamespace = "uber-trip-geocode-cache"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log encoding: "json" or "text".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// COMPONENT SETTINGS
	// =========================================================================

	Geocoder GeocoderConfig `yaml:"geocoder"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Export   ExportConfig   `yaml:"export"`
}

// GeocoderConfig configures the external geocoding service.
type GeocoderConfig struct {
	// Provider selects the response format: "nominatim" or "photon".
	// Default: "nominatim"
	Provider string `yaml:"provider"`

	// Endpoint is the search URL. Default depends on the provider.
	Endpoint string `yaml:"endpoint"`

	// UserAgent is sent with every request. Public Nominatim instances
	// reject anonymous clients.
	// Default: "tripdash/<version>"
	UserAgent string `yaml:"user_agent"`

	// Workers is the number of addresses resolved concurrently for a day.
	// Default: 2
	Workers int `yaml:"workers"`

	// MinRequestInterval is the minimum spacing between two requests.
	// Zero uses the provider default (1100ms for Nominatim, none for Photon);
	// a negative value disables pacing.
	MinRequestInterval time.Duration `yaml:"min_request_interval"`

	// RequestTimeout bounds a single HTTP request.
	// Default: 20s
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CacheConfig configures where resolved coordinates are persisted.
type CacheConfig struct {
	// Backend is one of "memory", "file", "redis", "sqlite", "postgres".
	// Default: "file"
	Backend string `yaml:"backend"`

	// Namespace is the single key the cache is stored under.
	// Default: "uber-trip-geocode-cache"
	Namespace string `yaml:"namespace"`

	// Path is the file or SQLite database location.
	// Default: "./.tripdash/geocode-cache.json" (file) or
	// "./.tripdash/geocode-cache.db" (sqlite)
	Path string `yaml:"path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// PostgresDSN is a lib/pq connection string.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	// ListenAddr is the HTTP listen address.
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr"`

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ExportConfig configures workbook export.
type ExportConfig struct {
	// OutputDir is where exported workbooks are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// FileNameFormat defines the export file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {time}      - Current time (HHMMSS)
	//   {source}    - Input file name without extension
	// Default: "trips_{timestamp}_{uuid}.xlsx"
	FileNameFormat string `yaml:"file_name_format"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//   - optional: When true a missing file yields the defaults instead of an
//     error.
//   - overrides: Environment and flag overrides; may be nil.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed, or a value is invalid.
func LoadMainConfig(configPath string, optional bool, overrides *viper.Viper) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if overrides != nil {
		applyOverrides(&config, overrides)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns a configuration with every default applied.
func Defaults() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are ignored; existing environment variables are not overwritten.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// NewViper returns a viper instance reading TRIPDASH_* environment variables.
// Callers may bind command line flags to it before LoadMainConfig.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// binding ties a configuration key to the field it overrides.
type binding struct {
	key    string
	target any
}

func (c *MainConfig) bindings() []binding {
	return []binding{
		{"log_level", &c.LogLevel},
		{"log_format", &c.LogFormat},
		{"geocoder.provider", &c.Geocoder.Provider},
		{"geocoder.endpoint", &c.Geocoder.Endpoint},
		{"geocoder.user_agent", &c.Geocoder.UserAgent},
		{"geocoder.workers", &c.Geocoder.Workers},
		{"geocoder.min_request_interval", &c.Geocoder.MinRequestInterval},
		{"geocoder.request_timeout", &c.Geocoder.RequestTimeout},
		{"cache.backend", &c.Cache.Backend},
		{"cache.namespace", &c.Cache.Namespace},
		{"cache.path", &c.Cache.Path},
		{"cache.redis_addr", &c.Cache.RedisAddr},
		{"cache.redis_password", &c.Cache.RedisPassword},
		{"cache.redis_db", &c.Cache.RedisDB},
		{"cache.postgres_dsn", &c.Cache.PostgresDSN},
		{"server.listen_addr", &c.Server.ListenAddr},
		{"server.allowed_origins", &c.Server.AllowedOrigins},
		{"export.output_dir", &c.Export.OutputDir},
		{"export.file_name_format", &c.Export.FileNameFormat},
	}
}

// applyOverrides copies every key set in v onto config.
func applyOverrides(config *MainConfig, v *viper.Viper) {
	for _, b := range config.bindings() {
		if !v.IsSet(b.key) {
			continue
		}
		switch target := b.target.(type) {
		case *string:
			*target = v.GetString(b.key)
		case *int:
			*target = v.GetInt(b.key)
		case *time.Duration:
			*target = v.GetDuration(b.key)
		case *[]string:
			*target = splitList(v.GetStringSlice(b.key))
		}
	}
}

// splitList accepts both ["a", "b"] and the single env value "a,b".
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}

	g := &config.Geocoder
	if g.Provider == "" {
		g.Provider = ProviderNominatim
	}
	g.Provider = strings.ToLower(g.Provider)
	if g.Endpoint == "" {
		switch g.Provider {
		case ProviderPhoton:
			g.Endpoint = "https://photon.komoot.io/api/"
		default:
			g.Endpoint = "https://nominatim.openstreetmap.org/search"
		}
	}
	if g.UserAgent == "" {
		g.UserAgent = "tripdash/" + Version
	}
	if g.Workers == 0 {
		g.Workers = 2
	}
	if g.MinRequestInterval == 0 && g.Provider == ProviderNominatim {
		g.MinRequestInterval = 1100 * time.Millisecond
	}
	if g.RequestTimeout == 0 {
		g.RequestTimeout = 20 * time.Second
	}

	c := &config.Cache
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	c.Backend = strings.ToLower(c.Backend)
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = filepath.Join(".tripdash", "geocode-cache.db")
		case BackendFile:
			c.Path = filepath.Join(".tripdash", "geocode-cache.json")
		}
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8080"
	}

	if config.Export.OutputDir == "" {
		config.Export.OutputDir = "./output"
	}
	if config.Export.FileNameFormat == "" {
		config.Export.FileNameFormat = "trips_{timestamp}_{uuid}.xlsx"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch config.Geocoder.Provider {
	case ProviderNominatim, ProviderPhoton:
	default:
		return fmt.Errorf("unknown geocoder provider %q", config.Geocoder.Provider)
	}

	if config.Geocoder.Workers < 1 {
		return fmt.Errorf("geocoder.workers must be at least 1, got %d", config.Geocoder.Workers)
	}

	if config.Geocoder.RequestTimeout < 0 {
		return fmt.Errorf("geocoder.request_timeout must not be negative")
	}

	switch config.Cache.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	case BackendPostgres:
		if config.Cache.PostgresDSN == "" {
			return fmt.Errorf("cache.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
	}

	switch strings.ToLower(config.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", config.LogFormat)
	}

	return nil
}
