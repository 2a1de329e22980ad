package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	GeoDB        GeoDBConfig        `yaml:"geodb" mapstructure:"geodb"`
	Nominatim    NominatimConfig    `yaml:"nominatim" mapstructure:"nominatim"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Throttle     ThrottleConfig     `yaml:"throttle" mapstructure:"throttle"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete" mapstructure:"autocomplete"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// GeoDBConfig holds GeoDB Cities (RapidAPI) credentials and endpoint.
type GeoDBConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Host    string `yaml:"host" mapstructure:"host"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NominatimConfig holds the public Nominatim endpoint settings.
type NominatimConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// MinIntervalMS paces requests per the usage policy; must exceed 1000.
	MinIntervalMS int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// CacheConfig configures the result cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL converts TTLHours for durable backends; zero means no expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ThrottleConfig configures the per-query circuit breaker.
type ThrottleConfig struct {
	MaxFailures     int `yaml:"max_failures" mapstructure:"max_failures"`
	ResetWindowMins int `yaml:"reset_window_mins" mapstructure:"reset_window_mins"`
}

// AutocompleteConfig configures interactive session behavior.
type AutocompleteConfig struct {
	PageSize       int `yaml:"page_size" mapstructure:"page_size"`
	DebounceMS     int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	MinQueryLen    int `yaml:"min_query_len" mapstructure:"min_query_len"`
	PopularCount   int `yaml:"popular_count" mapstructure:"popular_count"`
	SessionTTLMins int `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks cross-field constraints, collecting every problem into
// one error so a bad config surfaces all at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Cache.Driver {
	case "memory", "":
	case "sqlite", "postgres":
		if c.Cache.DatabaseURL == "" {
			problems = append(problems, "cache.database_url is required for driver "+c.Cache.Driver)
		}
	default:
		problems = append(problems, "cache.driver must be memory, sqlite, or postgres")
	}

	if c.Nominatim.MinIntervalMS <= 1000 {
		problems = append(problems, "nominatim.min_interval_ms must be > 1000")
	}
	if c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}
	if c.Throttle.MaxFailures < 1 {
		problems = append(problems, "throttle.max_failures must be >= 1")
	}
	if c.Autocomplete.PageSize < 1 || c.Autocomplete.PageSize > 100 {
		problems = append(problems, "autocomplete.page_size must be between 1 and 100")
	}
	if c.Autocomplete.MinQueryLen < 1 {
		problems = append(problems, "autocomplete.min_query_len must be >= 1")
	}

	if len(problems) > 0 {
		return eris.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOCATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geodb.host", "wft-geo-db.p.rapidapi.com")
	v.SetDefault("geodb.base_url", "https://wft-geo-db.p.rapidapi.com")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "location-cli/1.0 (+https://github.com/relata-hq/location-cli)")
	v.SetDefault("nominatim.min_interval_ms", 1100)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl_hours", 0)
	v.SetDefault("throttle.max_failures", 3)
	v.SetDefault("throttle.reset_window_mins", 5)
	v.SetDefault("autocomplete.page_size", 50)
	v.SetDefault("autocomplete.debounce_ms", 350)
	v.SetDefault("autocomplete.min_query_len", 2)
	v.SetDefault("autocomplete.popular_count", 8)
	v.SetDefault("autocomplete.session_ttl_mins", 15)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
