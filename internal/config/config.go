package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Channels ChannelsConfig `yaml:"channels" mapstructure:"channels"`
	Platform PlatformConfig `yaml:"platform" mapstructure:"platform"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

type StorageConfig struct {
	Driver    string `yaml:"driver" mapstructure:"driver"`
	Path      string `yaml:"path" mapstructure:"path"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	UserName string `yaml:"user_name" mapstructure:"user_name"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type IdentityConfig struct {
	EmailDomain         string        `yaml:"email_domain" mapstructure:"email_domain"`
	MinPasswordLen      int           `yaml:"min_password_len" mapstructure:"min_password_len"`
	SessionPollInterval time.Duration `yaml:"session_poll_interval" mapstructure:"session_poll_interval"`
}

type ChannelsConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

type PlatformConfig struct {
	SerializeWrites bool `yaml:"serialize_writes" mapstructure:"serialize_writes"`
}

type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:    DriverFile,
			Path:      defaultDataPath(),
			KeyPrefix: "mw_",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			UserName: "postgres",
			Password: "password",
			Database: "memorywall",
		},
		Identity: IdentityConfig{
			EmailDomain:         "@college.edu",
			MinPasswordLen:      6,
			SessionPollInterval: 500 * time.Millisecond,
		},
		Channels: ChannelsConfig{
			PollInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "memorywall")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "memorywall")
}

// Load reads configuration from path, or from memorywall.yaml in the usual
// search paths when path is empty. A missing file leaves the defaults in place.
// MEMORYWALL_* environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("memorywall")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "memorywall"))
		}
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "memorywall"))
	}

	v.SetEnvPrefix("MEMORYWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config failed")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that the
// config file does not mention.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.key_prefix", cfg.Storage.KeyPrefix)
	v.SetDefault("postgres.host", cfg.Postgres.Host)
	v.SetDefault("postgres.port", cfg.Postgres.Port)
	v.SetDefault("postgres.user_name", cfg.Postgres.UserName)
	v.SetDefault("postgres.password", cfg.Postgres.Password)
	v.SetDefault("postgres.database", cfg.Postgres.Database)
	v.SetDefault("identity.email_domain", cfg.Identity.EmailDomain)
	v.SetDefault("identity.min_password_len", cfg.Identity.MinPasswordLen)
	v.SetDefault("identity.session_poll_interval", cfg.Identity.SessionPollInterval)
	v.SetDefault("channels.poll_interval", cfg.Channels.PollInterval)
	v.SetDefault("platform.serialize_writes", cfg.Platform.SerializeWrites)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.development", cfg.Log.Development)
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("config: storage.driver %q is not one of memory, file, sqlite, postgres", c.Storage.Driver)
	}
	if (c.Storage.Driver == DriverFile || c.Storage.Driver == DriverSQLite) && c.Storage.Path == "" {
		return errors.Errorf("config: storage.path is required for driver %q", c.Storage.Driver)
	}
	if c.Identity.EmailDomain == "" {
		return errors.New("config: identity.email_domain is required")
	}
	if c.Identity.MinPasswordLen < 0 {
		return errors.New("config: identity.min_password_len must not be negative")
	}
	if c.Identity.SessionPollInterval <= 0 {
		return errors.New("config: identity.session_poll_interval must be positive")
	}
	if c.Channels.PollInterval <= 0 {
		return errors.New("config: channels.poll_interval must be positive")
	}
	return nil
}
