package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DefaultHost is the Colony service endpoint.
	DefaultHost = "https://cloudshellcolony.com"
	// DefaultProfile is used when no profile is selected.
	DefaultProfile = "default"
	// DefaultPollInterval is the sandbox status polling interval.
	DefaultPollInterval = 5 * time.Second
	// DefaultHTTPTimeout bounds a single API request.
	DefaultHTTPTimeout = 30 * time.Second
)

type Config struct {
	Token            string        `mapstructure:"token"`
	Space            string        `mapstructure:"space"`
	Account          string        `mapstructure:"account"`
	Profile          string        `mapstructure:"profile"`
	Host             string        `mapstructure:"host"`
	ConfigPath       string        `mapstructure:"config_path"`
	Debug            bool          `mapstructure:"debug"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	NoUpdateNotifier bool          `mapstructure:"no_update_notifier"`
}

// Connection is what the Colony API client needs.
type Connection struct {
	Token   string
	Space   string
	Account string
	Host    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Profile:      DefaultProfile,
		Host:         DefaultHost,
		ConfigPath:   DefaultConfigPath(),
		PollInterval: DefaultPollInterval,
		HTTPTimeout:  DefaultHTTPTimeout,
	}
}

// DefaultConfigPath is ~/.colony/config.yaml, or a relative path when no home is known.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".colony", "config.yaml")
	}
	return filepath.Join(home, ".colony", "config.yaml")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Host)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid host %q: expected http(s)://host", c.Host)
	}
	if c.Profile == "" {
		return fmt.Errorf("profile cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	return nil
}

// Connection returns the API connection settings, failing when token or space are unset.
func (c *Config) Connection() (Connection, error) {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if c.Space == "" {
		missing = append(missing, "space")
	}
	if len(missing) > 0 {
		return Connection{}, domain.NewError(domain.ErrNotConfigured,
			fmt.Sprintf("%s not set; run 'colony configure set' or pass --%s",
				strings.Join(missing, " and "), missing[0]), nil)
	}
	return Connection{Token: c.Token, Space: c.Space, Account: c.Account, Host: c.Host}, nil
}

var envBindings = map[string]string{
	"token":              "COLONY_TOKEN",
	"space":              "COLONY_SPACE",
	"account":            "COLONY_ACCOUNT",
	"profile":            "COLONY_PROFILE",
	"host":               "COLONY_HOST",
	"config_path":        "COLONY_CONFIG_PATH",
	"debug":              "COLONY_DEBUG",
	"poll_interval":      "COLONY_POLL_INTERVAL",
	"http_timeout":       "COLONY_HTTP_TIMEOUT",
	"no_update_notifier": "COLONY_NO_UPDATE_NOTIFIER",
}

// FlagKeys are the persistent flags bound into the configuration.
var FlagKeys = []string{"token", "space", "account", "profile", "debug"}

// LoadConfig resolves flags, then environment, then the selected profile from the profiles
// file. Missing credentials are not an error here; see Connection.
func LoadConfig(ctx context.Context, flags *pflag.FlagSet, store func(path string) *ProfileStore) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLONY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	if flags != nil {
		for _, key := range FlagKeys {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind --%s: %w", key, err)
				}
			}
		}
	}
	defaults := DefaultConfig()
	v.SetDefault("profile", defaults.Profile)
	v.SetDefault("host", defaults.Host)
	v.SetDefault("config_path", defaults.ConfigPath)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if (cfg.Token == "" || cfg.Space == "") && store != nil {
		explicit := os.Getenv(envBindings["profile"]) != "" || (flags != nil && flags.Changed("profile"))
		if err := cfg.fillFromProfile(ctx, store(cfg.ConfigPath), explicit); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) fillFromProfile(ctx context.Context, store *ProfileStore, explicit bool) error {
	p, err := store.Load(ctx, c.Profile)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) && !explicit {
			return nil
		}
		return err
	}
	if c.Token == "" {
		c.Token = p.Token
	}
	if c.Space == "" {
		c.Space = p.Space
	}
	if c.Account == "" {
		c.Account = p.Account
	}
	return nil
}
