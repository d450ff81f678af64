package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearColonyEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	for _, key := range []string{"token", "space", "account", "profile"} {
		flags.String(key, "", "")
	}
	flags.Bool("debug", false, "")
	return flags
}

func osStore(path string) *ProfileStore {
	return NewProfileStore(afero.NewOsFs(), path)
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("Should apply defaults", func(t *testing.T) {
		clearColonyEnv(t)
		t.Setenv("COLONY_CONFIG_PATH", filepath.Join(t.TempDir(), "config.yaml"))
		cfg, err := LoadConfig(ctx, newFlags(t), osStore)
		require.NoError(t, err)
		assert.Equal(t, DefaultHost, cfg.Host)
		assert.Equal(t, DefaultProfile, cfg.Profile)
		assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
		assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	})
	t.Run("Should read credentials from environment", func(t *testing.T) {
		clearColonyEnv(t)
		t.Setenv("COLONY_TOKEN", "env-token")
		t.Setenv("COLONY_SPACE", "env-space")
		t.Setenv("COLONY_POLL_INTERVAL", "250ms")
		cfg, err := LoadConfig(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Token)
		assert.Equal(t, "env-space", cfg.Space)
		assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	})
	t.Run("Should prefer flags over environment", func(t *testing.T) {
		clearColonyEnv(t)
		t.Setenv("COLONY_TOKEN", "env-token")
		t.Setenv("COLONY_SPACE", "env-space")
		flags := newFlags(t)
		require.NoError(t, flags.Set("token", "flag-token"))
		cfg, err := LoadConfig(ctx, flags, nil)
		require.NoError(t, err)
		assert.Equal(t, "flag-token", cfg.Token)
		assert.Equal(t, "env-space", cfg.Space)
	})
	t.Run("Should fill missing values from the selected profile", func(t *testing.T) {
		clearColonyEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		t.Setenv("COLONY_CONFIG_PATH", path)
		t.Setenv("COLONY_SPACE", "env-space")
		require.NoError(t, osStore(path).Save(ctx, "work", Profile{Token: "p-token", Space: "p-space", Account: "acme"}))
		flags := newFlags(t)
		require.NoError(t, flags.Set("profile", "work"))
		cfg, err := LoadConfig(ctx, flags, osStore)
		require.NoError(t, err)
		assert.Equal(t, "p-token", cfg.Token)
		assert.Equal(t, "env-space", cfg.Space)
		assert.Equal(t, "acme", cfg.Account)
	})
	t.Run("Should fail when an explicit profile is missing", func(t *testing.T) {
		clearColonyEnv(t)
		t.Setenv("COLONY_CONFIG_PATH", filepath.Join(t.TempDir(), "config.yaml"))
		t.Setenv("COLONY_PROFILE", "nope")
		_, err := LoadConfig(ctx, nil, osStore)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProfileNotFound)
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
	t.Run("Should tolerate a missing default profile", func(t *testing.T) {
		clearColonyEnv(t)
		t.Setenv("COLONY_CONFIG_PATH", filepath.Join(t.TempDir(), "config.yaml"))
		cfg, err := LoadConfig(ctx, newFlags(t), osStore)
		require.NoError(t, err)
		_, err = cfg.Connection()
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
		assert.Contains(t, err.Error(), "token and space not set")
	})
	t.Run("Should reject an invalid host", func(t *testing.T) {
		clearColonyEnv(t)
		t.Setenv("COLONY_HOST", "cloudshellcolony.com")
		_, err := LoadConfig(ctx, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid host")
	})
}

func TestConfig_Connection(t *testing.T) {
	t.Run("Should return connection when token and space are set", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Token, cfg.Space, cfg.Account = "t", "s", "a"
		conn, err := cfg.Connection()
		require.NoError(t, err)
		assert.Equal(t, Connection{Token: "t", Space: "s", Account: "a", Host: DefaultHost}, conn)
	})
	t.Run("Should name the missing setting", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Token = "t"
		_, err := cfg.Connection()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "space not set")
		assert.Contains(t, err.Error(), "--space")
	})
}
