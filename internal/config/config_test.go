package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 8081, cfg.RegistryPort)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Empty(t, cfg.RefreshToken)
	assert.Empty(t, cfg.Journal)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SAP_REFRESH_TOKEN", "s3cret")
	t.Setenv("SAP_PORT", "9090")
	t.Setenv("SAP_INTERVAL", "5s")
	t.Setenv("SAP_LOG_LEVEL", "debug")
	t.Setenv("SAP_JOURNAL", "/tmp/sap.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.RefreshToken)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, "/tmp/sap.db", cfg.Journal)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("SAP_PORT", "not-an-int")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("non-positive interval", func(t *testing.T) {
		t.Setenv("SAP_INTERVAL", "0s")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SAP_INTERVAL")
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestRegistryPath(t *testing.T) {
	path, err := Env{RegistryFile: "/srv/saps.txt"}.RegistryPath()
	require.NoError(t, err)
	assert.Equal(t, "/srv/saps.txt", path)

	t.Setenv("HOME", t.TempDir())
	path, err = Env{}.RegistryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".sa", "saps.txt"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
