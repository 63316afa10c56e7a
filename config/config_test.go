package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	cfg := ReadConfig(":memory:")
	expected := "value"
	require.NoError(t, cfg.Set("test", expected))
	actual := cfg.Get("test", "NOPE")
	assert.Equal(t, expected, actual, "Config did not store values")
}

func TestSetGetArray(t *testing.T) {
	cfg := ReadConfig(":memory:")
	expected := []string{"a", "b", "c"}
	require.NoError(t, cfg.SetArray("test", expected))
	actual := cfg.GetArray("test", []string{"NOPE"})
	assert.Equal(t, expected, actual, "Config did not store values")
}

func TestGetFallbacks(t *testing.T) {
	cfg := ReadConfig(":memory:")
	assert.Equal(t, "x", cfg.Get("missing", "x"))
	assert.Equal(t, 7, cfg.GetInt("missing", 7))
	assert.Equal(t, 1.5, cfg.GetFloat64("missing", 1.5))
	assert.Equal(t, []string{"y"}, cfg.GetArray("missing", []string{"y"}))
}

func TestKeysAreCaseInsensitive(t *testing.T) {
	cfg := ReadConfig(":memory:")
	require.NoError(t, cfg.Set("RatePerSec", "3"))
	assert.Equal(t, 3, cfg.GetInt("ratepersec", 5))
}

func TestUnset(t *testing.T) {
	cfg := ReadConfig(":memory:")
	require.NoError(t, cfg.Set("gone", "soon"))
	require.NoError(t, cfg.Unset("gone"))
	assert.Equal(t, "fallback", cfg.Get("gone", "fallback"))
}

func TestEnvOverride(t *testing.T) {
	cfg := ReadConfig(":memory:")
	require.NoError(t, cfg.Set("irc.server", "db.example.org"))
	t.Setenv("HOOKBASE_IRCSERVER", "env.example.org")
	assert.Equal(t, "env.example.org", cfg.Get("irc.server", ""))
}

func TestSetDefaults(t *testing.T) {
	cfg := ReadConfig(":memory:")
	cfg.SetDefaults("#test", "hookbot")
	assert.Equal(t, "hookbot", cfg.Get("nick", ""))
	assert.Equal(t, []string{".", "!"}, cfg.GetArray("commandchar", nil))
}
