package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.ThingID = "thing-1"
	cfg.ThingSecret = "secret"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	missingID := validConfig()
	missingID.ThingID = ""
	assert.Error(t, missingID.Validate())

	missingSecret := validConfig()
	missingSecret.ThingSecret = ""
	assert.Error(t, missingSecret.Validate())

	badLevel := validConfig()
	badLevel.LogLevel = "verbose"
	assert.Error(t, badLevel.Validate())

	// Every level the logger parses must pass validation, including the
	// custom success level and the warning alias.
	for _, level := range []string{"trace", "debug", "info", "success", "warn", "warning", "error"} {
		cfg := validConfig()
		cfg.LogLevel = level
		assert.NoError(t, cfg.Validate(), "level %q", level)
	}

	badInterval := validConfig()
	badInterval.PollIntervalSec = 0
	assert.Error(t, badInterval.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("S3I_THING_ID", "env-thing")
	t.Setenv("S3I_POLL_INTERVAL_SEC", "15")
	t.Setenv("S3I_MQTT_ENABLED", "true")

	cfg := NewConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "env-thing", cfg.ThingID)
	assert.Equal(t, 15, cfg.PollIntervalSec)
	assert.True(t, cfg.MQTTEnabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("thing_id: file-thing\npoll_interval_sec: 30\nredis_host: cache\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file-thing", cfg.ThingID)
	assert.Equal(t, 30, cfg.PollIntervalSec)
	assert.Equal(t, "cache:6379", cfg.RedisAddress())
}

func TestLoadFromFileMissingIsNotAnError(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := NewConfig()
	cfg.PostgresHost = "db"
	cfg.PostgresUser = "gateway"
	cfg.PostgresPassword = "pw"
	cfg.PostgresDB = "images"

	assert.Equal(t,
		"host=db port=5432 user=gateway password=pw dbname=images sslmode=disable",
		cfg.PostgresConnectionString())
}
