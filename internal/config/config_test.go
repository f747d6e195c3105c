package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/prices")
	t.Setenv("SPOT_REGIONS", "FI, EE")
	t.Setenv("INGEST_BATCH_SIZE", "200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/prices", cfg.DatabaseURL)
	assert.Equal(t, []string{"FI", "EE"}, cfg.Regions)
	assert.Equal(t, 200, cfg.IngestBatch)
	assert.Equal(t, 0.85, cfg.DayShare)
	assert.Equal(t, "Europe/Helsinki", cfg.Location)
	assert.Equal(t, 5*time.Minute, cfg.IngestMaxSkew())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://file/prices
day_share: 0.7
postcodes: ["00100", "33100"]
schedule:
  catalog_sync: "0 5 * * *"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("DAY_SHARE", "0.8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/prices", cfg.DatabaseURL)
	assert.Equal(t, 0.8, cfg.DayShare)
	assert.Equal(t, []string{"00100", "33100"}, cfg.StaticPostcodes)
	assert.Equal(t, "0 5 * * *", cfg.Schedule.CatalogSync)
	assert.Equal(t, "15 * * * *", cfg.Schedule.IngestLatest)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.DatabaseURL = "postgres://x"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.DatabaseURL = ""
	assert.ErrorContains(t, bad.Validate(), "DATABASE_URL")

	bad = cfg
	bad.DayShare = 0
	assert.ErrorContains(t, bad.Validate(), "day share")

	bad = cfg
	bad.IngestBatch = 501
	assert.ErrorContains(t, bad.Validate(), "batch size")

	bad = cfg
	bad.Location = "Mars/Olympus"
	assert.ErrorContains(t, bad.Validate(), "location")
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("INGEST_BATCH_SIZE", "lots")
	_, err := Load()
	assert.ErrorContains(t, err, "INGEST_BATCH_SIZE")
}
