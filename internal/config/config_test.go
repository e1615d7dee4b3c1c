package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/config"
	"github.com/1009rishit/Case-data/internal/court"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
targets:
  - name: Delhi High Court
    base_url: https://dhc.example.in
    search_path: case-type-status
    extractor: delhi
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, 4, cfg.Crawl.CaptchaRetries)
	assert.Equal(t, 3, cfg.Crawl.SessionWorkers)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "memory", cfg.DB.Provider)

	require.Len(t, cfg.Targets, 1)
	tgt := cfg.Targets[0]
	assert.Equal(t, court.ModePaged, tgt.Mode)
	assert.Equal(t, 50, tgt.PageSize)
	assert.Equal(t, 60, tgt.LookbackDays)
	assert.Equal(t, "02-01-2006", tgt.DateFormat)
	assert.Equal(t, "delhi_high_court", tgt.Tag)
}

func TestLoadValidatesTargets(t *testing.T) {
	t.Run("MissingExtractor", func(t *testing.T) {
		path := writeConfig(t, `
targets:
  - name: Broken
    base_url: https://x
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})

	t.Run("DateCellRequiresCaseTypes", func(t *testing.T) {
		path := writeConfig(t, `
targets:
  - name: PHHC
    base_url: https://phhc.example.in
    extractor: phhc
    mode: datecell
`)
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "case_types")
	})

	t.Run("UnknownMode", func(t *testing.T) {
		path := writeConfig(t, `
targets:
  - name: X
    base_url: https://x
    extractor: delhi
    mode: spiral
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})
}

func TestLoadValidatesProviders(t *testing.T) {
	t.Run("GCSNeedsBucket", func(t *testing.T) {
		path := writeConfig(t, `
storage:
  provider: gcs
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})

	t.Run("PostgresNeedsDSN", func(t *testing.T) {
		path := writeConfig(t, `
db:
  provider: postgres
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})

	t.Run("PubSubNeedsProjectAndTopic", func(t *testing.T) {
		path := writeConfig(t, `
pubsub:
  enabled: true
  topic: archived
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})
}
