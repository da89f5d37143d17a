package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, config.DefaultResultsDir, cfg.Results.Dir)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, config.DefaultSQLitePath, cfg.Database.SQLite.Path)
	assert.Equal(t, config.DefaultInfluxURL, cfg.Influx.URL)
	assert.Equal(t, "pagepulse", cfg.Influx.Org)
	assert.Equal(t, "pagepulse", cfg.Influx.Bucket)
	assert.Equal(t, config.DefaultQueryRange, cfg.Influx.QueryRange)
	assert.Equal(t, config.DefaultListen, cfg.Server.Listen)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: debug
results:
  dir: /var/lib/pagepulse/results
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 5432
    user: pagepulse
    password: secret
    database: pagepulse
    ssl_mode: disable
influx:
  url: http://influx.internal:8086
  token: abc123
  org: web
  bucket: audits
  query_range: -7d
coach:
  category_map_file: /etc/pagepulse/categories.yaml
server:
  listen: :9090
  cors_origins:
    - https://dashboard.internal
  rate_limit:
    enabled: true
    requests_per_minute: 120
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "/var/lib/pagepulse/results", cfg.Results.Dir)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "-7d", cfg.Influx.QueryRange)
	assert.Equal(t, "/etc/pagepulse/categories.yaml", cfg.Coach.CategoryMapFile)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, []string{"https://dashboard.internal"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.Server.RateLimit.RequestsPerMinute)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name: "unknown driver",
			mutate: func(c *config.Config) {
				c.Database.Driver = "oracle"
			},
		},
		{
			name: "postgres without host",
			mutate: func(c *config.Config) {
				c.Database.Driver = "postgres"
				c.Database.Postgres.Database = "pagepulse"
			},
		},
		{
			name: "postgres without database",
			mutate: func(c *config.Config) {
				c.Database.Driver = "postgres"
				c.Database.Postgres.Host = "db.internal"
			},
		},
		{
			name: "positive query range",
			mutate: func(c *config.Config) {
				c.Influx.QueryRange = "30d"
			},
		},
		{
			name: "garbage query range",
			mutate: func(c *config.Config) {
				c.Influx.QueryRange = "-banana"
			},
		},
		{
			name: "rate limit without quota",
			mutate: func(c *config.Config) {
				c.Server.RateLimit.Enabled = true
				c.Server.RateLimit.RequestsPerMinute = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.Load("")
			require.NoError(t, err)

			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_FluxDayUnits(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	// Flux day and week units are not Go durations but are valid.
	cfg.Influx.QueryRange = "-30d"
	assert.NoError(t, cfg.Validate())

	cfg.Influx.QueryRange = "-2w"
	assert.NoError(t, cfg.Validate())

	cfg.Influx.QueryRange = "-24h"
	assert.NoError(t, cfg.Validate())
}
