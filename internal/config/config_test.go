package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://disasterscharter.org", cfg.BaseURL.String())
	assert.Equal(t, 2*time.Second, cfg.RequestDelay)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, defaultUserAgent, cfg.UserAgent)
	assert.Equal(t, "flood", cfg.Disaster)
	assert.Empty(t, cfg.QueryPlanFile)
	assert.Equal(t, "data", cfg.OutputDir)
	assert.False(t, cfg.EnrichDetails)
	assert.Equal(t, 1000, cfg.DetailCacheSize)
	assert.Equal(t, 5, cfg.MaxReports)
	assert.Equal(t, int64(1024), cfg.MinDownloadBytes)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "@every 24h", cfg.CollectSchedule)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "flood-activations", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.SQLiteEnabled())
	assert.False(t, cfg.S3Enabled())
	assert.Equal(t, "flood-etl/", cfg.S3Prefix)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CHARTER_BASE_URL", "http://localhost:9000/")
	t.Setenv("CHARTER_REQUEST_DELAY", "0s")
	t.Setenv("CHARTER_REQUEST_TIMEOUT", "5s")
	t.Setenv("CHARTER_MAX_RETRIES", "0")
	t.Setenv("CHARTER_DISASTER", "Flood")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("ENRICH_DETAILS", "true")
	t.Setenv("MAX_REPORTS", "2")
	t.Setenv("DETAIL_CACHE_SIZE", "0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("SQLITE_PATH", "/tmp/floods.db")
	t.Setenv("S3_BUCKET", "flood-archive")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.BaseURL.String())
	assert.Zero(t, cfg.RequestDelay)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Zero(t, cfg.MaxRetries)
	assert.Equal(t, "flood", cfg.Disaster)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.True(t, cfg.EnrichDetails)
	assert.Equal(t, 2, cfg.MaxReports)
	assert.Zero(t, cfg.DetailCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.True(t, cfg.KafkaEnabled())
	assert.True(t, cfg.SQLiteEnabled())
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"CHARTER_BASE_URL", "not a url", "CHARTER_BASE_URL"},
		{"CHARTER_REQUEST_DELAY", "soon", "CHARTER_REQUEST_DELAY"},
		{"CHARTER_REQUEST_TIMEOUT", "0s", "CHARTER_REQUEST_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"CHARTER_MAX_RETRIES", "11", "CHARTER_MAX_RETRIES"},
		{"CHARTER_MAX_RETRIES", "-1", "CHARTER_MAX_RETRIES"},
		{"MAX_REPORTS", "many", "MAX_REPORTS"},
		{"DETAIL_CACHE_SIZE", "-5", "DETAIL_CACHE_SIZE"},
		{"ENRICH_DETAILS", "maybe", "ENRICH_DETAILS"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_KafkaDisabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestQueryPlan_Default(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	plan, err := cfg.QueryPlan()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultQueryPlan("flood"), plan)
}

func TestLoadQueryPlan(t *testing.T) {
	t.Run("explicit regions", func(t *testing.T) {
		path := writePlan(t, "include_global: true\nregions:\n  - europe\n  - Asia\n")
		plan, err := LoadQueryPlan(path, "flood")
		require.NoError(t, err)
		assert.Equal(t, []string{domain.GlobalRegion, "europe", "asia"}, plan.Regions())
	})

	t.Run("global disabled and disaster override", func(t *testing.T) {
		path := writePlan(t, "disaster: storm\ninclude_global: false\nregions: [africa]\n")
		plan, err := LoadQueryPlan(path, "flood")
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, domain.Query{Region: "africa", Disaster: "storm"}, plan[0])
	})

	t.Run("defaults to every region", func(t *testing.T) {
		path := writePlan(t, "disaster: flood\n")
		plan, err := LoadQueryPlan(path, "flood")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultQueryPlan("flood"), plan)
	})

	t.Run("unknown region", func(t *testing.T) {
		path := writePlan(t, "regions: [atlantis]\n")
		_, err := LoadQueryPlan(path, "flood")
		assert.ErrorContains(t, err, "unknown region")
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := writePlan(t, "regions: [unterminated\n")
		_, err := LoadQueryPlan(path, "flood")
		assert.ErrorContains(t, err, "parse query plan")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadQueryPlan(filepath.Join(t.TempDir(), "absent.yaml"), "flood")
		assert.ErrorContains(t, err, "read query plan")
	})

	t.Run("via config", func(t *testing.T) {
		t.Setenv("QUERY_PLAN_FILE", writePlan(t, "include_global: false\nregions: [oceania]\n"))
		cfg, err := Load()
		require.NoError(t, err)
		plan, err := cfg.QueryPlan()
		require.NoError(t, err)
		assert.Equal(t, []string{"oceania"}, plan.Regions())
	})
}
