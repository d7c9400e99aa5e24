package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: dispatch
    user: ${DISPATCH_TEST_DB_USER}
  redis:
    address: localhost:6379
workers:
  assign-doctor:
    enabled: true
    max_jobs_active: 8
  notify-doctor:
    enabled: false
dispatch:
  weights:
    distance: 0.6
    performance: 0
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("DISPATCH_TEST_DB_USER", "dispatcher")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "dispatcher", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Server.Port)

	// partial weights keep the remaining defaults, explicit zero included
	assert.Equal(t, 0.35, cfg.Dispatch.Weights.Availability)
	assert.Equal(t, 0.6, cfg.Dispatch.Weights.Distance)
	assert.Equal(t, 0.20, cfg.Dispatch.Weights.SkillMatch)
	assert.Equal(t, 0.10, cfg.Dispatch.Weights.LoadBalance)
	assert.Equal(t, 0.0, cfg.Dispatch.Weights.Performance)
	assert.Equal(t, 5, cfg.Dispatch.TopK)
	assert.Equal(t, 50, cfg.Dispatch.MaxTopK)
	assert.Equal(t, "dispatch-decisions", cfg.Audit.Index)

	assign := GetWorkerConfig(cfg, "assign-doctor")
	assert.Equal(t, 8, assign.MaxJobsActive)
	assert.Equal(t, 30000, assign.Timeout)
	assert.Equal(t, 3, assign.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "notify-doctor"))
	assert.True(t, IsWorkerEnabled(cfg, "doctor-schedule"))
	assert.True(t, GetWorkerConfig(cfg, "doctor-schedule").Enabled)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("DISPATCH_TEST_DB_USER", "dispatcher")
	t.Setenv("DATABASE_REDIS_ADDRESS", "redis.internal:6380")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Database.Redis.Address)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "missing redis",
			body:    "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "audit without elasticsearch",
			body:    "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\naudit:\n  enabled: true\n",
			wantErr: "elasticsearch",
		},
		{
			name:    "negative weight",
			body:    "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\ndispatch:\n  weights:\n    distance: -1\n",
			wantErr: "dispatch.weights.distance",
		},
		{
			name:    "top_k above cap",
			body:    "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\ndispatch:\n  top_k: 10\n  max_top_k: 3\n",
			wantErr: "dispatch.top_k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, "1.5s", GetDuration(1500).String())
}
