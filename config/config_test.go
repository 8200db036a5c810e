package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Scheduler: SchedulerConfig{
			DefaultBudgetMinutes: 60,
			MaxBudgetMinutes:     480,
			LookaheadPageSize:    6,
			FetchConcurrency:     4,
			FetchTimeout:         3 * time.Second,
			MaxConflictRetries:   3,
			LockTTL:              10 * time.Second,
			Timezone:             "Asia/Shanghai",
			StudyStart:           "19:00",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())
}

func TestValidate_LookaheadOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.LookaheadPageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_DefaultBudgetAboveMax(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.DefaultBudgetMinutes = 600
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadStudyStart(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.StudyStart = "7pm"
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_StatsWithoutURL(t *testing.T) {
	cfg := validConfig()
	cfg.Stats.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Stats.BaseURL = "http://stats.local"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsFromEnv(t *testing.T) {
	t.Setenv("PLANNER_AUTH_JWT_SECRET", "env-secret-key-0123456789")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Scheduler.LookaheadPageSize)
	assert.Equal(t, 60, cfg.Scheduler.DefaultBudgetMinutes)
	assert.Equal(t, 3*time.Second, cfg.Scheduler.FetchTimeout)
	assert.Equal(t, "env-secret-key-0123456789", cfg.Auth.JWTSecret)
}
