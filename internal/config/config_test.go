package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	require.Error(t, err)
	assert.Equal(t, `TEST_INT_BAD="abc" is not a valid integer`, err.Error())
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT_BAD", "fast")
	_, err := envFloat("TEST_FLOAT_BAD", 1)
	require.Error(t, err)
	assert.Equal(t, `TEST_FLOAT_BAD="fast" is not a valid number`, err.Error())
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	require.Error(t, err)
	assert.Equal(t, `TEST_BOOL_BAD="maybe" is not a valid boolean`, err.Error())
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, v)
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 14, cfg.ComparisonWindowDays)
	assert.Equal(t, "gpt-4.1-mini", cfg.CoachModel)
	assert.Equal(t, 30*time.Second, cfg.CoachTimeout)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	t.Setenv("NEGOTIATOR_PORT", "abc")
	t.Setenv("NEGOTIATOR_COACH_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	got := err.Error()
	assert.True(t, strings.Contains(got, "NEGOTIATOR_PORT"), got)
	assert.True(t, strings.Contains(got, "NEGOTIATOR_COACH_TIMEOUT"), got)
}

func TestValidateWriteTimeoutMustExceedCoachTimeout(t *testing.T) {
	t.Setenv("NEGOTIATOR_COACH_TIMEOUT", "60s")
	t.Setenv("NEGOTIATOR_WRITE_TIMEOUT", "30s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEGOTIATOR_WRITE_TIMEOUT")
}

func TestValidateComparisonWindowBounds(t *testing.T) {
	t.Setenv("NEGOTIATOR_COMPARISON_WINDOW_DAYS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEGOTIATOR_COMPARISON_WINDOW_DAYS")
}

func TestValidateRateLimitOnlyWhenEnabled(t *testing.T) {
	t.Setenv("NEGOTIATOR_RATE_LIMIT_ENABLED", "false")
	t.Setenv("NEGOTIATOR_RATE_LIMIT_RPS", "0")
	_, err := Load()
	require.NoError(t, err)
}
