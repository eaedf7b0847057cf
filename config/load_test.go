package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ltiprovider/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(file, []byte(`
app:
  enable_lti_provider: true
  base_url: https://lms.example.org
session:
  jwt_secret: secret
outcome:
  timeout: 3s
  body_hash: true
dispatcher:
  interval: 500ms
  max_attempts: 3
`), 0o600))

	var cfg core.Config
	require.Nil(t, Load(file, &cfg))

	assert.True(t, cfg.App.EnableLtiProvider)
	assert.Equal(t, "https://lms.example.org", cfg.App.BaseURL)
	assert.Equal(t, "secret", cfg.Session.JwtSecret)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.Outcome.Timeout))
	assert.True(t, cfg.Outcome.BodyHash)
	assert.Equal(t, 500*time.Millisecond, time.Duration(cfg.Dispatcher.Interval))
	assert.Equal(t, 3, cfg.Dispatcher.MaxAttempts)

	// defaults
	assert.Equal(t, defaultUserAgent, cfg.Outcome.UserAgent)
	assert.Equal(t, defaultDispatchBatch, cfg.Dispatcher.Batch)
	assert.EqualValues(t, defaultDispatchCapacity, cfg.Dispatcher.Capacity)
	assert.Equal(t, defaultConsumerTTL, time.Duration(cfg.Cache.ConsumerTTL))
}

func TestDurationUnmarshal(t *testing.T) {
	var d core.Duration
	require.Nil(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, time.Duration(d))

	require.Nil(t, d.UnmarshalJSON([]byte(`1000`)))
	assert.Equal(t, time.Microsecond, time.Duration(d))

	assert.NotNil(t, d.UnmarshalJSON([]byte(`"soon"`)))
}
