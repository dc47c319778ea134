package config_test

import (
	"testing"
	"time"

	"github.com/kairei-project/kairei/config"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesOptionsOverDefaults(t *testing.T) {
	cfg, err := config.New(
		config.WithAgentConcurrency(4),
		config.WithRequestTimeout(10*time.Second),
		config.WithProviderOrder("default", "expert"),
	)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.AgentConcurrency)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, []string{"default", "expert"}, cfg.ProviderOrder)
	require.Equal(t, 256, cfg.EventBusCapacity)
}

func TestNewRejectsInvalidOption(t *testing.T) {
	_, err := config.New(config.WithAgentConcurrency(0))
	require.Error(t, err)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("KAIREI_AGENT_CONCURRENCY", "16")
	cfg, err := config.New()
	require.NoError(t, err)
	require.Equal(t, 16, cfg.AgentConcurrency)
}

func TestEnvInvalidValueErrors(t *testing.T) {
	t.Setenv("KAIREI_REQUEST_TIMEOUT", "not-a-duration")
	_, err := config.New()
	require.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}
