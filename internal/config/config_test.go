package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcart/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8000/ws", cfg.RealtimeURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIELDCART_API_URL", "https://market.example.com")
	t.Setenv("FIELDCART_WS_URL", "wss://market.example.com/ws")
	t.Setenv("FIELDCART_REQUEST_TIMEOUT", "3s")
	t.Setenv("FIELDCART_DEBUG", "true")
	t.Setenv("FIELDCART_TOKEN", "abc")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://market.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://market.example.com/ws", cfg.RealtimeURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "abc", cfg.Token)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FIELDCART_REQUEST_TIMEOUT", "soon")
	t.Setenv("FIELDCART_DEBUG", "kinda")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.Debug)
}
