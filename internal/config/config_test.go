package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "convex", cfg.JWTAudience)
	assert.Equal(t, "dm.events", cfg.AMQPExchange)
	assert.Empty(t, cfg.AMQPURL)
	assert.True(t, cfg.GRPCEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "/tmp/dm.db")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("GRPC_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.WSAllowedOrigins)
	assert.False(t, cfg.GRPCEnabled)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("DEBUG_ROUTES", "false")

	_, err := Load()
	require.Error(t, err)

	// debug routes sit behind auth, so they need a secret too
	t.Setenv("DEBUG_ROUTES", "true")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "   ")
	_, err = Load()
	require.Error(t, err)
}
