package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("STAGEFLOW_DB_HOST", "db.internal")
	t.Setenv("STAGEFLOW_ENGINE_STRICT_ENTITY_CHECK", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, 5, cfg.Directory.TimeoutSeconds)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.True(t, cfg.Engine.StrictEntityCheck)
}

func TestDSN(t *testing.T) {
	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)
	cfg.DB.User = "wf"
	cfg.DB.Password = "secret"
	cfg.DB.Name = "stageflow"

	assert.Equal(t,
		"host=localhost user=wf password=secret dbname=stageflow port=5432 sslmode=disable",
		cfg.DSN())
}
