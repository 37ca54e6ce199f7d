package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, conf)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte("kafka_host: broker:9092\nrelay_batch_size: 7\n"), 0644)
	require.NoError(t, err)

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "broker:9092", conf.KafkaHost)
	assert.Equal(t, 7, conf.RelayBatchSize)
	assert.Equal(t, DefaultConfig.DatabaseDSN, conf.DatabaseDSN)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte("database_dsn: from-file\n"), 0644)
	require.NoError(t, err)

	t.Setenv("ORDER_DB_DSN", "from-env")
	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", conf.DatabaseDSN)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
