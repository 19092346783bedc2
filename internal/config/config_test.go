package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9091", c.ServeRESTAddress)
	assert.Equal(t, StorageMySQL, c.Storage)
	assert.Equal(t, 5*time.Second, c.ShutdownTimeout)
	assert.Equal(t, logrus.InfoLevel, c.Level())
	assert.Empty(t, c.KafkaBroker)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOODSHOP_STORAGE", "memory")
	t.Setenv("FOODSHOP_LOG_LEVEL", "debug")
	t.Setenv("FOODSHOP_KAFKA_BROKER", "kafka:9092")
	t.Setenv("FOODSHOP_DATABASE_HOST", "db")
	t.Setenv("FOODSHOP_DATABASE_PASSWORD", "secret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, c.Storage)
	assert.Equal(t, logrus.DebugLevel, c.Level())
	assert.Equal(t, "kafka:9092", c.KafkaBroker)
	assert.Equal(t, "foodshop:secret@tcp(db:3306)/foodshop", c.DSN())
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("FOODSHOP_STORAGE", "postgres")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("FOODSHOP_LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)
}
