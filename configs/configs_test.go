package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	oldBackend, oldRedis := StoreBackend, RedisAddress
	t.Cleanup(func() {
		StoreBackend, RedisAddress = oldBackend, oldRedis
		os.Unsetenv("STORE_BACKEND")
		os.Unsetenv("REDIS_ADDRESS")
	})

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_BACKEND=redis\nREDIS_ADDRESS=cache:6380\n"), 0o600))

	require.NoError(t, Load(envFile, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "redis", StoreBackend)
	assert.Equal(t, "cache:6380", RedisAddress)
}
