package settings

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadAllConfig(t *testing.T) {
	// backup env
	envs := os.Environ()
	os.Clearenv()

	ResetSettings()
	require.Equal(t, Settings.MetricsAddr, ":8111")
	require.Equal(t, Settings.LogLevel, "info")
	require.Equal(t, Settings.Redis.MaxRetries, 3)
	require.Equal(t, Settings.Filter.StoreBin, "admission")
	require.Equal(t, Settings.Filter.Default.ExpectedSize, uint64(10000))
	require.Equal(t, Settings.Filter.Default.Probability, 0.01)
	require.Equal(t, Settings.Local.TTLSeconds, 900)
	require.Equal(t, Settings.Lock.TTLSeconds, 30)

	os.Setenv("CG__REDIS__ENDPOINT", "redis:6379")
	os.Setenv("CG__REDIS__DB", "2")
	os.Setenv("CG__FILTER__DEFAULT__EXPECTED_SIZE", "50000")
	ResetSettings()
	require.Equal(t, Settings.Redis.Endpoint, "redis:6379")
	require.Equal(t, Settings.Redis.DB, 2)
	require.Equal(t, Settings.Filter.Default.ExpectedSize, uint64(50000))
	require.Equal(t, Settings.Filter.Default.Probability, 0.01)

	os.Unsetenv("CG__REDIS__ENDPOINT")
	os.Setenv("CG.REDIS.ENDPOINT", "other:6379")
	os.Setenv("CG.FILTER.STORE_BIN", "filterstate")
	os.Setenv("CG.LOCAL.SIZE_MB", "128")
	ResetSettings()
	require.Equal(t, Settings.Redis.Endpoint, "other:6379")
	require.Equal(t, Settings.Filter.StoreBin, "filterstate")
	require.Equal(t, Settings.Local.SizeMB, 128)

	require.Same(t, Redis, &Settings.Redis)
	require.Same(t, Filter, &Settings.Filter)

	// restore variables
	os.Clearenv()
	for _, e := range envs {
		pair := strings.SplitN(e, "=", 2)
		os.Setenv(pair[0], pair[1])
	}
}
