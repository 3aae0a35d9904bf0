package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoaderConfig() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "POS",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("POS_DATABASE_URL", "postgres://pos@localhost/pos")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "POS", cfg.OrderNumberPrefix)
	assert.True(t, cfg.Inventory.RestockOnRefund)
	assert.Equal(t, 10*time.Second, cfg.Health.Interval)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("POS_DATABASE_URL", "postgres://pos@db/pos")
	t.Setenv("POS_ORDER_NUMBER_PREFIX", "TILL7")
	t.Setenv("POS_INVENTORY_RESTOCK_ON_REFUND", "false")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, "TILL7", cfg.OrderNumberPrefix)
	assert.False(t, cfg.Inventory.RestockOnRefund)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("POS_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://platform/pos")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/pos", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("POS_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	_, err := loadConfig(testLoaderConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}
