package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockprep/pkg/market"
)

func writeStoreConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestViperStore_GetProviderPriority(t *testing.T) {
	path := writeStoreConfig(t, `
source_priority:
  CN:
    - name: tushare
      priority: 30
    - name: akshare
      priority: 20
  HK:
    - name: akshare
      priority: 20
`)

	store, err := NewViperStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	ranks, err := store.GetProviderPriority(ctx, market.MarketCN)
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, "tushare", ranks[0].Name)
	assert.Equal(t, 30, ranks[0].Priority)
	assert.Equal(t, "akshare", ranks[1].Name)

	// 未配置的市场返回空，不报错
	ranks, err = store.GetProviderPriority(ctx, market.MarketUS)
	require.NoError(t, err)
	assert.Empty(t, ranks)
}

func TestViperStore_GetSetting(t *testing.T) {
	path := writeStoreConfig(t, `
settings:
  lookback_days: 180
  provider_timeout: 8s
`)

	store, err := NewViperStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, 180, store.GetSetting(ctx, "lookback_days", 365))
	assert.Equal(t, 99, store.GetSetting(ctx, "missing_key", 99), "未配置时返回默认值")

	assert.Equal(t, 8*time.Second, store.GetDurationSetting(ctx, "provider_timeout", 15*time.Second))
	assert.Equal(t, 15*time.Second, store.GetDurationSetting(ctx, "missing_key", 15*time.Second))
}

func TestViperStoreFrom_Empty(t *testing.T) {
	store := NewViperStoreFrom(viper.New())
	ctx := context.Background()

	ranks, err := store.GetProviderPriority(ctx, market.MarketCN)
	require.NoError(t, err)
	assert.Empty(t, ranks, "空配置中心返回空排名，由解析器回退默认排序")

	assert.Equal(t, 365, store.GetSetting(ctx, "lookback_days", 365))
}
