package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockprep/pkg/market"
	"stockprep/pkg/provider"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/storage"
	"stockprep/pkg/testkit/providers"
)

var testInstrument = market.InstrumentCode{Raw: "600519", Normalized: "600519", Market: market.MarketCN}

func testWindow() core.DateWindow {
	end := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	return core.NewDateWindow(end.AddDate(0, 0, -30), end)
}

func resolved(client core.Client, priority int) provider.ResolvedProvider {
	return provider.ResolvedProvider{
		Descriptor: provider.Descriptor{
			Name:         client.Name(),
			Capabilities: client.Capabilities(),
			Priority:     priority,
		},
		Client: client,
	}
}

func quoteFor(symbol string, source string) *core.Quote {
	return &core.Quote{Symbol: symbol, Price: 1720.5, Timestamp: time.Now(), Source: source}
}

func statementsFor(symbol string) []core.Statement {
	return []core.Statement{{Symbol: symbol, ReportDate: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), Revenue: 1e9}}
}

func TestSync_FirstSuccessHalts(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	end := testWindow().End
	first := providers.NewMockClient("tushare", core.CapHistorical, core.CapFinancial, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 10, end)).
		SetStatements(statementsFor("600519"))
	second := providers.NewMockClient("akshare", core.CapHistorical, core.CapFinancial, core.CapRealtime, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 100, end)).
		SetQuote(quoteFor("600519", "akshare"))

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(first, 30), resolved(second, 20)})

	require.True(t, outcome.Success)
	assert.Equal(t, StateDoneSuccess, outcome.State)
	assert.Equal(t, "tushare", outcome.ProviderUsed, "首个成功的提供商即停止，不追求更多记录")
	assert.Equal(t, 10, outcome.HistoricalRecords)
	assert.True(t, outcome.FinancialSynced)

	assert.Equal(t, 0, second.CallCount("FetchHistoricalBars"), "次优提供商不应被调用历史数据")
}

func TestSync_FallbackToNextProvider(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	end := testWindow().End
	failing := providers.NewMockClient("tushare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBarsError(core.NewProviderError("tushare", "FetchHistoricalBars", core.KindRateLimited, errors.New("429")))
	backup := providers.NewMockClient("akshare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 20, end))

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(failing, 30), resolved(backup, 20)})

	require.True(t, outcome.Success)
	assert.Equal(t, "akshare", outcome.ProviderUsed)
	assert.Equal(t, 20, outcome.HistoricalRecords)
	assert.Contains(t, outcome.Message, "使用akshare同步成功")

	// 落库记录打上实际数据源标签
	bars, err := store.QueryBars(context.Background(), "600519", testWindow())
	require.NoError(t, err)
	require.NotEmpty(t, bars)
	assert.Equal(t, "akshare", bars[0].Source)
}

func TestSync_AllProvidersExhausted(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	first := providers.NewMockClient("tushare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBarsError(core.NewProviderError("tushare", "FetchHistoricalBars", core.KindNetwork, errors.New("dial timeout")))
	second := providers.NewMockClient("akshare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBarsError(core.NewProviderError("akshare", "FetchHistoricalBars", core.KindRateLimited, errors.New("429")))

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(first, 30), resolved(second, 20)})

	require.False(t, outcome.Success)
	assert.Equal(t, StateDoneExhausted, outcome.State)
	assert.Contains(t, outcome.Message, "所有数据源同步失败")
	assert.Equal(t, core.KindRateLimited, outcome.LastErrorKind, "保留最后一个错误的分类")
	assert.NotEmpty(t, outcome.LastError)
}

func TestSync_EmptyResponseCountsAsFailure(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	empty := providers.NewMockClient("tushare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBars(nil)

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(empty, 30)})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.LastError, "empty response")
}

func TestSync_NoProviders(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(), nil)

	require.False(t, outcome.Success)
	assert.Equal(t, StateDoneExhausted, outcome.State)
	assert.Equal(t, "没有可用的数据源", outcome.Message)
}

func TestSync_RealtimeDelegation(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	end := testWindow().End
	// tushare 不声明实时能力，实时行情应委托给列表中的 akshare
	primary := providers.NewMockClient("tushare", core.CapHistorical, core.CapFinancial, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 15, end)).
		SetStatements(statementsFor("600519"))
	realtime := providers.NewMockClient("akshare", core.CapHistorical, core.CapRealtime, core.CapSingleSymbolSync).
		SetQuote(quoteFor("600519", "akshare"))

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(primary, 30), resolved(realtime, 20)})

	require.True(t, outcome.Success)
	assert.Equal(t, "tushare", outcome.ProviderUsed)
	assert.True(t, outcome.RealtimeSynced)
	assert.Equal(t, 1, realtime.CallCount("FetchRealtimeQuote"))
	assert.Contains(t, outcome.Message, "实时行情✓")
}

func TestSync_FinancialFailureDoesNotBlock(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	end := testWindow().End
	client := providers.NewMockClient("tushare", core.CapHistorical, core.CapFinancial, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 15, end)).
		SetStatementsError(core.NewProviderError("tushare", "FetchFinancialStatements", core.KindAuth, errors.New("token expired")))

	orchestrator := NewOrchestrator(store, Options{})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(client, 30)})

	require.True(t, outcome.Success, "财务失败不影响整体成功")
	assert.False(t, outcome.FinancialSynced)
	assert.NotContains(t, outcome.Message, "财务数据✓")
}

// recordingSettings 记录被查询的时长参数，可下发固定超时
type recordingSettings struct {
	mu      sync.Mutex
	queried []string
	timeout time.Duration
}

func (s *recordingSettings) GetProviderPriority(ctx context.Context, m market.Market) ([]core.SourceRank, error) {
	return nil, nil
}

func (s *recordingSettings) GetSetting(ctx context.Context, key string, def int) int {
	return def
}

func (s *recordingSettings) GetDurationSetting(ctx context.Context, key string, def time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queried = append(s.queried, key)
	if s.timeout > 0 {
		return s.timeout
	}
	return def
}

func TestSync_ProviderTimeoutFromSettings(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	// 配置中心下发10毫秒超时，覆盖构造时的缺省值，慢提供商被掐断
	settings := &recordingSettings{timeout: 10 * time.Millisecond}
	slow := providers.NewMockClient("tushare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 10, testWindow().End)).
		SetDelay(500 * time.Millisecond)

	orchestrator := NewOrchestrator(store, Options{Settings: settings, ProviderTimeout: 5 * time.Second})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(slow, 30)})

	assert.False(t, outcome.Success)
	assert.Equal(t, StateDoneExhausted, outcome.State)
	assert.Contains(t, settings.queried, "provider_timeout")
}

func TestSync_NilSettingsUsesConstructorTimeout(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	client := providers.NewMockClient("tushare", core.CapHistorical, core.CapSingleSymbolSync).
		SetBars(providers.GenerateDailyBars("600519", 10, testWindow().End))

	orchestrator := NewOrchestrator(store, Options{ProviderTimeout: 2 * time.Second})
	outcome := orchestrator.Sync(context.Background(), testInstrument, testWindow(),
		[]provider.ResolvedProvider{resolved(client, 30)})

	require.True(t, outcome.Success)
	assert.Equal(t, 10, outcome.HistoricalRecords)
}
