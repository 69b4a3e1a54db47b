package freshness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/storage"
	"stockprep/pkg/timing"
)

// fixedTimeService 固定当前时间
type fixedTimeService struct {
	now time.Time
}

func (f *fixedTimeService) Now() time.Time {
	return f.now
}

// failingStorage 查询永远失败
type failingStorage struct{}

func (f *failingStorage) UpsertBars(ctx context.Context, bars []core.Bar) (int, error) {
	return 0, errors.New("backend down")
}

func (f *failingStorage) QueryBars(ctx context.Context, symbol string, window core.DateWindow) ([]core.Bar, error) {
	return nil, errors.New("backend down")
}

func (f *failingStorage) Close() error { return nil }

var checkerInstrument = market.InstrumentCode{Raw: "600519", Normalized: "600519", Market: market.MarketCN}

func seedBars(t *testing.T, store storage.BarStorage, days ...time.Time) {
	t.Helper()
	bars := make([]core.Bar, 0, len(days))
	for _, day := range days {
		bars = append(bars, core.Bar{
			Symbol:    "600519",
			TradeDate: day,
			Close:     1700.0,
			Source:    "tushare",
		})
	}
	_, err := store.UpsertBars(context.Background(), bars)
	require.NoError(t, err)
}

func TestCheckFreshness_EmptyCache(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	checker := NewChecker(store, timing.DefaultTradingCalendar())
	verdict := checker.CheckFreshness(context.Background(), checkerInstrument,
		core.NewDateWindow(time.Now().AddDate(0, 0, -30), time.Now()))

	assert.False(t, verdict.HasData)
	assert.False(t, verdict.IsLatest)
	assert.Equal(t, "缓存中没有数据", verdict.Message)
}

func TestCheckFreshness_FreshData(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	// 当前时间：2025-06-05 周四
	now := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	calendar := timing.NewTradingCalendar(&fixedTimeService{now: now})

	// 数据到周三，落后1天，在允许范围内
	seedBars(t, store,
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
	)

	checker := NewChecker(store, calendar)
	verdict := checker.CheckFreshness(context.Background(), checkerInstrument,
		core.NewDateWindow(now.AddDate(0, 0, -30), now))

	assert.True(t, verdict.HasData)
	assert.True(t, verdict.IsLatest)
	assert.Equal(t, 3, verdict.RecordCount)
	require.NotNil(t, verdict.LatestDate)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), *verdict.LatestDate)
	assert.Contains(t, verdict.Message, "找到3条记录")
	assert.Contains(t, verdict.Message, "2025-06-04")
}

func TestCheckFreshness_StaleData(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	// 当前时间：2025-06-06 周五，数据只到周一，落后4天
	now := time.Date(2025, 6, 6, 10, 0, 0, 0, time.UTC)
	calendar := timing.NewTradingCalendar(&fixedTimeService{now: now})

	seedBars(t, store, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	checker := NewChecker(store, calendar)
	verdict := checker.CheckFreshness(context.Background(), checkerInstrument,
		core.NewDateWindow(now.AddDate(0, 0, -30), now))

	assert.True(t, verdict.HasData)
	assert.False(t, verdict.IsLatest)
	assert.Contains(t, verdict.Message, "需要更新到2025-06-06")
}

func TestCheckFreshness_LocalClockAheadOfUTC(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	// 当前时钟在+08:00的周三早晨，缓存交易日存为UTC零点；
	// 数据只到周一，按日历日期落后2天，必须判定为过期
	beijing := time.FixedZone("CST", 8*3600)
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, beijing)
	calendar := timing.NewTradingCalendar(&fixedTimeService{now: now})

	seedBars(t, store, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	checker := NewChecker(store, calendar)
	verdict := checker.CheckFreshness(context.Background(), checkerInstrument,
		core.NewDateWindow(now.AddDate(0, 0, -30), now))

	assert.True(t, verdict.HasData)
	assert.False(t, verdict.IsLatest, "瞬时差不足48小时，但日历日期已落后2天")
	assert.Contains(t, verdict.Message, "需要更新到2025-06-04")
}

func TestCheckFreshness_WeekendTolerance(t *testing.T) {
	store := storage.NewMemoryBarStorage()
	defer store.Close()

	// 周日检查，数据到周五，视为最新
	now := time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC)
	calendar := timing.NewTradingCalendar(&fixedTimeService{now: now})

	seedBars(t, store, time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC))

	checker := NewChecker(store, calendar)
	verdict := checker.CheckFreshness(context.Background(), checkerInstrument,
		core.NewDateWindow(now.AddDate(0, 0, -30), now))

	assert.True(t, verdict.HasData)
	assert.True(t, verdict.IsLatest)
}

func TestCheckFreshness_StorageError(t *testing.T) {
	checker := NewChecker(&failingStorage{}, timing.DefaultTradingCalendar())
	verdict := checker.CheckFreshness(context.Background(), checkerInstrument,
		core.NewDateWindow(time.Now().AddDate(0, 0, -30), time.Now()))

	// 后端不可用不报错，走同步路径
	assert.False(t, verdict.HasData)
	assert.Contains(t, verdict.Message, "缓存查询失败")
}
