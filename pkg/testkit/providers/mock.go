// Package providers 提供测试与演示用的可编排 Mock 提供商客户端。
package providers

import (
	"context"
	"sync"
	"time"

	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
)

// MockClient 可编排的 Mock 提供商客户端
// 实现全部能力接口，按预置数据或错误响应调用，并记录调用次数。
type MockClient struct {
	mu   sync.RWMutex
	name string
	caps core.CapabilitySet

	bars     []core.Bar
	barsErr  error
	info     *core.BasicInfo
	infoErr  error
	stmts    []core.Statement
	stmtsErr error
	quote    *core.Quote
	quoteErr error

	delay time.Duration
	calls map[string]int
}

// NewMockClient 创建 Mock 客户端
func NewMockClient(name string, caps ...core.Capability) *MockClient {
	return &MockClient{
		name:  name,
		caps:  core.NewCapabilitySet(caps...),
		calls: make(map[string]int),
	}
}

// Name 返回提供商名称
func (m *MockClient) Name() string {
	return m.name
}

// Capabilities 返回声明的能力集合
func (m *MockClient) Capabilities() core.CapabilitySet {
	return m.caps
}

// SetBars 预置历史K线响应
func (m *MockClient) SetBars(bars []core.Bar) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = bars
	m.barsErr = nil
	return m
}

// SetBarsError 预置历史K线错误响应
func (m *MockClient) SetBarsError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.barsErr = err
	return m
}

// SetBasicInfo 预置基本信息响应
func (m *MockClient) SetBasicInfo(info *core.BasicInfo) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info = info
	m.infoErr = nil
	return m
}

// SetBasicInfoError 预置基本信息错误响应
func (m *MockClient) SetBasicInfoError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoErr = err
	return m
}

// SetStatements 预置财务报表响应
func (m *MockClient) SetStatements(stmts []core.Statement) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stmts = stmts
	m.stmtsErr = nil
	return m
}

// SetStatementsError 预置财务报表错误响应
func (m *MockClient) SetStatementsError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stmtsErr = err
	return m
}

// SetQuote 预置实时行情响应
func (m *MockClient) SetQuote(quote *core.Quote) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quote = quote
	m.quoteErr = nil
	return m
}

// SetQuoteError 预置实时行情错误响应
func (m *MockClient) SetQuoteError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteErr = err
	return m
}

// SetDelay 设置每次调用的模拟延迟
func (m *MockClient) SetDelay(delay time.Duration) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
	return m
}

// CallCount 返回某操作被调用的次数
func (m *MockClient) CallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// record 记录调用并模拟延迟
func (m *MockClient) record(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// FetchBasicInfo 返回预置的基本信息
func (m *MockClient) FetchBasicInfo(ctx context.Context, instrument market.InstrumentCode) (*core.BasicInfo, error) {
	if err := m.record(ctx, "FetchBasicInfo"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return m.info, nil
}

// FetchHistoricalBars 返回预置的历史K线
func (m *MockClient) FetchHistoricalBars(ctx context.Context, instrument market.InstrumentCode, window core.DateWindow) ([]core.Bar, error) {
	if err := m.record(ctx, "FetchHistoricalBars"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.barsErr != nil {
		return nil, m.barsErr
	}
	return m.bars, nil
}

// FetchFinancialStatements 返回预置的财务报表
func (m *MockClient) FetchFinancialStatements(ctx context.Context, instrument market.InstrumentCode, limit int) ([]core.Statement, error) {
	if err := m.record(ctx, "FetchFinancialStatements"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stmtsErr != nil {
		return nil, m.stmtsErr
	}
	if limit < len(m.stmts) {
		return m.stmts[:limit], nil
	}
	return m.stmts, nil
}

// FetchRealtimeQuote 返回预置的实时行情
func (m *MockClient) FetchRealtimeQuote(ctx context.Context, instrument market.InstrumentCode) (*core.Quote, error) {
	if err := m.record(ctx, "FetchRealtimeQuote"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return m.quote, nil
}

// GenerateDailyBars 生成 count 条连续工作日的日K线，最后一条落在 end 当日或之前最近的工作日。
func GenerateDailyBars(symbol string, count int, end time.Time) []core.Bar {
	bars := make([]core.Bar, 0, count)
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	for len(bars) < count {
		if day.Weekday() >= time.Monday && day.Weekday() <= time.Friday {
			price := 10.0 + float64(len(bars))*0.1
			bars = append(bars, core.Bar{
				Symbol:    symbol,
				TradeDate: day,
				Open:      price,
				High:      price * 1.02,
				Low:       price * 0.98,
				Close:     price * 1.01,
				Volume:    1000000,
				Turnover:  price * 1000000,
			})
		}
		day = day.AddDate(0, 0, -1)
	}

	// 生成时按日期倒序，返回前翻转为升序
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars
}
