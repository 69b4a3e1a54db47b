// Package decorators 提供数据提供商客户端的装饰器。
package decorators

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"stockprep/pkg/logger"
	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
)

// CircuitBreakerClient 熔断器装饰器
// 使用 sony/gobreaker 包裹提供商客户端的全部能力调用，
// 上游持续故障时快速失败，避免在回退链中反复等待同一个坏源。
type CircuitBreakerClient struct {
	inner  core.Client
	cb     *gobreaker.CircuitBreaker
	config *CircuitBreakerConfig

	mu    sync.RWMutex
	stats CircuitBreakerStats
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Name        string        `mapstructure:"name"`          // 熔断器名称
	MaxRequests uint32        `mapstructure:"max_requests"`  // 半开状态下的最大请求数
	Interval    time.Duration `mapstructure:"interval"`      // 统计窗口时间
	Timeout     time.Duration `mapstructure:"timeout"`       // 熔断器打开后的超时时间
	ReadyToTrip uint32        `mapstructure:"ready_to_trip"` // 触发熔断的连续失败次数阈值
}

// CircuitBreakerStats 熔断器统计信息
type CircuitBreakerStats struct {
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	LastFailure        time.Time `json:"last_failure"`
}

// DefaultCircuitBreakerConfig 默认熔断器配置
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 5,                // 半开状态允许5个请求
		Interval:    60 * time.Second, // 60秒统计窗口
		Timeout:     30 * time.Second, // 熔断30秒
		ReadyToTrip: 5,                // 连续5次失败触发熔断
	}
}

// NewCircuitBreakerClient 创建熔断器装饰器
func NewCircuitBreakerClient(inner core.Client, config *CircuitBreakerConfig) *CircuitBreakerClient {
	if config == nil {
		config = DefaultCircuitBreakerConfig(inner.Name())
	}

	log := logger.WithComponent("circuit_breaker")
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ReadyToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("熔断器 %s 状态从 %v 变更为 %v", name, from, to)
		},
	}

	return &CircuitBreakerClient{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(settings),
		config: config,
	}
}

// Name 返回被包裹提供商的名称
func (c *CircuitBreakerClient) Name() string {
	return c.inner.Name()
}

// Capabilities 返回被包裹提供商的能力集合
func (c *CircuitBreakerClient) Capabilities() core.CapabilitySet {
	return c.inner.Capabilities()
}

// Stats 返回熔断器统计信息
func (c *CircuitBreakerClient) Stats() CircuitBreakerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// execute 经熔断器执行调用并维护统计
func (c *CircuitBreakerClient) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	c.stats.TotalRequests++
	c.mu.Unlock()

	value, err := c.cb.Execute(fn)

	c.mu.Lock()
	if err != nil {
		c.stats.FailedRequests++
		c.stats.LastFailure = time.Now()
	} else {
		c.stats.SuccessfulRequests++
	}
	c.mu.Unlock()

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		// 熔断打开等同于该提供商暂时不可用，打上网络类标签交给回退链
		return nil, core.NewProviderError(c.inner.Name(), op, core.KindNetwork, err)
	}
	return value, err
}

// FetchBasicInfo 经熔断器获取基本信息
func (c *CircuitBreakerClient) FetchBasicInfo(ctx context.Context, instrument market.InstrumentCode) (*core.BasicInfo, error) {
	client, ok := c.inner.(core.BasicInfoClient)
	if !ok {
		return nil, core.NewProviderError(c.inner.Name(), "FetchBasicInfo", core.KindUnknown, core.ErrCapabilityNotSupported)
	}

	value, err := c.execute("FetchBasicInfo", func() (interface{}, error) {
		return client.FetchBasicInfo(ctx, instrument)
	})
	if err != nil {
		return nil, err
	}
	return value.(*core.BasicInfo), nil
}

// FetchHistoricalBars 经熔断器获取历史K线
func (c *CircuitBreakerClient) FetchHistoricalBars(ctx context.Context, instrument market.InstrumentCode, window core.DateWindow) ([]core.Bar, error) {
	client, ok := c.inner.(core.HistoricalClient)
	if !ok {
		return nil, core.NewProviderError(c.inner.Name(), "FetchHistoricalBars", core.KindUnknown, core.ErrCapabilityNotSupported)
	}

	value, err := c.execute("FetchHistoricalBars", func() (interface{}, error) {
		return client.FetchHistoricalBars(ctx, instrument, window)
	})
	if err != nil {
		return nil, err
	}
	return value.([]core.Bar), nil
}

// FetchFinancialStatements 经熔断器获取财务报表
func (c *CircuitBreakerClient) FetchFinancialStatements(ctx context.Context, instrument market.InstrumentCode, limit int) ([]core.Statement, error) {
	client, ok := c.inner.(core.FinancialClient)
	if !ok {
		return nil, core.NewProviderError(c.inner.Name(), "FetchFinancialStatements", core.KindUnknown, core.ErrCapabilityNotSupported)
	}

	value, err := c.execute("FetchFinancialStatements", func() (interface{}, error) {
		return client.FetchFinancialStatements(ctx, instrument, limit)
	})
	if err != nil {
		return nil, err
	}
	return value.([]core.Statement), nil
}

// FetchRealtimeQuote 经熔断器获取实时行情
func (c *CircuitBreakerClient) FetchRealtimeQuote(ctx context.Context, instrument market.InstrumentCode) (*core.Quote, error) {
	client, ok := c.inner.(core.RealtimeClient)
	if !ok {
		return nil, core.NewProviderError(c.inner.Name(), "FetchRealtimeQuote", core.KindUnknown, core.ErrCapabilityNotSupported)
	}

	value, err := c.execute("FetchRealtimeQuote", func() (interface{}, error) {
		return client.FetchRealtimeQuote(ctx, instrument)
	})
	if err != nil {
		return nil, err
	}
	return value.(*core.Quote), nil
}

// Close 关闭被包裹的提供商
func (c *CircuitBreakerClient) Close() error {
	if closable, ok := c.inner.(core.Closable); ok {
		return closable.Close()
	}
	return nil
}
