// Package core 定义数据提供商的能力接口与数据类型。
package core

import (
	"context"
	"time"

	"stockprep/pkg/market"
)

// Capability 提供商能力标识
type Capability string

const (
	// CapHistorical 历史K线数据能力
	CapHistorical Capability = "HISTORICAL"
	// CapFinancial 财务报表数据能力
	CapFinancial Capability = "FINANCIAL"
	// CapRealtime 实时行情能力
	CapRealtime Capability = "REALTIME"
	// CapSingleSymbolSync 单股票同步能力
	// 缺少此能力的提供商只服务批量同步任务，本管道不会尝试
	CapSingleSymbolSync Capability = "SINGLE_SYMBOL_SYNC"
)

// CapabilitySet 提供商能力集合
type CapabilitySet map[Capability]bool

// NewCapabilitySet 根据能力列表创建集合
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Has 判断集合是否包含某项能力
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// Client 数据提供商基础接口
// 所有数据提供商客户端都必须实现此接口
type Client interface {
	// Name 返回提供商名称，用于标识和日志记录
	Name() string

	// Capabilities 返回提供商静态声明的能力集合
	// 管道不会调用未声明的能力
	Capabilities() CapabilitySet
}

// BasicInfoClient 基本信息提供商接口
type BasicInfoClient interface {
	Client

	// FetchBasicInfo 获取股票基本信息
	FetchBasicInfo(ctx context.Context, instrument market.InstrumentCode) (*BasicInfo, error)
}

// HistoricalClient 历史数据提供商接口
type HistoricalClient interface {
	Client

	// FetchHistoricalBars 获取指定日期范围内的历史K线
	FetchHistoricalBars(ctx context.Context, instrument market.InstrumentCode, window DateWindow) ([]Bar, error)
}

// FinancialClient 财务数据提供商接口
type FinancialClient interface {
	Client

	// FetchFinancialStatements 获取最近 limit 期财务报表
	FetchFinancialStatements(ctx context.Context, instrument market.InstrumentCode, limit int) ([]Statement, error)
}

// RealtimeClient 实时行情提供商接口
type RealtimeClient interface {
	Client

	// FetchRealtimeQuote 获取单股票实时行情
	FetchRealtimeQuote(ctx context.Context, instrument market.InstrumentCode) (*Quote, error)
}

// Closable 可关闭接口
// 需要清理资源的提供商应实现此接口
type Closable interface {
	Close() error
}

// DateWindow 日期范围，Start 不晚于 End
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateWindow 创建日期范围，自动纠正顺序
func NewDateWindow(start, end time.Time) DateWindow {
	if end.Before(start) {
		start, end = end, start
	}
	return DateWindow{Start: start, End: end}
}

// Days 返回范围覆盖的天数
func (w DateWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}
