package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockprep/pkg/provider/core"
)

// barKey K线记录的唯一键
type barKey struct {
	tradeDate string // YYYY-MM-DD
	source    string
}

// MemoryBarStorage 是完全在内存中实现的 BarStorage。
// 用于快速、无I/O的测试，所有数据在程序结束时会丢失。
type MemoryBarStorage struct {
	mu     sync.RWMutex
	data   map[string]map[barKey]core.Bar // symbol -> key -> bar
	closed bool
	stats  MemoryBarStorageStats
}

// MemoryBarStorageStats 包含了 MemoryBarStorage 的运行统计信息。
type MemoryBarStorageStats struct {
	TotalRecords int64     `json:"total_records"` // 存储的总记录数
	TotalSymbols int       `json:"total_symbols"` // 股票数量
	LastUpsert   time.Time `json:"last_upsert"`   // 最后一次写入时间
}

// NewMemoryBarStorage 创建一个新的 MemoryBarStorage 实例。
func NewMemoryBarStorage() *MemoryBarStorage {
	return &MemoryBarStorage{
		data: make(map[string]map[barKey]core.Bar),
	}
}

// UpsertBars 将K线写入内存，同键记录被覆盖。
func (ms *MemoryBarStorage) UpsertBars(ctx context.Context, bars []core.Bar) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return 0, ErrStorageClosed
	}

	written := 0
	for _, bar := range bars {
		rows, exists := ms.data[bar.Symbol]
		if !exists {
			rows = make(map[barKey]core.Bar)
			ms.data[bar.Symbol] = rows
		}

		key := barKey{
			tradeDate: bar.TradeDate.Format("2006-01-02"),
			source:    bar.Source,
		}
		if _, replaced := rows[key]; !replaced {
			ms.stats.TotalRecords++
		}
		rows[key] = bar
		written++
	}

	ms.stats.TotalSymbols = len(ms.data)
	ms.stats.LastUpsert = time.Now()
	return written, nil
}

// QueryBars 查询某股票在日期范围内的K线，按交易日升序返回。
func (ms *MemoryBarStorage) QueryBars(ctx context.Context, symbol string, window core.DateWindow) ([]core.Bar, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStorageClosed
	}

	rows, exists := ms.data[symbol]
	if !exists {
		return nil, nil
	}

	var result []core.Bar
	for _, bar := range rows {
		if bar.TradeDate.Before(window.Start) || bar.TradeDate.After(window.End) {
			continue
		}
		result = append(result, bar)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeDate.Before(result[j].TradeDate)
	})
	return result, nil
}

// Stats 返回运行统计信息。
func (ms *MemoryBarStorage) Stats() MemoryBarStorageStats {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.stats
}

// Close 关闭存储并清空数据。
func (ms *MemoryBarStorage) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.data = make(map[string]map[barKey]core.Bar)
	ms.closed = true
	return nil
}
