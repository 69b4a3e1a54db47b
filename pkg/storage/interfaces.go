// Package storage 提供历史K线缓存的存储层实现，包括内存、Redis 和 InfluxDB 后端。
package storage

import (
	"context"
	"errors"

	"stockprep/pkg/provider/core"
)

// 定义存储层错误
var (
	// ErrStorageClosed 存储已关闭错误
	ErrStorageClosed = errors.New("storage is closed")

	// ErrStorageUnavailable 存储后端连接失败错误
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)

// BarStorage 定义了历史K线缓存的行为。
// 记录以 (symbol, trade_date, data_source) 为键做幂等写入；
// 同键并发写入为后写覆盖（last-writer-wins）。
type BarStorage interface {
	// UpsertBars 批量写入K线，返回实际写入条数。
	UpsertBars(ctx context.Context, bars []core.Bar) (int, error)
	// QueryBars 查询某股票在日期范围内的K线，按交易日升序返回。
	QueryBars(ctx context.Context, symbol string, window core.DateWindow) ([]core.Bar, error)
	// Close 关闭存储连接并释放所有资源。
	Close() error
}
