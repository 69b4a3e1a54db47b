// Package freshness 判断缓存中的历史数据相对最近交易日是否足够新。
package freshness

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"stockprep/pkg/logger"
	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/storage"
	"stockprep/pkg/timing"
)

// 允许缓存最新日期落后最近交易日的天数
const stalenessAllowanceDays = 1

// Verdict 缓存新鲜度判定结果
type Verdict struct {
	HasData     bool       `json:"has_data"`     // 是否有数据
	IsLatest    bool       `json:"is_latest"`    // 是否最新（覆盖到最近交易日）
	RecordCount int        `json:"record_count"` // 记录数
	LatestDate  *time.Time `json:"latest_date"`  // 最新数据日期
	Message     string     `json:"message"`      // 判定结果消息
}

// Checker 缓存新鲜度检查器
// 只读缓存，不做任何写入。
type Checker struct {
	store    storage.BarStorage
	calendar *timing.TradingCalendar
	log      *logrus.Entry
}

// NewChecker 创建新鲜度检查器
func NewChecker(store storage.BarStorage, calendar *timing.TradingCalendar) *Checker {
	return &Checker{
		store:    store,
		calendar: calendar,
		log:      logger.WithComponent("freshness_checker"),
	}
}

// CheckFreshness 检查缓存中指定日期范围的数据是否存在且最新
// 缓存后端不可用时不报错，返回 HasData=false 及描述信息，
// 让上层走提供商同步路径。
func (c *Checker) CheckFreshness(ctx context.Context, instrument market.InstrumentCode, window core.DateWindow) Verdict {
	bars, err := c.store.QueryBars(ctx, instrument.Normalized, window)
	if err != nil {
		c.log.WithError(err).Warnf("查询%s缓存失败", instrument.Normalized)
		return Verdict{
			HasData: false,
			Message: fmt.Sprintf("缓存查询失败: %v", err),
		}
	}

	if len(bars) == 0 {
		return Verdict{
			HasData: false,
			Message: "缓存中没有数据",
		}
	}

	// QueryBars 按交易日升序返回
	latest := bars[len(bars)-1].TradeDate

	session := c.calendar.MostRecentCompletedSession(c.calendar.Now())
	isLatest := c.calendar.DaysBehind(c.calendar.Now(), latest) <= stalenessAllowanceDays

	message := fmt.Sprintf("找到%d条记录，最新日期: %s", len(bars), latest.Format("2006-01-02"))
	if !isLatest {
		message += fmt.Sprintf("（需要更新到%s）", session.Format("2006-01-02"))
	}

	return Verdict{
		HasData:     true,
		IsLatest:    isLatest,
		RecordCount: len(bars),
		LatestDate:  &latest,
		Message:     message,
	}
}
