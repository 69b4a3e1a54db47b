// Package timing 提供交易日历计算功能，用于数据新鲜度判断。
package timing

import (
	"time"
)

// maxLookbackDays 回溯查找最近交易日的最大天数
const maxLookbackDays = 5

// TimeService 提供当前时间接口，用于mock测试
type TimeService interface {
	Now() time.Time
}

// SystemTimeService 使用系统实际时间
type SystemTimeService struct{}

func (s *SystemTimeService) Now() time.Time {
	return time.Now()
}

// TradingCalendar 交易日历
// 以周一至周五近似交易日，不查询节假日表（已知局限）。
type TradingCalendar struct {
	timeService TimeService
}

// NewTradingCalendar 创建交易日历
func NewTradingCalendar(timeService TimeService) *TradingCalendar {
	return &TradingCalendar{
		timeService: timeService,
	}
}

// DefaultTradingCalendar 使用系统时间的默认交易日历
func DefaultTradingCalendar() *TradingCalendar {
	return NewTradingCalendar(&SystemTimeService{})
}

// Now 返回当前时间
func (c *TradingCalendar) Now() time.Time {
	return c.timeService.Now()
}

// Today 返回当前日期（去掉时分秒）
func (c *TradingCalendar) Today() time.Time {
	return truncateDay(c.timeService.Now())
}

// IsTradingDay 判断是否是交易日（周一到周五）
func (c *TradingCalendar) IsTradingDay(t time.Time) bool {
	weekday := t.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// MostRecentCompletedSession 返回 asOf 之前（含当日）最近一个完成的交易日
// 从 asOf 起最多回溯5个日历日，返回遇到的第一个工作日。
// 纯函数，无I/O；不考虑节假日，周末之外的休市日会被当作交易日。
func (c *TradingCalendar) MostRecentCompletedSession(asOf time.Time) time.Time {
	day := truncateDay(asOf)
	for i := 0; i < maxLookbackDays; i++ {
		check := day.AddDate(0, 0, -i)
		if c.IsTradingDay(check) {
			return check
		}
	}
	// 5天内必然包含工作日，此分支仅为防御
	return day
}

// DaysBehind 计算 latest 落后于最近完成交易日的天数
// 只按日历日期比较，时刻与时区不参与（K线的交易日通常存为UTC零点，
// 宿主时钟可能在其他时区）；latest 晚于最近交易日时返回0。
func (c *TradingCalendar) DaysBehind(asOf, latest time.Time) int {
	session := dateOnly(c.MostRecentCompletedSession(asOf))
	diff := int(session.Sub(dateOnly(latest)).Hours() / 24)
	if diff < 0 {
		return 0
	}
	return diff
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dateOnly 丢弃时刻和时区，把日历日期重建为UTC零点
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
