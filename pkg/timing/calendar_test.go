package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedTimeService 返回固定时间，用于确定性测试
type fixedTimeService struct {
	now time.Time
}

func (f *fixedTimeService) Now() time.Time {
	return f.now
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestIsTradingDay(t *testing.T) {
	calendar := DefaultTradingCalendar()

	tests := []struct {
		name     string
		day      time.Time
		expected bool
	}{
		{"周一是交易日", date(2025, 6, 2), true},
		{"周五是交易日", date(2025, 6, 6), true},
		{"周六不是交易日", date(2025, 6, 7), false},
		{"周日不是交易日", date(2025, 6, 8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calendar.IsTradingDay(tt.day))
		})
	}
}

func TestMostRecentCompletedSession(t *testing.T) {
	calendar := DefaultTradingCalendar()

	tests := []struct {
		name     string
		asOf     time.Time
		expected time.Time
	}{
		{"工作日返回当日", date(2025, 6, 4), date(2025, 6, 4)},
		{"周六回溯到周五", date(2025, 6, 7), date(2025, 6, 6)},
		{"周日回溯到周五", date(2025, 6, 8), date(2025, 6, 6)},
		{"带时分秒的周日", time.Date(2025, 6, 8, 15, 30, 0, 0, time.UTC), date(2025, 6, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calendar.MostRecentCompletedSession(tt.asOf))
		})
	}
}

func TestDaysBehind(t *testing.T) {
	calendar := DefaultTradingCalendar()

	// 周三为最近交易日
	wednesday := date(2025, 6, 4)

	tests := []struct {
		name     string
		latest   time.Time
		expected int
	}{
		{"数据到当日", date(2025, 6, 4), 0},
		{"数据落后1天", date(2025, 6, 3), 1},
		{"数据落后3天", date(2025, 6, 1), 3},
		{"数据晚于最近交易日", date(2025, 6, 5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calendar.DaysBehind(wednesday, tt.latest))
		})
	}
}

func TestDaysBehind_WeekendGap(t *testing.T) {
	calendar := DefaultTradingCalendar()

	// 周日检查时，周五的数据视为不落后
	sunday := date(2025, 6, 8)
	friday := date(2025, 6, 6)
	assert.Equal(t, 0, calendar.DaysBehind(sunday, friday))

	// 周四的数据落后周五1天
	thursday := date(2025, 6, 5)
	assert.Equal(t, 1, calendar.DaysBehind(sunday, thursday))
}

func TestDaysBehind_MixedTimeZones(t *testing.T) {
	calendar := DefaultTradingCalendar()

	beijing := time.FixedZone("CST", 8*3600)

	// 当前时钟在+08:00，缓存交易日存为UTC零点：只比较日历日期
	wednesdayMorning := time.Date(2025, 6, 4, 9, 0, 0, 0, beijing)
	mondayUTC := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, calendar.DaysBehind(wednesdayMorning, mondayUTC),
		"跨时区的瞬时差不足48小时，但日历日期相差2天")

	tuesdayUTC := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, calendar.DaysBehind(wednesdayMorning, tuesdayUTC))

	// 反向时区同样只看日期
	wednesdayNY := time.Date(2025, 6, 4, 20, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	assert.Equal(t, 0, calendar.DaysBehind(wednesdayNY, date(2025, 6, 4)))
}

func TestTodayUsesTimeService(t *testing.T) {
	fixed := &fixedTimeService{now: time.Date(2025, 6, 4, 14, 25, 36, 0, time.UTC)}
	calendar := NewTradingCalendar(fixed)

	assert.Equal(t, date(2025, 6, 4), calendar.Today())
	assert.Equal(t, fixed.now, calendar.Now())
}
