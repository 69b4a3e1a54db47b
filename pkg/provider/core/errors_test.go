package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestProviderError(t *testing.T) {
	underlying := errors.New("connection reset")
	err := NewProviderError("tushare", "FetchHistoricalBars", KindNetwork, underlying)

	assert.Contains(t, err.Error(), "tushare")
	assert.Contains(t, err.Error(), "FetchHistoricalBars")
	assert.Contains(t, err.Error(), "NETWORK")
	assert.ErrorIs(t, err, underlying)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"直接的 ProviderError", NewProviderError("akshare", "FetchBasicInfo", KindRateLimited, nil), KindRateLimited},
		{"包裹后的 ProviderError", fmt.Errorf("sync failed: %w", NewProviderError("tushare", "FetchHistoricalBars", KindTimeout, nil)), KindTimeout},
		{"普通错误归为未知", errors.New("boom"), KindUnknown},
		{"nil 归为未知", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestCapabilitySet(t *testing.T) {
	set := NewCapabilitySet(CapHistorical, CapFinancial)

	assert.True(t, set.Has(CapHistorical))
	assert.True(t, set.Has(CapFinancial))
	assert.False(t, set.Has(CapRealtime))
	assert.False(t, set.Has(CapSingleSymbolSync))
}

func TestDateWindow(t *testing.T) {
	start := date(2025, 6, 2)
	end := date(2025, 6, 6)

	window := NewDateWindow(start, end)
	assert.Equal(t, start, window.Start)
	assert.Equal(t, 5, window.Days())

	// 顺序颠倒时自动纠正
	window = NewDateWindow(end, start)
	assert.Equal(t, start, window.Start)
	assert.Equal(t, end, window.End)
}
