package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
)

// 常见标的的演示名称，其余代码回退为生成名称
var simulatedNames = map[string]string{
	"600519":  "贵州茅台",
	"000001":  "平安银行",
	"600000":  "浦发银行",
	"0700.HK": "腾讯控股",
	"9988.HK": "阿里巴巴",
	"AAPL":    "Apple Inc.",
	"TSLA":    "Tesla Inc.",
}

// SimulatedClient 确定性模拟数据源
// 按股票代码哈希生成可复现的随机游走行情，用于在接入真实上游
// 客户端之前驱动完整的数据准备管道。同一代码每次返回相同数据。
type SimulatedClient struct {
	name string
	caps core.CapabilitySet
}

// NewSimulatedClient 创建模拟数据源
func NewSimulatedClient(name string, caps ...core.Capability) *SimulatedClient {
	return &SimulatedClient{
		name: name,
		caps: core.NewCapabilitySet(caps...),
	}
}

// Name 返回提供商名称
func (s *SimulatedClient) Name() string {
	return s.name
}

// Capabilities 返回提供商能力集合
func (s *SimulatedClient) Capabilities() core.CapabilitySet {
	return s.caps
}

// seededRand 以"提供商+代码"为种子，保证跨进程可复现
func (s *SimulatedClient) seededRand(symbol string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(s.name))
	h.Write([]byte(symbol))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// basePrice 为代码生成 5~200 元区间的基准价
func (s *SimulatedClient) basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 5.0 + float64(h.Sum32()%19500)/100.0
}

func (s *SimulatedClient) displayName(instrument market.InstrumentCode) string {
	if name, ok := simulatedNames[instrument.Normalized]; ok {
		return name
	}
	return fmt.Sprintf("模拟证券%s", instrument.Normalized)
}

// FetchBasicInfo 返回确定性的基本信息
func (s *SimulatedClient) FetchBasicInfo(ctx context.Context, instrument market.InstrumentCode) (*core.BasicInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &core.BasicInfo{
		Symbol:   instrument.Normalized,
		Name:     s.displayName(instrument),
		Exchange: instrument.Market.DisplayName(),
		Industry: "模拟行业",
		ListDate: "2010-01-01",
	}, nil
}

// FetchHistoricalBars 按随机游走生成窗口内所有工作日的日K线
func (s *SimulatedClient) FetchHistoricalBars(ctx context.Context, instrument market.InstrumentCode, window core.DateWindow) ([]core.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := s.seededRand(instrument.Normalized)
	price := s.basePrice(instrument.Normalized)

	var bars []core.Bar
	for day := window.Start; !day.After(window.End); day = day.AddDate(0, 0, 1) {
		if day.Weekday() < time.Monday || day.Weekday() > time.Friday {
			continue
		}

		change := (rng.Float64() - 0.5) * 0.06
		open := price
		close := price * (1 + change)
		high := open
		if close > high {
			high = close
		}
		high *= 1 + rng.Float64()*0.01
		low := open
		if close < low {
			low = close
		}
		low *= 1 - rng.Float64()*0.01
		volume := int64(500000 + rng.Intn(5000000))

		bars = append(bars, core.Bar{
			Symbol:    instrument.Normalized,
			TradeDate: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			Turnover:  close * float64(volume),
		})
		price = close
	}

	return bars, nil
}

// FetchFinancialStatements 生成最近 limit 期季度财报摘要
func (s *SimulatedClient) FetchFinancialStatements(ctx context.Context, instrument market.InstrumentCode, limit int) ([]core.Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := s.seededRand(instrument.Normalized)
	base := s.basePrice(instrument.Normalized) * 1e8

	// 最近一个已结束的季度末
	now := time.Now()
	quarterEnd := time.Date(now.Year(), time.Month((int(now.Month())-1)/3*3+1), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)

	stmts := make([]core.Statement, 0, limit)
	for i := 0; i < limit; i++ {
		revenue := base * (0.8 + rng.Float64()*0.4)
		stmts = append(stmts, core.Statement{
			Symbol:      instrument.Normalized,
			ReportDate:  quarterEnd.AddDate(0, -3*i, 0),
			Revenue:     revenue,
			NetProfit:   revenue * (0.05 + rng.Float64()*0.15),
			TotalAssets: revenue * (3 + rng.Float64()*5),
			Source:      s.name,
		})
	}

	return stmts, nil
}

// FetchRealtimeQuote 基于基准价生成实时行情快照
func (s *SimulatedClient) FetchRealtimeQuote(ctx context.Context, instrument market.InstrumentCode) (*core.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := s.seededRand(instrument.Normalized)
	prev := s.basePrice(instrument.Normalized)
	change := prev * (rng.Float64() - 0.5) * 0.04

	return &core.Quote{
		Symbol:        instrument.Normalized,
		Name:          s.displayName(instrument),
		Price:         prev + change,
		Change:        change,
		ChangePercent: change / prev * 100,
		Volume:        int64(1000000 + rng.Intn(10000000)),
		Timestamp:     time.Now(),
		Source:        s.name,
	}, nil
}
