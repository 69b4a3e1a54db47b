package core

import "time"

// Bar 单个交易日的K线数据
type Bar struct {
	Symbol    string    `json:"symbol"`    // 股票代码
	TradeDate time.Time `json:"trade_date"` // 交易日期
	Open      float64   `json:"open"`      // 开盘价
	High      float64   `json:"high"`      // 最高价
	Low       float64   `json:"low"`       // 最低价
	Close     float64   `json:"close"`     // 收盘价
	Volume    int64     `json:"volume"`    // 成交量
	Turnover  float64   `json:"turnover"`  // 成交额
	Source    string    `json:"source"`    // 数据来源
}

// BasicInfo 股票基本信息
type BasicInfo struct {
	Symbol   string `json:"symbol"`   // 股票代码
	Name     string `json:"name"`     // 股票名称
	Exchange string `json:"exchange"` // 交易所
	Industry string `json:"industry"` // 所属行业
	ListDate string `json:"list_date"` // 上市日期
}

// Statement 单期财务报表摘要
type Statement struct {
	Symbol      string    `json:"symbol"`       // 股票代码
	ReportDate  time.Time `json:"report_date"`  // 报告期
	Revenue     float64   `json:"revenue"`      // 营业收入
	NetProfit   float64   `json:"net_profit"`   // 净利润
	TotalAssets float64   `json:"total_assets"` // 总资产
	Source      string    `json:"source"`       // 数据来源
}

// SourceRank 配置中心下发的提供商排名
type SourceRank struct {
	Name     string `json:"name"`     // 提供商名称
	Priority int    `json:"priority"` // 优先级，数值越大越优先
}

// Quote 实时行情快照
type Quote struct {
	Symbol        string    `json:"symbol"`         // 股票代码
	Name          string    `json:"name"`           // 股票名称
	Price         float64   `json:"price"`          // 最新价
	Change        float64   `json:"change"`         // 涨跌额
	ChangePercent float64   `json:"change_percent"` // 涨跌幅
	Volume        int64     `json:"volume"`         // 成交量
	Timestamp     time.Time `json:"timestamp"`      // 行情时间
	Source        string    `json:"source"`         // 数据来源
}
