// Package market 提供市场分类和股票代码校验功能。
package market

import "regexp"

// Market 市场类型
type Market string

const (
	// MarketCN A股市场
	MarketCN Market = "CN"
	// MarketHK 港股市场
	MarketHK Market = "HK"
	// MarketUS 美股市场
	MarketUS Market = "US"
	// MarketUnknown 无法识别的市场
	MarketUnknown Market = "UNKNOWN"
)

// MarketAuto 自动检测市场类型的入参哨兵值
const MarketAuto = "auto"

var (
	cnPattern      = regexp.MustCompile(`^\d{6}$`)
	hkSuffixedCode = regexp.MustCompile(`^\d{4,5}\.HK$`)
	hkDigitCode    = regexp.MustCompile(`^\d{4,5}$`)
	usPattern      = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// ParseMarket 解析市场类型入参，兼容中文名称
func ParseMarket(s string) (Market, bool) {
	switch s {
	case "CN", "cn", "A股":
		return MarketCN, true
	case "HK", "hk", "港股":
		return MarketHK, true
	case "US", "us", "美股":
		return MarketUS, true
	}
	return MarketUnknown, false
}

// DisplayName 返回市场的中文名称，用于面向用户的报告
func (m Market) DisplayName() string {
	switch m {
	case MarketCN:
		return "A股"
	case MarketHK:
		return "港股"
	case MarketUS:
		return "美股"
	}
	return "未知"
}

// Classify 根据代码格式推断市场类型
// 纯模式匹配，无法识别时返回 MarketUnknown，调用方应视为格式错误
func Classify(code string) Market {
	code = upperTrim(code)

	// A股：6位数字
	if cnPattern.MatchString(code) {
		return MarketCN
	}

	// 港股：4-5位数字.HK 或 纯4-5位数字
	if hkSuffixedCode.MatchString(code) || hkDigitCode.MatchString(code) {
		return MarketHK
	}

	// 美股：1-5位字母
	if usPattern.MatchString(code) {
		return MarketUS
	}

	return MarketUnknown
}
