package market

import (
	"fmt"
	"strings"
)

const maxCodeLength = 10

// InstrumentCode 经过校验的股票代码
// 校验通过后不再变更
type InstrumentCode struct {
	Raw        string `json:"raw"`        // 用户输入的原始代码
	Normalized string `json:"normalized"` // 标准化后的代码
	Market     Market `json:"market"`     // 所属市场
}

// FormatError 股票代码格式错误
// Suggestion 为面向用户的修正建议
type FormatError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// Error 实现 error 接口
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid instrument code %q: %s", e.Code, e.Message)
}

// Validate 校验股票代码格式
// market 为 "auto" 时跳过格式检查，交由 Classify 推断市场；
// 显式指定市场时按该市场的格式规则校验。无副作用。
func Validate(code string, marketType string) (InstrumentCode, error) {
	code = strings.TrimSpace(code)

	if code == "" {
		return InstrumentCode{}, &FormatError{
			Code:       code,
			Message:    "股票代码不能为空",
			Suggestion: "请输入有效的股票代码",
		}
	}

	if len(code) > maxCodeLength {
		return InstrumentCode{}, &FormatError{
			Code:       code,
			Message:    "股票代码长度不能超过10个字符",
			Suggestion: "请检查股票代码格式",
		}
	}

	if marketType == MarketAuto {
		m := Classify(code)
		if m == MarketUnknown {
			return InstrumentCode{}, &FormatError{
				Code:       code,
				Message:    "无法识别股票代码所属市场",
				Suggestion: "请输入6位数字A股代码、4-5位数字港股代码（可带.HK后缀）或1-5位字母美股代码",
			}
		}
		return InstrumentCode{Raw: code, Normalized: normalize(code, m), Market: m}, nil
	}

	m, ok := ParseMarket(marketType)
	if !ok {
		return InstrumentCode{}, &FormatError{
			Code:       code,
			Message:    fmt.Sprintf("不支持的市场类型: %s", marketType),
			Suggestion: "请选择支持的市场类型：A股(CN)、港股(HK)、美股(US)",
		}
	}

	upper := upperTrim(code)

	switch m {
	case MarketCN:
		if !cnPattern.MatchString(code) {
			return InstrumentCode{}, &FormatError{
				Code:       code,
				Message:    "A股代码格式错误，应为6位数字",
				Suggestion: "请输入6位数字的A股代码，如：000001、600519",
			}
		}
	case MarketHK:
		if !hkSuffixedCode.MatchString(upper) && !hkDigitCode.MatchString(code) {
			return InstrumentCode{}, &FormatError{
				Code:       code,
				Message:    "港股代码格式错误",
				Suggestion: "请输入4-5位数字.HK格式（如：0700.HK）或4-5位数字（如：0700）",
			}
		}
	case MarketUS:
		if !usPattern.MatchString(upper) {
			return InstrumentCode{}, &FormatError{
				Code:       code,
				Message:    "美股代码格式错误，应为1-5位字母",
				Suggestion: "请输入1-5位字母的美股代码，如：AAPL、TSLA",
			}
		}
	}

	return InstrumentCode{Raw: code, Normalized: normalize(code, m), Market: m}, nil
}

// normalize 标准化代码格式
// 港股补齐为4位数字加 .HK 后缀，美股统一大写，A股原样保留
func normalize(code string, m Market) string {
	switch m {
	case MarketHK:
		upper := upperTrim(code)
		if strings.HasSuffix(upper, ".HK") {
			return upper
		}
		// 去掉前导0后补齐到4位
		clean := strings.TrimLeft(code, "0")
		if clean == "" {
			clean = "0"
		}
		for len(clean) < 4 {
			clean = "0" + clean
		}
		return clean + ".HK"
	case MarketUS:
		return upperTrim(code)
	}
	return strings.TrimSpace(code)
}

func upperTrim(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
