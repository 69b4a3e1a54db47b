package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected Market
	}{
		{"A股6位数字", "600519", MarketCN},
		{"A股深市代码", "000001", MarketCN},
		{"港股带HK后缀", "0700.HK", MarketHK},
		{"港股小写后缀", "0700.hk", MarketHK},
		{"港股5位带后缀", "09988.HK", MarketHK},
		{"港股纯4位数字", "0700", MarketHK},
		{"港股纯5位数字", "09988", MarketHK},
		{"美股单字母", "F", MarketUS},
		{"美股常见代码", "AAPL", MarketUS},
		{"美股小写", "tsla", MarketUS},
		{"6位字母无法识别", "ZZZZZZ", MarketUnknown},
		{"字母数字混合无法识别", "12AB34", MarketUnknown},
		{"空字符串无法识别", "", MarketUnknown},
		{"特殊字符无法识别", "600-519", MarketUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.code))
		})
	}
}

func TestParseMarket(t *testing.T) {
	tests := []struct {
		input    string
		expected Market
		ok       bool
	}{
		{"CN", MarketCN, true},
		{"cn", MarketCN, true},
		{"A股", MarketCN, true},
		{"HK", MarketHK, true},
		{"港股", MarketHK, true},
		{"US", MarketUS, true},
		{"美股", MarketUS, true},
		{"JP", MarketUnknown, false},
		{"", MarketUnknown, false},
	}

	for _, tt := range tests {
		m, ok := ParseMarket(tt.input)
		assert.Equal(t, tt.expected, m, "输入: %s", tt.input)
		assert.Equal(t, tt.ok, ok, "输入: %s", tt.input)
	}
}

func TestValidate_AutoDetect(t *testing.T) {
	tests := []struct {
		name           string
		code           string
		expectedMarket Market
		expectedNorm   string
	}{
		{"A股代码原样保留", "600519", MarketCN, "600519"},
		{"3位数字无法识别", "700", MarketUnknown, ""},
		{"港股4位补后缀", "0700", MarketHK, "0700.HK"},
		{"港股带后缀保留", "0700.HK", MarketHK, "0700.HK"},
		{"美股转大写", "aapl", MarketUS, "AAPL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instrument, err := Validate(tt.code, MarketAuto)
			if tt.expectedNorm == "" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.code, instrument.Raw)
			assert.Equal(t, tt.expectedMarket, instrument.Market)
			assert.Equal(t, tt.expectedNorm, instrument.Normalized)
		})
	}
}

func TestValidate_ExplicitMarket(t *testing.T) {
	// 显式指定港股市场时，5位数字去前导0补齐
	instrument, err := Validate("00700", "HK")
	require.NoError(t, err)
	assert.Equal(t, "0700.HK", instrument.Normalized)
	assert.Equal(t, MarketHK, instrument.Market)

	// 显式A股市场拒绝字母代码
	_, err = Validate("AAPL", "CN")
	require.Error(t, err)
	formatErr, ok := err.(*FormatError)
	require.True(t, ok)
	assert.Contains(t, formatErr.Message, "6位数字")
	assert.NotEmpty(t, formatErr.Suggestion)

	// 显式美股市场拒绝数字代码
	_, err = Validate("600519", "US")
	assert.Error(t, err)

	// 不支持的市场类型
	_, err = Validate("600519", "JP")
	require.Error(t, err)
	formatErr, ok = err.(*FormatError)
	require.True(t, ok)
	assert.Contains(t, formatErr.Message, "不支持的市场类型")
}

func TestValidate_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"空代码", ""},
		{"纯空格", "   "},
		{"超长代码", "01234567890"},
		{"6位字母", "ZZZZZZ"},
		{"特殊字符", "60@519"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.code, MarketAuto)
			require.Error(t, err)

			formatErr, ok := err.(*FormatError)
			require.True(t, ok, "应返回 FormatError")
			assert.NotEmpty(t, formatErr.Message)
			assert.NotEmpty(t, formatErr.Suggestion)
		})
	}
}

func TestFormatError_Error(t *testing.T) {
	err := &FormatError{Code: "XYZ123", Message: "无法识别股票代码所属市场"}
	assert.Contains(t, err.Error(), "XYZ123")
	assert.Contains(t, err.Error(), "无法识别")
}

func TestNormalize_HKPadding(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"0700", "0700.HK"},
		{"9988", "9988.HK"},
		{"09988", "9988.HK"},
		{"00001", "0001.HK"},
		{"0700.hk", "0700.HK"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalize(tt.code, MarketHK), "输入: %s", tt.code)
	}
}
