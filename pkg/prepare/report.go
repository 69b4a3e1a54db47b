package prepare

import (
	"fmt"
	"strings"

	"stockprep/pkg/freshness"
	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/syncer"
)

// Report 股票数据准备就绪报告
// 每次请求新建，不跨请求复用。
type Report struct {
	IsValid           bool                  `json:"is_valid"`            // 数据是否可用于后续分析
	Instrument        market.InstrumentCode `json:"instrument"`          // 校验后的股票代码
	StockName         string                `json:"stock_name"`          // 股票名称
	HasBasicInfo      bool                  `json:"has_basic_info"`      // 是否有有效基本信息
	HasHistoricalData bool                  `json:"has_historical_data"` // 是否有足量历史数据
	DataPeriodDays    int                   `json:"data_period_days"`    // 历史数据覆盖天数
	CacheStatus       string                `json:"cache_status"`        // 缓存/同步状态叙述
	ErrorMessage      string                `json:"error_message"`       // 简短准确的错误描述
	Suggestion        string                `json:"suggestion"`          // 面向用户的下一步建议
}

// 通用建议文案
const (
	suggestionGenericRetry = "请检查网络连接或数据源配置，或稍后重试"
	suggestionCheckCode    = "请检查股票代码是否正确，或确认该股票是否已上市"
	suggestionNewlyListed  = "该股票可能为新上市股票或数据源暂时不可用，请稍后重试"
)

// rateLimitSuggestion 频率限制场景的分步修复建议
func rateLimitSuggestion() string {
	lines := []string{
		"数据获取受到接口频率限制，这是常见的临时问题",
		"",
		"解决方案：",
		"1. 等待5-10分钟后重试（频率限制通常会自动解除）",
		"2. 检查网络连接是否稳定",
		"3. 确认代码格式正确（如港股：腾讯0700.HK、阿里9988.HK）",
		"4. 可以尝试使用其他时间段进行分析",
		"",
		"建议稍后重试，或联系技术支持获取帮助",
	}
	return strings.Join(lines, "\n")
}

// assembler 就绪报告组装器
// 唯一决定 IsValid 终态以及差异化提示文案的地方。
type assembler struct{}

// cacheNarrative 拼接分号分隔的缓存状态叙述
func (assembler) cacheNarrative(verdict freshness.Verdict, outcome *syncer.Outcome, hasBasicInfo bool) string {
	var parts []string

	if verdict.HasData && verdict.IsLatest {
		parts = append(parts, "缓存数据最新")
	}
	if outcome != nil && outcome.Success {
		parts = append(parts, fmt.Sprintf("数据已同步(%s: %d条)", outcome.ProviderUsed, outcome.HistoricalRecords))
		if outcome.FinancialSynced {
			parts = append(parts, "财务数据✓")
		}
		if outcome.RealtimeSynced {
			parts = append(parts, "实时行情✓")
		}
	}
	if hasBasicInfo {
		parts = append(parts, "基本信息已缓存")
	}

	return strings.Join(parts, "; ")
}

// suggestionFor 根据错误分类给出差异化建议
func (assembler) suggestionFor(kind core.ErrorKind) string {
	switch kind {
	case core.KindRateLimited:
		return rateLimitSuggestion()
	case core.KindSymbolNotFound:
		return suggestionCheckCode
	default:
		// 超时或普通网络错误不是明确的频率限制信号，给通用重试建议
		return suggestionGenericRetry
	}
}

// assemble 合并基本信息、新鲜度判定和同步结果为最终报告
// minBars 为历史数据有效性的最小记录数阈值。
func (a assembler) assemble(instrument market.InstrumentCode, stockName string, hasBasicInfo bool,
	basicErrKind core.ErrorKind, verdict freshness.Verdict, outcome *syncer.Outcome,
	periodDays int, minBars int) *Report {

	hasHistorical := (verdict.HasData && verdict.IsLatest) || (outcome != nil && outcome.Success)

	// 有数据但低于有效性阈值时视为不足
	records := verdict.RecordCount
	if outcome != nil && outcome.Success {
		records = outcome.HistoricalRecords
	}
	insufficient := hasHistorical && records < minBars
	if insufficient {
		hasHistorical = false
	}

	report := &Report{
		Instrument:        instrument,
		StockName:         stockName,
		HasBasicInfo:      hasBasicInfo,
		HasHistoricalData: hasHistorical,
		DataPeriodDays:    periodDays,
		CacheStatus:       a.cacheNarrative(verdict, outcome, hasBasicInfo),
	}

	if insufficient {
		report.ErrorMessage = fmt.Sprintf("股票 %s 的历史数据无效或不足", instrument.Normalized)
		report.Suggestion = suggestionNewlyListed
		return report
	}

	if !hasHistorical {
		if outcome != nil {
			report.ErrorMessage = fmt.Sprintf("无法获取股票 %s 的历史数据: %s", instrument.Normalized, outcome.Message)
			report.Suggestion = a.suggestionFor(outcome.LastErrorKind)
		} else {
			report.ErrorMessage = fmt.Sprintf("无法获取股票 %s 的历史数据", instrument.Normalized)
			report.Suggestion = suggestionGenericRetry
		}
		return report
	}

	if !hasBasicInfo {
		if basicErrKind == core.KindRateLimited {
			report.ErrorMessage = fmt.Sprintf("股票 %s 的基本信息获取受到网络限制影响", instrument.Normalized)
			report.Suggestion = rateLimitSuggestion()
		} else {
			report.ErrorMessage = fmt.Sprintf("股票代码 %s 不存在或信息无效", instrument.Normalized)
			report.Suggestion = suggestionCheckCode
		}
		return report
	}

	report.IsValid = true
	return report
}

// invalidReport 构造校验失败的报告，不触发任何缓存或网络调用
func invalidReport(instrument market.InstrumentCode, errMessage, suggestion string) *Report {
	return &Report{
		IsValid:      false,
		Instrument:   instrument,
		ErrorMessage: errMessage,
		Suggestion:   suggestion,
	}
}
