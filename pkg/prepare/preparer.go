// Package prepare 实现股票数据预获取与就绪判定的入口管道。
//
// 流程：代码校验 → 市场识别 → 缓存新鲜度检查 →（不新鲜时）按优先级
// 多数据源同步 → 基本信息获取 → 组装就绪报告。
package prepare

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockprep/pkg/bridge"
	"stockprep/pkg/config"
	"stockprep/pkg/freshness"
	"stockprep/pkg/logger"
	"stockprep/pkg/market"
	"stockprep/pkg/provider"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/syncer"
	"stockprep/pkg/timing"
)

// 运行时可调参数键
const (
	settingLookbackDays      = "lookback_days"
	settingMinHistoricalBars = "min_historical_bars"
)

// Request 一次数据准备请求
type Request struct {
	Code       string    // 股票代码
	Market     string    // 市场类型，"auto" 表示自动检测
	WindowDays int       // 历史数据时长（天），0 表示使用默认值
	AsOf       time.Time // 分析日期，零值表示今天
}

// Preparer 股票数据准备器
// 所有依赖经构造注入，不持有任何进程级单例。
type Preparer struct {
	cfg          config.PreparerConfig
	settings     config.Store
	calendar     *timing.TradingCalendar
	checker      *freshness.Checker
	resolver     *provider.Resolver
	orchestrator *syncer.Orchestrator
	bridge       *bridge.Bridge
	log          *logrus.Entry
}

// NewPreparer 创建数据准备器
func NewPreparer(cfg config.PreparerConfig, settings config.Store, calendar *timing.TradingCalendar,
	checker *freshness.Checker, resolver *provider.Resolver, orchestrator *syncer.Orchestrator) *Preparer {
	return &Preparer{
		cfg:          cfg,
		settings:     settings,
		calendar:     calendar,
		checker:      checker,
		resolver:     resolver,
		orchestrator: orchestrator,
		bridge:       bridge.New(),
		log:          logger.WithComponent("data_preparer"),
	}
}

// Close 释放内部资源
func (p *Preparer) Close() {
	p.bridge.Close()
}

// Prepare 同步入口：预获取和验证股票数据
// 可从任意线程安全调用，包括已经运行在本准备器异步任务内部的调用栈。
func (p *Preparer) Prepare(ctx context.Context, req Request) *Report {
	return p.doPrepare(ctx, req)
}

// PrepareAsync 异步入口：预获取和验证股票数据
// 返回只读通道，报告就绪后写入。与 Prepare 对相同输入产生一致结果。
func (p *Preparer) PrepareAsync(ctx context.Context, req Request) <-chan *Report {
	out := make(chan *Report, 1)

	resultCh := p.bridge.RunAsync(ctx, func(ctx context.Context) (interface{}, error) {
		return p.doPrepare(ctx, req), nil
	})

	go func() {
		r := <-resultCh
		if r.Err != nil {
			out <- invalidReport(market.InstrumentCode{Raw: req.Code},
				"数据准备过程中发生错误: "+r.Err.Error(), suggestionGenericRetry)
			return
		}
		out <- r.Value.(*Report)
	}()

	return out
}

// IsReady 检查股票数据是否准备就绪
func (p *Preparer) IsReady(ctx context.Context, req Request) bool {
	return p.Prepare(ctx, req).IsValid
}

// PreparationMessage 返回面向用户的数据准备消息
func (p *Preparer) PreparationMessage(ctx context.Context, req Request) string {
	report := p.Prepare(ctx, req)
	if report.IsValid {
		return "数据准备成功: " + report.Instrument.Normalized +
			" (" + report.Instrument.Market.DisplayName() + ") - " + report.StockName +
			"\n" + report.CacheStatus
	}
	return "数据准备失败: " + report.ErrorMessage + "\n建议: " + report.Suggestion
}

// doPrepare 执行完整的数据准备流程
func (p *Preparer) doPrepare(ctx context.Context, req Request) *Report {
	if req.Market == "" {
		req.Market = market.MarketAuto
	}
	if req.AsOf.IsZero() {
		req.AsOf = p.calendar.Today()
	}

	p.log.Infof("开始准备股票数据: %s (市场: %s)", req.Code, req.Market)

	// 1. 格式校验与市场识别，失败时立即返回，不做任何缓存或网络调用
	instrument, err := market.Validate(req.Code, req.Market)
	if err != nil {
		formatErr, ok := err.(*market.FormatError)
		if !ok {
			return invalidReport(market.InstrumentCode{Raw: req.Code}, err.Error(), suggestionGenericRetry)
		}
		p.log.Warnf("股票代码校验失败: %s", formatErr.Message)
		return invalidReport(market.InstrumentCode{Raw: req.Code}, formatErr.Message, formatErr.Suggestion)
	}

	p.log.Debugf("市场识别结果: %s -> %s", instrument.Normalized, instrument.Market.DisplayName())

	// 2. 计算日期范围；A股使用配置中心下发的扩展回溯天数
	windowDays := req.WindowDays
	if windowDays <= 0 {
		windowDays = p.cfg.DefaultWindowDays
	}
	if instrument.Market == market.MarketCN {
		windowDays = p.settings.GetSetting(ctx, settingLookbackDays, p.cfg.LookbackDays)
	}
	window := core.NewDateWindow(req.AsOf.AddDate(0, 0, -windowDays), req.AsOf)

	// 3. 缓存新鲜度检查
	verdict := p.checker.CheckFreshness(ctx, instrument, window)

	providers := p.resolver.ResolvePriority(ctx, instrument.Market)

	// 4. 数据不存在或不新鲜时，经执行桥触发多数据源同步
	var outcome *syncer.Outcome
	if !verdict.HasData || !verdict.IsLatest {
		p.log.Warnf("缓存数据不完整: %s，自动触发数据同步", verdict.Message)
		outcome = p.runSync(ctx, instrument, window, providers)
	} else {
		p.log.Infof("缓存数据检查通过: %s", verdict.Message)
	}

	// 5. 获取基本信息
	stockName, hasBasicInfo, basicErrKind := p.fetchBasicInfo(ctx, instrument, providers)

	hasHistorical := (verdict.HasData && verdict.IsLatest) || (outcome != nil && outcome.Success)

	// 美股通常不单独提供基本信息，历史数据存在即视为有效
	if !hasBasicInfo && instrument.Market == market.MarketUS && hasHistorical {
		stockName = instrument.Normalized
		hasBasicInfo = true
	}

	// 6. 组装就绪报告
	minBars := p.settings.GetSetting(ctx, settingMinHistoricalBars, 1)
	report := assembler{}.assemble(instrument, stockName, hasBasicInfo, basicErrKind,
		verdict, outcome, windowDays, minBars)

	if report.IsValid {
		p.log.Infof("数据准备完成: %s - %s", instrument.Normalized, stockName)
	} else {
		p.log.Warnf("数据准备失败: %s", report.ErrorMessage)
	}
	return report
}

// runSync 经执行桥运行同步编排
// 执行桥保证从普通调用栈和嵌套异步调用栈发起时行为一致。
func (p *Preparer) runSync(ctx context.Context, instrument market.InstrumentCode,
	window core.DateWindow, providers []provider.ResolvedProvider) *syncer.Outcome {

	value, err := p.bridge.RunSync(ctx, func(ctx context.Context) (interface{}, error) {
		return p.orchestrator.Sync(ctx, instrument, window, providers), nil
	})
	if err != nil {
		p.log.WithError(err).Error("同步任务执行失败")
		return &syncer.Outcome{
			Success:       false,
			State:         syncer.StateDoneExhausted,
			Message:       "同步任务执行失败: " + err.Error(),
			LastError:     err.Error(),
			LastErrorKind: core.KindUnknown,
		}
	}

	outcome := value.(syncer.Outcome)
	return &outcome
}

// fetchBasicInfo 按优先级尝试各提供商获取基本信息
// 名称为空、"未知"或"股票<代码>"占位符均视为无效。
func (p *Preparer) fetchBasicInfo(ctx context.Context, instrument market.InstrumentCode,
	providers []provider.ResolvedProvider) (string, bool, core.ErrorKind) {

	stockName := "未知"
	lastKind := core.KindUnknown

	for _, rp := range providers {
		client, ok := rp.Client.(core.BasicInfoClient)
		if !ok {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.ProviderTimeout)
		info, err := client.FetchBasicInfo(callCtx, instrument)
		cancel()

		if err != nil {
			lastKind = core.KindOf(err)
			p.log.WithError(err).Debugf("%s获取基本信息失败", rp.Name)
			continue
		}
		if info == nil || isPlaceholderName(info.Name, instrument.Normalized) {
			p.log.Debugf("%s返回的基本信息无效", rp.Name)
			continue
		}

		p.log.Infof("基本信息获取成功: %s - %s", instrument.Normalized, info.Name)
		return info.Name, true, core.KindUnknown
	}

	return stockName, false, lastKind
}

// isPlaceholderName 判断名称是否为无效占位符
func isPlaceholderName(name, symbol string) bool {
	if name == "" || name == "未知" {
		return true
	}
	return strings.HasPrefix(name, "股票"+symbol)
}
