// Package syncer 实现按优先级走查数据提供商的同步编排。
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"stockprep/pkg/config"
	"stockprep/pkg/logger"
	"stockprep/pkg/market"
	"stockprep/pkg/provider"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/storage"
)

// State 同步流程状态
type State string

const (
	StatePending       State = "PENDING"        // 尚未开始
	StateTrying        State = "TRYING"         // 正在尝试某个提供商
	StateDoneSuccess   State = "DONE_SUCCESS"   // 某提供商返回了历史数据
	StateDoneExhausted State = "DONE_EXHAUSTED" // 所有提供商的历史数据抓取均失败
)

// Outcome 一次同步的结果
type Outcome struct {
	Success           bool   `json:"success"`            // 历史数据是否同步成功
	State             State  `json:"state"`              // 终态
	ProviderUsed      string `json:"provider_used"`      // 成功的提供商名称
	HistoricalRecords int    `json:"historical_records"` // 历史数据条数
	FinancialSynced   bool   `json:"financial_synced"`   // 财务数据是否同步成功
	RealtimeSynced    bool   `json:"realtime_synced"`    // 实时行情是否同步成功
	Message           string `json:"message"`            // 面向用户的结果描述
	LastError         string `json:"last_error"`         // 最后一个错误（仅在全部失败时有意义）
	LastErrorKind     core.ErrorKind `json:"last_error_kind"` // 最后一个错误的分类
}

// Orchestrator 多数据源同步编排器
// 按优先级严格串行尝试提供商；历史数据在第一个成功的提供商处停止，
// 财务与实时行情在同一个提供商上继续完成；单个提供商的失败只记录日志，
// 从不向调用方抛出。
type Orchestrator struct {
	store           storage.BarStorage
	mirror          *storage.InfluxBarWriter // 可选的旁路镜像，nil 表示关闭
	settings        config.Store             // 可选的配置中心，覆盖超时参数
	providerTimeout time.Duration
	financialLimit  int
	log             *logrus.Entry
}

// Options 编排器可选项
type Options struct {
	Mirror          *storage.InfluxBarWriter // K线镜像写入器
	Settings        config.Store             // 配置中心，提供商超时从这里读取
	ProviderTimeout time.Duration            // 单次提供商调用超时（配置中心未配置时的缺省值）
	FinancialLimit  int                      // 财报同步期数
}

// settingProviderTimeout 配置中心里单次提供商调用超时的键名
const settingProviderTimeout = "provider_timeout"

// NewOrchestrator 创建同步编排器
func NewOrchestrator(store storage.BarStorage, opts Options) *Orchestrator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 15 * time.Second
	}
	if opts.FinancialLimit <= 0 {
		opts.FinancialLimit = 20
	}
	return &Orchestrator{
		store:           store,
		mirror:          opts.Mirror,
		settings:        opts.Settings,
		providerTimeout: opts.ProviderTimeout,
		financialLimit:  opts.FinancialLimit,
		log:             logger.WithComponent("sync_orchestrator"),
	}
}

// callTimeout 单次提供商调用的超时
// 配置了配置中心时每次调用实时读取，允许运行期调整。
func (o *Orchestrator) callTimeout(ctx context.Context) time.Duration {
	if o.settings == nil {
		return o.providerTimeout
	}
	return o.settings.GetDurationSetting(ctx, settingProviderTimeout, o.providerTimeout)
}

// Sync 按优先级同步指定股票的历史、财务、实时数据
// providers 必须已按优先级降序排好（见 provider.Resolver）。
func (o *Orchestrator) Sync(ctx context.Context, instrument market.InstrumentCode, window core.DateWindow, providers []provider.ResolvedProvider) Outcome {
	symbol := instrument.Normalized
	o.log.Infof("开始同步%s的数据（历史+财务+实时）", symbol)

	if len(providers) == 0 {
		o.log.Warnf("%s没有可用的数据源", symbol)
		return Outcome{
			Success:       false,
			State:         StateDoneExhausted,
			Message:       "没有可用的数据源",
			LastError:     "没有可用的数据源",
			LastErrorKind: core.KindUnknown,
		}
	}

	var lastErr error

	for _, p := range providers {
		o.log.WithField("state", StateTrying).Infof("尝试使用数据源: %s (优先级=%d)", p.Name, p.Priority)

		historicalRecords, err := o.syncHistorical(ctx, p, instrument, window)
		if err != nil {
			lastErr = err
			o.log.WithError(err).Warnf("%s历史数据同步失败", p.Name)
		}

		// 财务与实时步骤独立于历史结果，在当前提供商上尝试
		financialSynced := o.syncFinancial(ctx, p, instrument)
		realtimeSynced := o.syncRealtime(ctx, p, providers, instrument)

		if historicalRecords > 0 {
			message := fmt.Sprintf("使用%s同步成功: 历史%d条", p.Name, historicalRecords)
			if financialSynced {
				message += ", 财务数据✓"
			}
			if realtimeSynced {
				message += ", 实时行情✓"
			}
			o.log.Infof("%s", message)

			return Outcome{
				Success:           true,
				State:             StateDoneSuccess,
				ProviderUsed:      p.Name,
				HistoricalRecords: historicalRecords,
				FinancialSynced:   financialSynced,
				RealtimeSynced:    realtimeSynced,
				Message:           message,
			}
		}

		if err == nil {
			lastErr = core.NewProviderError(p.Name, "FetchHistoricalBars", core.KindUnknown, core.ErrEmptyResponse)
		}
		o.log.Warnf("%s同步失败: 历史数据为空，尝试下一个数据源", p.Name)
	}

	message := fmt.Sprintf("所有数据源同步失败，最后错误: %v", lastErr)
	o.log.Errorf("%s", message)

	return Outcome{
		Success:       false,
		State:         StateDoneExhausted,
		Message:       message,
		LastError:     lastErr.Error(),
		LastErrorKind: core.KindOf(lastErr),
	}
}

// syncHistorical 抓取并落库历史K线，返回写入条数
func (o *Orchestrator) syncHistorical(ctx context.Context, p provider.ResolvedProvider, instrument market.InstrumentCode, window core.DateWindow) (int, error) {
	if !p.Capabilities.Has(core.CapHistorical) {
		return 0, core.NewProviderError(p.Name, "FetchHistoricalBars", core.KindUnknown, core.ErrCapabilityNotSupported)
	}

	client, ok := p.Client.(core.HistoricalClient)
	if !ok {
		return 0, core.NewProviderError(p.Name, "FetchHistoricalBars", core.KindUnknown, core.ErrCapabilityNotSupported)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout(ctx))
	defer cancel()

	o.log.Debugf("同步历史数据: %s (%s ~ %s)", instrument.Normalized,
		window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	bars, err := client.FetchHistoricalBars(callCtx, instrument, window)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	// 数据来源统一打标后落库
	for i := range bars {
		bars[i].Source = p.Name
		if bars[i].Symbol == "" {
			bars[i].Symbol = instrument.Normalized
		}
	}

	written, err := o.store.UpsertBars(ctx, bars)
	if err != nil {
		return 0, fmt.Errorf("写入%s的K线缓存失败: %w", instrument.Normalized, err)
	}

	if o.mirror != nil {
		o.mirror.WriteBars(bars)
	}

	o.log.Infof("历史数据同步成功: %d条", written)
	return written, nil
}

// syncFinancial 同步财务报表，失败只记录日志
func (o *Orchestrator) syncFinancial(ctx context.Context, p provider.ResolvedProvider, instrument market.InstrumentCode) bool {
	if !p.Capabilities.Has(core.CapFinancial) {
		return false
	}
	client, ok := p.Client.(core.FinancialClient)
	if !ok {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout(ctx))
	defer cancel()

	statements, err := client.FetchFinancialStatements(callCtx, instrument, o.financialLimit)
	if err != nil {
		o.log.WithError(err).Warnf("%s财务数据同步异常", p.Name)
		return false
	}
	if len(statements) == 0 {
		o.log.Warnf("%s财务数据同步失败: 返回为空", p.Name)
		return false
	}

	o.log.Infof("财务数据同步成功: %d期", len(statements))
	return true
}

// syncRealtime 同步实时行情
// 当前提供商未声明实时能力时，从同一解析列表中委托给第一个具备实时能力的提供商。
func (o *Orchestrator) syncRealtime(ctx context.Context, current provider.ResolvedProvider, providers []provider.ResolvedProvider, instrument market.InstrumentCode) bool {
	delegate := current
	if !current.Capabilities.Has(core.CapRealtime) {
		found := false
		for _, p := range providers {
			if p.Capabilities.Has(core.CapRealtime) {
				delegate = p
				found = true
				break
			}
		}
		if !found {
			return false
		}
		o.log.Debugf("%s不支持单股票实时行情，委托给%s", current.Name, delegate.Name)
	}

	client, ok := delegate.Client.(core.RealtimeClient)
	if !ok {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout(ctx))
	defer cancel()

	quote, err := client.FetchRealtimeQuote(callCtx, instrument)
	if err != nil {
		o.log.WithError(err).Warnf("%s实时行情同步异常", delegate.Name)
		return false
	}
	if quote == nil {
		o.log.Warnf("%s实时行情同步失败: 返回为空", delegate.Name)
		return false
	}

	o.log.Infof("实时行情同步成功: %s %.2f", quote.Symbol, quote.Price)
	return true
}
