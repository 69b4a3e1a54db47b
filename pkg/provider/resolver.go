package provider

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"stockprep/pkg/logger"
	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
)

// PriorityStore 提供商优先级配置来源
// 由配置中心实现（见 pkg/config）。
type PriorityStore interface {
	// GetProviderPriority 获取指定市场的提供商排名
	GetProviderPriority(ctx context.Context, m market.Market) ([]core.SourceRank, error)
}

// Descriptor 参与同步的提供商描述
type Descriptor struct {
	Name         string             `json:"name"`
	Capabilities core.CapabilitySet `json:"capabilities"`
	Priority     int                `json:"priority"`
}

// ResolvedProvider 解析后的提供商，描述信息加客户端实例
type ResolvedProvider struct {
	Descriptor
	Client core.Client
}

// Resolver 提供商优先级解析器
// 从配置中心取排名，过滤不支持单股票同步的提供商，按优先级降序返回。
type Resolver struct {
	store    PriorityStore
	registry *Registry
	log      *logrus.Entry
}

// NewResolver 创建优先级解析器
func NewResolver(store PriorityStore, registry *Registry) *Resolver {
	return &Resolver{
		store:    store,
		registry: registry,
		log:      logger.WithComponent("source_resolver"),
	}
}

// DefaultRanks 各市场的默认提供商排序
// 配置中心不可用或返回空时使用。
func DefaultRanks(m market.Market) []core.SourceRank {
	switch m {
	case market.MarketCN:
		return []core.SourceRank{
			{Name: "tushare", Priority: 30},
			{Name: "akshare", Priority: 20},
			{Name: "baostock", Priority: 10},
		}
	case market.MarketHK:
		return []core.SourceRank{
			{Name: "akshare", Priority: 20},
			{Name: "yahoo", Priority: 10},
		}
	case market.MarketUS:
		return []core.SourceRank{
			{Name: "yahoo", Priority: 20},
			{Name: "finnhub", Priority: 10},
		}
	}
	return nil
}

// ResolvePriority 解析指定市场可用的提供商列表
// 过滤掉未注册和缺少 SINGLE_SYMBOL_SYNC 能力的提供商；
// 按优先级降序稳定排序，同优先级保持配置中心返回的顺序。
// 配置中心失败只记录日志，回退默认排序，不让调用失败。
func (r *Resolver) ResolvePriority(ctx context.Context, m market.Market) []ResolvedProvider {
	ranks, err := r.store.GetProviderPriority(ctx, m)
	if err != nil {
		r.log.WithError(err).Warnf("获取%s提供商优先级失败，使用默认排序", m.DisplayName())
		ranks = DefaultRanks(m)
	} else if len(ranks) == 0 {
		r.log.Warnf("配置中心未配置%s提供商优先级，使用默认排序", m.DisplayName())
		ranks = DefaultRanks(m)
	}

	resolved := make([]ResolvedProvider, 0, len(ranks))
	for _, rank := range ranks {
		client, err := r.registry.Get(rank.Name)
		if err != nil {
			r.log.Debugf("提供商 %s 未注册，跳过", rank.Name)
			continue
		}

		caps := client.Capabilities()
		if !caps.Has(core.CapSingleSymbolSync) {
			r.log.Debugf("提供商 %s 不支持单股票同步，跳过", rank.Name)
			continue
		}

		resolved = append(resolved, ResolvedProvider{
			Descriptor: Descriptor{
				Name:         rank.Name,
				Capabilities: caps,
				Priority:     rank.Priority,
			},
			Client: client,
		})
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Priority > resolved[j].Priority
	})

	return resolved
}
