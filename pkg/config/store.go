package config

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"

	"stockprep/pkg/market"
	"stockprep/pkg/provider/core"
)

// Store 配置中心接口
// 下发提供商优先级与运行时可调参数。
type Store interface {
	// GetProviderPriority 获取指定市场的提供商排名
	GetProviderPriority(ctx context.Context, m market.Market) ([]core.SourceRank, error)

	// GetSetting 获取运行时整数参数，未配置时返回默认值
	GetSetting(ctx context.Context, key string, def int) int

	// GetDurationSetting 获取运行时时长参数，未配置时返回默认值
	GetDurationSetting(ctx context.Context, key string, def time.Duration) time.Duration
}

// ViperStore 基于 viper 配置文件的配置中心实现
// 优先级配置形如：
//
//	source_priority:
//	  CN:
//	    - name: tushare
//	      priority: 30
type ViperStore struct {
	v *viper.Viper
}

// NewViperStore 从配置文件创建配置中心
func NewViperStore(configPath string) (*ViperStore, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return &ViperStore{v: v}, nil
}

// NewViperStoreFrom 从已有 viper 实例创建配置中心
func NewViperStoreFrom(v *viper.Viper) *ViperStore {
	return &ViperStore{v: v}
}

// GetProviderPriority 获取指定市场的提供商排名
func (s *ViperStore) GetProviderPriority(ctx context.Context, m market.Market) ([]core.SourceRank, error) {
	key := fmt.Sprintf("source_priority.%s", m)
	if !s.v.IsSet(key) {
		return nil, nil
	}

	var ranks []core.SourceRank
	if err := s.v.UnmarshalKey(key, &ranks); err != nil {
		return nil, fmt.Errorf("解析提供商优先级失败: %w", err)
	}
	return ranks, nil
}

// GetSetting 获取运行时整数参数
func (s *ViperStore) GetSetting(ctx context.Context, key string, def int) int {
	fullKey := "settings." + key
	if !s.v.IsSet(fullKey) {
		return def
	}
	return s.v.GetInt(fullKey)
}

// GetDurationSetting 获取运行时时长参数
func (s *ViperStore) GetDurationSetting(ctx context.Context, key string, def time.Duration) time.Duration {
	fullKey := "settings." + key
	if !s.v.IsSet(fullKey) {
		return def
	}
	return s.v.GetDuration(fullKey)
}

// RedisStore 基于 Redis 的配置中心实现
// 优先级存放在 hash <prefix>:source_priority:<market>，field 为提供商名，value 为优先级；
// 运行时参数存放在 hash <prefix>:settings。
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore 创建 Redis 配置中心并验证连接
func NewRedisStore(cfg RedisConfig, keyPrefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "stockprep:config"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

// GetProviderPriority 获取指定市场的提供商排名
func (s *RedisStore) GetProviderPriority(ctx context.Context, m market.Market) ([]core.SourceRank, error) {
	key := fmt.Sprintf("%s:source_priority:%s", s.keyPrefix, m)
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	ranks := make([]core.SourceRank, 0, len(fields))
	for name, raw := range fields {
		priority, err := strconv.Atoi(raw)
		if err != nil {
			// 非法优先级条目跳过
			continue
		}
		ranks = append(ranks, core.SourceRank{Name: name, Priority: priority})
	}

	// hash 遍历顺序不稳定，按名称排序保证同优先级时结果可重现
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].Name < ranks[j].Name })
	return ranks, nil
}

// GetSetting 获取运行时整数参数
func (s *RedisStore) GetSetting(ctx context.Context, key string, def int) int {
	raw, err := s.client.HGet(ctx, s.keyPrefix+":settings", key).Result()
	if err != nil {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

// GetDurationSetting 获取运行时时长参数
func (s *RedisStore) GetDurationSetting(ctx context.Context, key string, def time.Duration) time.Duration {
	raw, err := s.client.HGet(ctx, s.keyPrefix+":settings", key).Result()
	if err != nil {
		return def
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return value
}

// Close 关闭 Redis 连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
