package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"stockprep/pkg/provider/core"
)

// RedisBarStorage 基于 Redis 的 BarStorage 实现。
// 每只股票一个 hash，field 为 "日期|数据源"，value 为K线 JSON。
type RedisBarStorage struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisBarStorageConfig Redis 存储配置
type RedisBarStorageConfig struct {
	Addr      string        `mapstructure:"addr"`       // Redis 地址
	Password  string        `mapstructure:"password"`   // Redis 密码
	DB        int           `mapstructure:"db"`         // 数据库编号
	KeyPrefix string        `mapstructure:"key_prefix"` // 键前缀
	TTL       time.Duration `mapstructure:"ttl"`        // 过期时间，0 表示不过期
}

// NewRedisBarStorage 创建 Redis 存储实例并验证连接。
func NewRedisBarStorage(config RedisBarStorageConfig) (*RedisBarStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "stockprep:bars"
	}

	return &RedisBarStorage{
		client:    client,
		keyPrefix: prefix,
		ttl:       config.TTL,
	}, nil
}

func (rs *RedisBarStorage) symbolKey(symbol string) string {
	return fmt.Sprintf("%s:%s", rs.keyPrefix, symbol)
}

// UpsertBars 批量写入K线，使用 pipeline 减少往返。
func (rs *RedisBarStorage) UpsertBars(ctx context.Context, bars []core.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	pipe := rs.client.Pipeline()
	keys := make(map[string]bool)

	for _, bar := range bars {
		payload, err := json.Marshal(bar)
		if err != nil {
			return 0, fmt.Errorf("marshal bar failed: %w", err)
		}

		key := rs.symbolKey(bar.Symbol)
		field := fmt.Sprintf("%s|%s", bar.TradeDate.Format("2006-01-02"), bar.Source)
		pipe.HSet(ctx, key, field, payload)
		keys[key] = true
	}

	if rs.ttl > 0 {
		for key := range keys {
			pipe.Expire(ctx, key, rs.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return len(bars), nil
}

// QueryBars 查询某股票在日期范围内的K线，按交易日升序返回。
func (rs *RedisBarStorage) QueryBars(ctx context.Context, symbol string, window core.DateWindow) ([]core.Bar, error) {
	fields, err := rs.client.HGetAll(ctx, rs.symbolKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var result []core.Bar
	for _, payload := range fields {
		var bar core.Bar
		if err := json.Unmarshal([]byte(payload), &bar); err != nil {
			// 损坏的记录跳过，不让整次查询失败
			continue
		}
		if bar.TradeDate.Before(window.Start) || bar.TradeDate.After(window.End) {
			continue
		}
		result = append(result, bar)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeDate.Before(result[j].TradeDate)
	})
	return result, nil
}

// Close 关闭 Redis 连接。
func (rs *RedisBarStorage) Close() error {
	return rs.client.Close()
}
