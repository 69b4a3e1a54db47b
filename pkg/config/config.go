// Package config 提供应用配置与配置中心（ConfigStore）实现。
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"stockprep/pkg/storage"
)

// Config 主配置结构
type Config struct {
	// 数据准备配置
	Preparer PreparerConfig `mapstructure:"preparer" json:"preparer"`

	// Redis 配置（配置中心与K线缓存共用）
	Redis RedisConfig `mapstructure:"redis" json:"redis"`

	// InfluxDB 写入旁路配置
	InfluxDB storage.InfluxBarWriterConfig `mapstructure:"influxdb" json:"influxdb"`

	// 日志配置
	Logger LoggerConfig `mapstructure:"logger" json:"logger"`
}

// PreparerConfig 数据准备管道配置
type PreparerConfig struct {
	DefaultWindowDays int           `mapstructure:"default_window_days" json:"default_window_days"` // 默认历史数据时长（天）
	LookbackDays      int           `mapstructure:"lookback_days" json:"lookback_days"`             // A股扩展回溯天数
	FinancialLimit    int           `mapstructure:"financial_limit" json:"financial_limit"`         // 财报同步期数
	ProviderTimeout   time.Duration `mapstructure:"provider_timeout" json:"provider_timeout"`       // 单提供商调用超时
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // 日志级别 (debug, info, warn, error)
	Format string `mapstructure:"format" json:"format"` // 日志格式 (text, json)
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Preparer: PreparerConfig{
			DefaultWindowDays: 30,
			LookbackDays:      365,
			FinancialLimit:    20, // 最近20期财报（约5年）
			ProviderTimeout:   15 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Preparer.DefaultWindowDays <= 0 {
		return errors.New("preparer default_window_days must be positive")
	}

	if c.Preparer.LookbackDays < c.Preparer.DefaultWindowDays {
		return errors.New("preparer lookback_days must not be less than default_window_days")
	}

	if c.Preparer.FinancialLimit <= 0 {
		return errors.New("preparer financial_limit must be positive")
	}

	if c.Preparer.ProviderTimeout <= 0 {
		return errors.New("preparer provider_timeout must be positive")
	}

	return nil
}

// Load 从配置文件加载配置，缺失项使用默认值
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
