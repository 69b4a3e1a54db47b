// Package scheduler 在交易时段前按计划预热自选股列表的数据缓存。
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// JobConfig 定义单个预热任务的配置
type JobConfig struct {
	Name       string   `mapstructure:"name" json:"name"`
	Enabled    bool     `mapstructure:"enabled" json:"enabled"`
	Schedule   string   `mapstructure:"schedule" json:"schedule"` // cron 表达式（带秒字段）
	Market     string   `mapstructure:"market" json:"market"`     // 市场类型，空值表示自动检测
	Symbols    []string `mapstructure:"symbols" json:"symbols"`   // 自选股列表
	WindowDays int      `mapstructure:"window_days" json:"window_days"`
}

// JobsConfig 定义整个预热配置文件结构
type JobsConfig struct {
	Jobs []JobConfig `mapstructure:"jobs" json:"jobs"`
}

// Job 表示一个运行中的预热任务
type Job struct {
	ID         string
	Config     JobConfig
	EntryID    cron.EntryID
	Status     JobStatus
	LastRun    *time.Time
	NextRun    *time.Time
	RunCount   int64
	ErrorCount int64
	LastError  error
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusStopped  JobStatus = "stopped"
	JobStatusError    JobStatus = "error"
	JobStatusDisabled JobStatus = "disabled"
)
