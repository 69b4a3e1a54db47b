package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"stockprep/pkg/logger"
	"stockprep/pkg/prepare"
)

// PrewarmScheduler 自选股预热调度器
// 按 cron 计划为每个任务的自选股逐一运行数据准备管道，
// 让缓存赶在交易/分析时段之前就绪。
type PrewarmScheduler struct {
	cron     *cron.Cron
	jobs     map[string]*Job
	preparer *prepare.Preparer
	mu       sync.RWMutex
	log      *logrus.Entry
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPrewarmScheduler 创建预热调度器
func NewPrewarmScheduler(preparer *prepare.Preparer) *PrewarmScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &PrewarmScheduler{
		cron:     cron.New(cron.WithSeconds()),
		jobs:     make(map[string]*Job),
		preparer: preparer,
		log:      logger.WithComponent("prewarm_scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// LoadConfig 从配置文件加载预热任务
func (s *PrewarmScheduler) LoadConfig(configPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("配置文件不存在: %s", configPath)
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config JobsConfig
	if err := v.Unmarshal(&config); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	for _, jobConfig := range config.Jobs {
		if err := s.validateJobConfig(jobConfig); err != nil {
			s.log.WithError(err).Warnf("跳过无效任务配置: %s", jobConfig.Name)
			continue
		}

		if err := s.addJobInternal(jobConfig); err != nil {
			s.log.WithError(err).Errorf("添加任务失败: %s", jobConfig.Name)
			continue
		}
	}

	s.log.Infof("成功加载 %d 个预热任务", len(s.jobs))
	return nil
}

// AddJob 添加预热任务
func (s *PrewarmScheduler) AddJob(config JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateJobConfig(config); err != nil {
		return err
	}
	return s.addJobInternal(config)
}

func (s *PrewarmScheduler) validateJobConfig(config JobConfig) error {
	if config.Name == "" {
		return fmt.Errorf("任务名称不能为空")
	}
	if config.Schedule == "" {
		return fmt.Errorf("任务计划不能为空")
	}
	if len(config.Symbols) == 0 {
		return fmt.Errorf("自选股列表不能为空")
	}
	return nil
}

func (s *PrewarmScheduler) addJobInternal(config JobConfig) error {
	job := &Job{
		ID:     uuid.New().String(),
		Config: config,
		Status: JobStatusPending,
	}

	if !config.Enabled {
		job.Status = JobStatusDisabled
		s.jobs[job.ID] = job
		return nil
	}

	entryID, err := s.cron.AddFunc(config.Schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("注册 cron 任务失败: %w", err)
	}

	job.EntryID = entryID
	s.jobs[job.ID] = job
	return nil
}

// runJob 执行一次预热任务
func (s *PrewarmScheduler) runJob(job *Job) {
	s.mu.Lock()
	job.Status = JobStatusRunning
	now := time.Now()
	job.LastRun = &now
	job.RunCount++
	s.mu.Unlock()

	s.log.Infof("开始预热任务 %s: %d 只股票", job.Config.Name, len(job.Config.Symbols))

	var lastErr error
	warmed := 0
	for _, symbol := range job.Config.Symbols {
		select {
		case <-s.ctx.Done():
			s.log.Warnf("预热任务 %s 被中止", job.Config.Name)
			return
		default:
		}

		report := s.preparer.Prepare(s.ctx, prepare.Request{
			Code:       symbol,
			Market:     job.Config.Market,
			WindowDays: job.Config.WindowDays,
		})
		if report.IsValid {
			warmed++
		} else {
			lastErr = fmt.Errorf("%s: %s", symbol, report.ErrorMessage)
			s.log.Warnf("预热 %s 失败: %s", symbol, report.ErrorMessage)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lastErr != nil {
		job.ErrorCount++
		job.LastError = lastErr
		job.Status = JobStatusError
	} else {
		job.Status = JobStatusPending
	}

	s.log.Infof("预热任务 %s 完成: %d/%d 只股票就绪", job.Config.Name, warmed, len(job.Config.Symbols))
}

// Start 启动调度器
func (s *PrewarmScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preparer == nil {
		return fmt.Errorf("数据准备器未设置")
	}

	s.cron.Start()
	s.log.Info("预热调度器已启动")

	s.updateNextRunTimes()
	return nil
}

// Stop 停止调度器，等待正在运行的任务结束
func (s *PrewarmScheduler) Stop() error {
	s.cancel()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Status == JobStatusRunning {
			job.Status = JobStatusStopped
		}
	}

	s.log.Info("预热调度器已停止")
	return nil
}

// ListJobs 返回所有预热任务的快照
// 返回值是副本，调用方读取时不需要持锁，修改也不会影响调度器内部状态。
func (s *PrewarmScheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

func (s *PrewarmScheduler) updateNextRunTimes() {
	for _, job := range s.jobs {
		if job.Status == JobStatusDisabled {
			continue
		}
		entry := s.cron.Entry(job.EntryID)
		if !entry.Next.IsZero() {
			next := entry.Next
			job.NextRun = &next
		}
	}
}
