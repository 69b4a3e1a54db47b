package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"stockprep/pkg/config"
	"stockprep/pkg/freshness"
	"stockprep/pkg/logger"
	"stockprep/pkg/prepare"
	"stockprep/pkg/provider"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/provider/decorators"
	"stockprep/pkg/scheduler"
	"stockprep/pkg/storage"
	"stockprep/pkg/syncer"
	"stockprep/pkg/testkit/providers"
	"stockprep/pkg/timing"
)

var (
	configPath  = flag.String("config", "", "应用配置文件路径")
	jobsPath    = flag.String("jobs", "config/prewarm_jobs.yaml", "预热任务配置文件路径")
	storageKind = flag.String("storage", "redis", "K线缓存后端 (memory 或 redis)")
	logLevel    = flag.String("log-level", "info", "日志级别")
	logFormat   = flag.String("log-format", "json", "日志格式 (json 或 text)")
)

func main() {
	flag.Parse()

	logger.Init(logger.Config{
		Level:  *logLevel,
		Format: *logFormat,
	})
	log := logger.WithComponent("prewarm_main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 预热的意义在于共享缓存，默认使用 Redis 后端
	var store storage.BarStorage
	switch *storageKind {
	case "redis":
		store, err = storage.NewRedisBarStorage(storage.RedisBarStorageConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("连接 Redis 失败: %v", err)
		}
	case "memory":
		store = storage.NewMemoryBarStorage()
	default:
		log.Fatalf("未知存储后端: %s", *storageKind)
	}
	defer store.Close()

	var mirror *storage.InfluxBarWriter
	if cfg.InfluxDB.URL != "" {
		mirror = storage.NewInfluxBarWriter(cfg.InfluxDB)
		defer mirror.Close()
	}

	var settings config.Store
	if *configPath != "" {
		settings, err = config.NewViperStore(*configPath)
		if err != nil {
			log.Fatalf("创建配置中心失败: %v", err)
		}
	} else {
		settings = config.NewViperStoreFrom(viper.New())
	}

	registry := provider.NewRegistry()
	defer registry.Close()
	registerSimulatedProviders(registry, log)

	calendar := timing.DefaultTradingCalendar()
	checker := freshness.NewChecker(store, calendar)
	resolver := provider.NewResolver(settings, registry)
	orchestrator := syncer.NewOrchestrator(store, syncer.Options{
		Mirror:          mirror,
		Settings:        settings,
		ProviderTimeout: cfg.Preparer.ProviderTimeout,
		FinancialLimit:  cfg.Preparer.FinancialLimit,
	})

	preparer := prepare.NewPreparer(cfg.Preparer, settings, calendar, checker, resolver, orchestrator)
	defer preparer.Close()

	prewarm := scheduler.NewPrewarmScheduler(preparer)
	if err := prewarm.LoadConfig(*jobsPath); err != nil {
		log.Fatalf("加载预热任务配置失败: %v", err)
	}

	if err := prewarm.Start(); err != nil {
		log.Fatalf("启动预热调度器失败: %v", err)
	}

	printJobs(prewarm, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，正在关闭...")
	if err := prewarm.Stop(); err != nil {
		log.Errorf("停止预热调度器失败: %v", err)
	}
	log.Info("已退出")
}

// printJobs 打印已加载的预热任务
func printJobs(prewarm *scheduler.PrewarmScheduler, log *logrus.Entry) {
	for _, job := range prewarm.ListJobs() {
		entry := log.WithFields(logrus.Fields{
			"job":      job.Config.Name,
			"schedule": job.Config.Schedule,
			"symbols":  len(job.Config.Symbols),
			"status":   job.Status,
		})
		if job.NextRun != nil {
			entry = entry.WithField("nextRun", job.NextRun.Format(time.RFC3339))
		}
		entry.Info("预热任务已加载")
	}
}

// registerSimulatedProviders 注册模拟数据源
// 接入真实上游客户端前，用确定性模拟行情驱动完整管道。
func registerSimulatedProviders(registry *provider.Registry, log *logrus.Entry) {
	clients := []core.Client{
		providers.NewSimulatedClient("tushare",
			core.CapHistorical, core.CapFinancial, core.CapSingleSymbolSync),
		providers.NewSimulatedClient("akshare",
			core.CapHistorical, core.CapFinancial, core.CapRealtime, core.CapSingleSymbolSync),
		providers.NewSimulatedClient("baostock", core.CapHistorical),
		providers.NewSimulatedClient("yahoo",
			core.CapHistorical, core.CapRealtime, core.CapSingleSymbolSync),
		providers.NewSimulatedClient("finnhub",
			core.CapHistorical, core.CapFinancial, core.CapSingleSymbolSync),
	}

	for _, client := range clients {
		wrapped := decorators.NewCircuitBreakerClient(client,
			decorators.DefaultCircuitBreakerConfig(client.Name()))
		if err := registry.Register(wrapped); err != nil {
			log.Warnf("注册提供商 %s 失败: %v", client.Name(), err)
		}
	}
}
