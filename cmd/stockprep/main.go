package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"stockprep/pkg/config"
	"stockprep/pkg/freshness"
	"stockprep/pkg/logger"
	"stockprep/pkg/prepare"
	"stockprep/pkg/provider"
	"stockprep/pkg/provider/core"
	"stockprep/pkg/provider/decorators"
	"stockprep/pkg/storage"
	"stockprep/pkg/syncer"
	"stockprep/pkg/testkit/providers"
	"stockprep/pkg/timing"
)

var (
	code        = flag.String("code", "", "股票代码（必填），如 600519、0700.HK、AAPL")
	marketType  = flag.String("market", "auto", "市场类型 (auto, CN, HK, US)")
	windowDays  = flag.Int("days", 0, "历史数据时长（天），0 表示使用默认值")
	configPath  = flag.String("config", "", "配置文件路径")
	storageKind = flag.String("storage", "memory", "K线缓存后端 (memory 或 redis)")
	asJSON      = flag.Bool("json", false, "以 JSON 输出完整就绪报告")
	logLevel    = flag.String("log-level", "warn", "日志级别")
	logFormat   = flag.String("log-format", "text", "日志格式 (json 或 text)")
)

func main() {
	flag.Parse()

	if *code == "" {
		fmt.Fprintln(os.Stderr, "用法: stockprep -code <股票代码> [-market auto|CN|HK|US] [-days N]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger.Init(logger.Config{
		Level:  *logLevel,
		Format: *logFormat,
	})
	log := logger.WithComponent("stockprep_cli")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}

	// K线缓存后端
	var store storage.BarStorage
	switch *storageKind {
	case "redis":
		store, err = storage.NewRedisBarStorage(storage.RedisBarStorageConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Errorf("连接 Redis 失败: %v", err)
			os.Exit(1)
		}
	case "memory":
		store = storage.NewMemoryBarStorage()
	default:
		log.Errorf("未知存储后端: %s", *storageKind)
		os.Exit(2)
	}
	defer store.Close()

	// 可选的 InfluxDB 写入旁路
	var mirror *storage.InfluxBarWriter
	if cfg.InfluxDB.URL != "" {
		mirror = storage.NewInfluxBarWriter(cfg.InfluxDB)
		defer mirror.Close()
	}

	// 配置中心：有配置文件时从文件读取优先级和运行时参数
	var settings config.Store
	if *configPath != "" {
		settings, err = config.NewViperStore(*configPath)
		if err != nil {
			log.Errorf("创建配置中心失败: %v", err)
			os.Exit(1)
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

	ctx := context.Background()
	report := preparer.Prepare(ctx, prepare.Request{
		Code:       *code,
		Market:     *marketType,
		WindowDays: *windowDays,
	})

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Errorf("序列化报告失败: %v", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	} else {
		printReport(report)
	}

	if !report.IsValid {
		os.Exit(1)
	}
}

// printReport 以人类可读格式打印就绪报告
func printReport(report *prepare.Report) {
	if report.IsValid {
		fmt.Printf("数据准备成功: %s (%s) - %s\n",
			report.Instrument.Normalized, report.Instrument.Market.DisplayName(), report.StockName)
		fmt.Printf("  历史数据: %d 天\n", report.DataPeriodDays)
		fmt.Printf("  缓存状态: %s\n", report.CacheStatus)
		return
	}

	fmt.Printf("数据准备失败: %s\n", report.ErrorMessage)
	if report.Suggestion != "" {
		fmt.Printf("建议: %s\n", report.Suggestion)
	}
}

// registerSimulatedProviders 注册模拟数据源
// 接入真实上游客户端前，用确定性模拟行情驱动完整管道；
// baostock 不声明单股票同步能力，会在优先级解析时被跳过。
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
