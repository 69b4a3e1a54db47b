package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
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
	configPath  = flag.String("config", "", "配置文件路径")
	port        = flag.String("port", "8080", "HTTP 监听端口")
	ginMode     = flag.String("mode", "release", "gin 运行模式 (debug, release, test)")
	storageKind = flag.String("storage", "memory", "K线缓存后端 (memory 或 redis)")
	logLevel    = flag.String("log-level", "info", "日志级别")
	logFormat   = flag.String("log-format", "json", "日志格式 (json 或 text)")
)

// APIServer 数据准备 REST 服务
// 对外只暴露薄薄一层准备接口，完整的行情网关由外部系统承担。
type APIServer struct {
	preparer *prepare.Preparer
	store    storage.BarStorage
	registry *provider.Registry
	server   *http.Server
	log      *logrus.Entry
}

// PrepareRequest POST /api/v1/prepare 请求体
type PrepareRequest struct {
	Code       string `json:"code" binding:"required"`
	Market     string `json:"market"`
	WindowDays int    `json:"window_days"`
}

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func main() {
	flag.Parse()

	logger.Init(logger.Config{
		Level:  *logLevel,
		Format: *logFormat,
	})
	log := logger.WithComponent("api_server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	server, err := NewAPIServer(cfg, *configPath, *storageKind, log)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}

	gin.SetMode(*ginMode)
	server.Start(*port)

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，正在关闭...")
	server.Stop()
	log.Info("已退出")
}

// NewAPIServer 组装数据准备管道和 HTTP 服务
func NewAPIServer(cfg *config.Config, configPath, storageKind string, log *logrus.Entry) (*APIServer, error) {
	var store storage.BarStorage
	var err error

	switch storageKind {
	case "redis":
		store, err = storage.NewRedisBarStorage(storage.RedisBarStorageConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
	default:
		store = storage.NewMemoryBarStorage()
	}

	var mirror *storage.InfluxBarWriter
	if cfg.InfluxDB.URL != "" {
		mirror = storage.NewInfluxBarWriter(cfg.InfluxDB)
	}

	var settings config.Store
	if configPath != "" {
		settings, err = config.NewViperStore(configPath)
		if err != nil {
			store.Close()
			return nil, err
		}
	} else {
		settings = config.NewViperStoreFrom(viper.New())
	}

	registry := provider.NewRegistry()
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

	return &APIServer{
		preparer: prepare.NewPreparer(cfg.Preparer, settings, calendar, checker, resolver, orchestrator),
		store:    store,
		registry: registry,
		log:      log,
	}, nil
}

// Start 注册路由并启动 HTTP 服务
func (s *APIServer) Start(port string) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.corsMiddleware())

	router.GET("/health", s.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/prepare", s.prepareStock)
		v1.GET("/ready/:code", s.checkReady)
		v1.GET("/providers", s.listProviders)
	}

	s.server = &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	s.log.WithField("port", port).Info("启动数据准备 API 服务...")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Fatal("HTTP 服务启动失败")
		}
	}()
}

// Stop 优雅关闭服务和管道资源
func (s *APIServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.log.WithError(err).Error("HTTP 服务关闭失败")
	}

	s.preparer.Close()
	s.registry.Close()
	s.store.Close()
}

func (s *APIServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func (s *APIServer) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "ok",
		"providers": s.registry.List(),
		"timestamp": time.Now(),
	})
}

// prepareStock 运行完整的数据准备管道并返回就绪报告
func (s *APIServer) prepareStock(c *gin.Context) {
	var req PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, ErrorResponse{Error: "bad_request", Message: "code 字段必填"})
		return
	}

	report := s.preparer.Prepare(c.Request.Context(), prepare.Request{
		Code:       req.Code,
		Market:     req.Market,
		WindowDays: req.WindowDays,
	})

	status := 200
	if !report.IsValid {
		// 格式错误与数据源失败都以报告正文区分，HTTP 层只标记不可用
		status = 422
	}
	c.JSON(status, report)
}

// checkReady 轻量就绪探测
func (s *APIServer) checkReady(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(400, ErrorResponse{Error: "bad_request", Message: "code 参数必填"})
		return
	}

	ready := s.preparer.IsReady(c.Request.Context(), prepare.Request{
		Code:   code,
		Market: c.Query("market"),
	})
	c.JSON(200, gin.H{"code": code, "ready": ready})
}

// listProviders 列出已注册的数据提供商
func (s *APIServer) listProviders(c *gin.Context) {
	c.JSON(200, gin.H{"providers": s.registry.List()})
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
