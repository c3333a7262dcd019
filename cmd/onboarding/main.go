// OnboardingService 主程序
// 功能：客户入驻申请的创建、查询、状态流转与团队自动分派
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/application"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/infrastructure/messaging"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/infrastructure/persistence/mysql"
	httphandler "github.com/wyfcoding/clientonboarding/internal/onboarding/interfaces/http"
	"github.com/wyfcoding/clientonboarding/pkg/cache"
	"github.com/wyfcoding/clientonboarding/pkg/config"
	"github.com/wyfcoding/clientonboarding/pkg/db"
	"github.com/wyfcoding/clientonboarding/pkg/logger"
	"github.com/wyfcoding/clientonboarding/pkg/metrics"
	"github.com/wyfcoding/clientonboarding/pkg/middleware"
	"github.com/wyfcoding/clientonboarding/pkg/mq"
	"github.com/wyfcoding/clientonboarding/pkg/ratelimit"
)

func main() {
	// 1. 加载配置
	configPath := "configs/onboarding/config.toml"
	if v := os.Getenv("APP_CONFIG_PATH"); v != "" {
		configPath = v
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting OnboardingService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := mysql.Migrate(database.DB); err != nil {
		logger.Fatal(ctx, "Failed to migrate database", "error", err)
	}

	// 4. 初始化 Redis
	redisCfg := cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisCache, err := cache.New(redisCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 5. 初始化限流器
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 6. 初始化 Kafka 生产者
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()

	// 7. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}
	collector := metrics.NewDefaultMetricsCollector(metricsInstance)

	// 8. 初始化仓储与应用服务
	requestRepo := mysql.NewRequestRepository(database.DB)
	historyRepo := mysql.NewStatusHistoryRepository(database.DB)
	assignmentRepo := mysql.NewTeamAssignmentRepository(database.DB)
	publisher := messaging.NewKafkaEventPublisher(producer)

	service := application.NewOnboardingService(
		database,
		requestRepo,
		historyRepo,
		assignmentRepo,
		publisher,
		collector,
		cfg.Routing.QueueSize,
	)

	// 9. 启动自动分派工作者
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	worker := application.NewRoutingWorker(service)
	go worker.Run(workerCtx)

	// 10. 创建并启动 HTTP 服务器
	httpServer := createHTTPServer(cfg, service, redisCache, collector, rateLimiter)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		logger.Info(ctx, "Starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 11. 优雅关停
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down OnboardingService")

	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error", "error", err)
	}

	logger.Info(ctx, "OnboardingService stopped")
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	service *application.OnboardingService,
	redisCache *cache.RedisCache,
	collector *metrics.DefaultMetricsCollector,
	rateLimiter ratelimit.RateLimiter,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// 添加中间件
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinMetricsMiddleware(collector))
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))

	// 注册路由
	var statsCache *cache.RedisCache
	if cfg.StatsCache.Enabled {
		statsCache = redisCache
	}
	handler := httphandler.NewOnboardingHandler(service, statsCache, time.Duration(cfg.StatsCache.TTL)*time.Second)
	handler.RegisterRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
