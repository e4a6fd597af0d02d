package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"scalpbot/internal/broker"
	"scalpbot/internal/config"
	cronrunner "scalpbot/internal/cron"
	"scalpbot/internal/db"
	"scalpbot/internal/engine"
	"scalpbot/internal/handler"
	"scalpbot/internal/logger"
	"scalpbot/internal/repository"
	gormrepository "scalpbot/internal/repository/gorm"
	"scalpbot/internal/risk"
	"scalpbot/internal/strategy"

	_ "scalpbot/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("SB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var store repository.Repository
	var dbConn *db.DB
	if strings.TrimSpace(cfg.DB.DSN) != "" {
		dbConn, err = db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)

		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
	} else {
		logger.Info("db.dsn not set, trade persistence disabled")
	}

	strat, err := strategy.New(cfg.Strategy, logger)
	if err != nil {
		logger.Fatal("strategy init failed", zap.Error(err))
	}
	brk := broker.New(cfg.Trading, cfg.Broker, cfg.Strategy.Symbols, logger)
	gate := risk.New(cfg.Risk, logger)
	eng := engine.New(brk, strat, gate, store, cfg.Risk,
		decimal.NewFromFloat(cfg.Trading.InitialBalance), logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(router)

	botHandler := &handler.BotHandler{Engine: eng, Repo: store, Logger: logger}
	botHandler.Register(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := brk.Connect(ctx); err != nil {
		logger.Fatal("broker connect failed", zap.Error(err))
	}
	defer brk.Disconnect(context.Background())

	if cfg.Trading.AutoStart {
		if err := eng.Start(ctx); err != nil {
			logger.Warn("auto start failed", zap.Error(err))
		}
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.AddSerial(cfg.Cron.Iteration, func(ctx context.Context) {
			if err := eng.RunIteration(ctx); err != nil {
				logger.Warn("iteration failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register iteration failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.DailyReset, func(ctx context.Context) {
			eng.RolloverDaily()
		})
		if err != nil {
			logger.Warn("cron register daily reset failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	if err := eng.Stop(context.Background()); err != nil && !errors.Is(err, engine.ErrNotRunning) {
		logger.Warn("engine stop failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
