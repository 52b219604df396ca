package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/config"
	"github.com/Dribsphire/BMADOJT-sub000/internal/api/handler"
	"github.com/Dribsphire/BMADOJT-sub000/internal/api/router"
	"github.com/Dribsphire/BMADOJT-sub000/internal/job"
	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	"github.com/Dribsphire/BMADOJT-sub000/internal/service"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/database"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/jwt"
	applogger "github.com/Dribsphire/BMADOJT-sub000/pkg/logger"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1. config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting attendance service",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Attendance.Timezone),
	)

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB failed", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// 4. redis (optional: token revocation and rate limiting are skipped without it)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without token blacklist and rate limits", zap.Error(err))
		rdb = nil
	}

	// 5. token verification
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 7. Repository → Service → Handler
	loc, err := cfg.Attendance.Location()
	if err != nil {
		logger.Fatal("invalid attendance timezone", zap.Error(err))
	}
	clock := service.NewSystemClock(loc)

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, clock, m, logger)
	h := handler.NewHandler(svc, rdb, handler.PingFunc(sqlDB.PingContext), logger)

	engine := router.Setup(cfg, h, jwtMgr, rdb, reg, logger)

	// 8. background jobs
	var resync *job.HoursResyncJob
	if cfg.Job.HoursResyncEnabled {
		resync, err = job.NewHoursResyncJob(cfg.Job.HoursResyncCron, loc, svc.Hours, logger)
		if err != nil {
			logger.Fatal("hours resync job", zap.Error(err))
		}
		resync.Start()
	}

	// 9. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if resync != nil {
		resync.Stop(ctx)
	}

	if sqlDB != nil {
		sqlDB.Close()
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("server stopped")
}
