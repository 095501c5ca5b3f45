package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vietanh2810/fuelticket-api/internal/api"
	"github.com/vietanh2810/fuelticket-api/internal/config"
	"github.com/vietanh2810/fuelticket-api/internal/db"
	"github.com/vietanh2810/fuelticket-api/internal/lock"
	"github.com/vietanh2810/fuelticket-api/internal/logger"
	"github.com/vietanh2810/fuelticket-api/internal/notify"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

const (
	configPath      = "./cmd/app/config.yml"
	shutdownTimeout = 15 * time.Second
)

func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler atomic.Pointer[service.Scheduler]
	conf, err := config.Watch(configPath, func(reloaded *config.AppConfig) {
		if err := logger.Init(reloaded.API.Environment); err != nil {
			zap.L().Error("failed to reinitialize logger", zap.Error(err))
		}
		hour, minute, err := reloaded.Scheduler.ParseRunAt()
		if sch := scheduler.Load(); err == nil && sch != nil {
			sch.SetRunAt(hour, minute)
			zap.L().Info("scheduler run time changed", zap.String("run_at", reloaded.Scheduler.RunAt))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	hub := notify.NewHub()
	publishers := notify.Multi{notify.LogPublisher{}, hub}
	if len(conf.Kafka.Brokers) > 0 {
		kafkaPublisher := notify.NewKafkaPublisher(conf.Kafka)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}

	deps := api.Deps{
		Notifier: publishers,
		Hub:      hub,
	}
	if conf.Redis.Addr != "" {
		redisLock, err := lock.NewRedisLock(ctx, conf.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize redis lock -> %w", err)
		}
		defer redisLock.Close()
		deps.JobLock = redisLock
	}

	s, err := api.NewServer(conf, postgresDB, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize server -> %w", err)
	}
	scheduler.Store(s.Scheduler)

	go hub.Run(ctx)
	if conf.Scheduler.Enabled {
		go s.Scheduler.Start(ctx)
	}

	addr := ":" + s.Config.API.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}

	return nil
}
