package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/phishguard-console/internal/console/handler"
	"github.com/xela07ax/phishguard-console/internal/console/server"
	"github.com/xela07ax/phishguard-console/internal/console/service"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"github.com/xela07ax/phishguard-console/internal/repository/sqlstore"
	"go.uber.org/zap"

	"github.com/avast/retry-go/v5"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	// Стоимость bcrypt валидна по диапазону, но цена зависит от железа —
	// меряем один хеш на старте и предупреждаем, если логин будет тормозить
	if elapsed, err := infra.ProbeBcryptCost(cfg.Auth.BcryptCost); err != nil {
		logger.Warn("bcrypt probe failed", zap.Error(err))
	} else if elapsed > infra.BcryptProbeBudget {
		logger.Warn("bcrypt cost is too slow for this host",
			zap.Int("cost", cfg.Auth.BcryptCost),
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", infra.BcryptProbeBudget))
	}

	// 2. Хранилище сканов. База может подниматься параллельно с нами —
	// пингуем с ретраями, прежде чем сдаться
	store, err := sqlstore.Open(cfg.Database)
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	err = retry.New(retry.Attempts(5)).Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.Ping(ctx)
	})
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	// 3. Redis: межпроцессный кэш и сигналы инвалидации. Опционален.
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Redis лежит — работаем без кэша, это штатный режим
			logger.Warn("redis unreachable, cross-process cache disabled", zap.Error(err))
			rdb.Close()
			rdb = nil
		}
		cancel()
	}

	// 4. Инициализация слоев (Dependency Injection)
	registry := prometheus.NewRegistry()
	httpMetrics := server.NewMetrics(registry)
	svcMetrics := service.NewServiceMetrics(registry)

	rel := service.NewReliabilityWrapper("stats-db", cfg.Server.RateLimitRPS, func(open bool) {
		if open {
			svcMetrics.BreakerOpen.Set(1)
		} else {
			svcMetrics.BreakerOpen.Set(0)
		}
	})

	statsRepo := sqlstore.NewStatsRepo(store, logger)
	statsService := service.NewStatsService(statsRepo, rdb, rel, svcMetrics, cfg.Watch.Interval, logger)
	statsHandler := handler.NewStatsHandler(statsService, store, logger)
	srv := server.NewConsoleServer(cfg, logger, statsHandler, registry, httpMetrics)

	// Контекст жизни фоновых горутин: cancel() остановит слушателя
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rdb != nil {
		go service.ListenInvalidations(appCtx, rdb, logger)
	}

	// 5. HTTP Server
	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("stats API started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("stats API stopping...")

	// Даем 10 секунд на завершение запросов, потом гасим ресурсы
	// в обратном порядке инициализации
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	cancel()
	if rdb != nil {
		rdb.Close()
	}
	store.Close()

	logger.Info("stats API exited properly")
}
