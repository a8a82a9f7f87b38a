package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"github.com/xela07ax/phishguard-console/internal/repository/sqlstore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// AggregateProvider описывает, что сервису нужно от хранилища
type AggregateProvider interface {
	Aggregate(ctx context.Context, now time.Time) (*sqlstore.Aggregates, error)
}

// StatsService собирает снимок /api/stats. Слои защиты, сверху вниз:
// singleflight (одна агрегация на всех конкурентных вызывающих),
// свежий Redis-кэш, reliability-обертка над базой, и на случай отказа —
// последний успешный снимок (Redis, затем память, затем нули).
// Выдуманных цифр в деградированном ответе нет.
type StatsService struct {
	repo     AggregateProvider
	rdb      *redis.Client // nil — межпроцессный кэш выключен
	rel      *ReliabilityWrapper
	metrics  *Metrics
	logger   *zap.Logger
	cacheTTL time.Duration

	group singleflight.Group

	mu       sync.RWMutex
	lastGood *domain.StatsSnapshot
}

func NewStatsService(
	repo AggregateProvider,
	rdb *redis.Client,
	rel *ReliabilityWrapper,
	metrics *Metrics,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		repo:     repo,
		rdb:      rdb,
		rel:      rel,
		metrics:  metrics,
		logger:   logger.Named("stats-service"),
		cacheTTL: cacheTTL,
	}
}

// Snapshot возвращает актуальный снимок статистики. Не возвращает ошибку:
// отказ базы превращается в деградированный снимок с категорией в поле error.
func (s *StatsService) Snapshot(ctx context.Context) domain.StatsSnapshot {
	v, _, _ := s.group.Do("stats", func() (interface{}, error) {
		return s.compute(ctx), nil
	})
	return v.(domain.StatsSnapshot)
}

func (s *StatsService) compute(ctx context.Context) domain.StatsSnapshot {
	if snap, ok := s.fromFreshCache(ctx); ok {
		s.metrics.SnapshotTotal.WithLabelValues("cache").Inc()
		return snap
	}

	start := time.Now()
	result, err := s.rel.Do(ctx, func(opCtx context.Context) (interface{}, error) {
		return s.repo.Aggregate(opCtx, time.Now())
	})
	if err != nil {
		s.metrics.QueryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		category := categorize(err)
		s.logger.Error("stats aggregation failed, serving degraded snapshot",
			zap.String("category", category), zap.Error(err))
		return s.degraded(ctx, category)
	}
	s.metrics.QueryDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	snap := buildSnapshot(result.(*sqlstore.Aggregates), time.Since(start))
	s.storeGood(ctx, snap)
	s.metrics.SnapshotTotal.WithLabelValues("db").Inc()
	return snap
}

// buildSnapshot переводит сырые агрегаты в контракт /api/stats.
func buildSnapshot(agg *sqlstore.Aggregates, elapsed time.Duration) domain.StatsSnapshot {
	snap := domain.StatsSnapshot{
		Status:           domain.StatusOperational,
		Timestamp:        time.Now().Format(time.RFC3339),
		ProcessingTimeMs: math.Round(float64(elapsed.Microseconds())/10) / 100,

		TotalURLs:      agg.TotalScans,
		TotalUsers:     agg.TotalUsers,
		ThreatsBlocked: agg.Threats,
		AvgResponseSec: agg.AvgResponseSec,

		DailyURLs:    agg.DailyScans,
		DailyThreats: agg.DailyThreats,
		WeeklyScans:  agg.WeeklyScans,
		HourlyScans:  agg.HourlyScans,
		ActiveUsers:  agg.ActiveUsers,

		Uptime:         domain.ReportedUptime,
		DatabaseStatus: domain.DBStatusHealthy,
	}

	// Среднее время на пустой выборке отчитываем фиксированной константой
	if snap.AvgResponseSec == 0 {
		snap.AvgResponseSec = domain.FallbackResponseSec
	} else {
		snap.AvgResponseSec = math.Round(snap.AvgResponseSec*1000) / 1000
	}

	if agg.TotalScans > 0 {
		snap.Accuracy = round1(float64(agg.SafeScans) / float64(agg.TotalScans) * 100)
		snap.DetectionRate = round1(float64(agg.Threats) / float64(agg.TotalScans) * 100)
	} else {
		snap.Accuracy = domain.DefaultAccuracy
		snap.DetectionRate = domain.DefaultDetectionRate
	}

	// Пустое окно часа сглаживаем дневной динамикой
	if snap.HourlyScans == 0 {
		if agg.DailyScans > 0 {
			snap.HourlyScans = maxI(1, agg.DailyScans/24)
		} else {
			snap.HourlyScans = 2
		}
	}

	return snap
}

// categorize маппит отказ на категорию поля error.
func categorize(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrCategoryTimeout
	}
	return domain.ErrCategoryUnavailable
}

// degraded отдает последний успешный снимок с пометкой отказа.
// Порядок источников: Redis -> память процесса -> нулевой fallback.
func (s *StatsService) degraded(ctx context.Context, category string) domain.StatsSnapshot {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, infra.RedisKeyStatsLastGood).Bytes(); err == nil {
			var snap domain.StatsSnapshot
			if json.Unmarshal(raw, &snap) == nil {
				s.metrics.SnapshotTotal.WithLabelValues("last_good").Inc()
				return snap.Degraded(category)
			}
		}
	}

	s.mu.RLock()
	memo := s.lastGood
	s.mu.RUnlock()
	if memo != nil {
		s.metrics.SnapshotTotal.WithLabelValues("last_good").Inc()
		return (*memo).Degraded(category)
	}

	s.metrics.SnapshotTotal.WithLabelValues("fallback").Inc()
	fb := domain.FallbackSnapshot()
	fb.Error = category
	return fb
}

func (s *StatsService) fromFreshCache(ctx context.Context) (domain.StatsSnapshot, bool) {
	if s.rdb == nil {
		return domain.StatsSnapshot{}, false
	}
	raw, err := s.rdb.Get(ctx, infra.RedisKeyStatsSnapshot).Bytes()
	if err != nil {
		return domain.StatsSnapshot{}, false
	}
	var snap domain.StatsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.StatsSnapshot{}, false
	}
	return snap, true
}

// storeGood обновляет оба кэша и копию в памяти. Недоступный Redis
// поведение не ухудшает: память процесса всегда под рукой.
func (s *StatsService) storeGood(ctx context.Context, snap domain.StatsSnapshot) {
	s.mu.Lock()
	copied := snap
	s.lastGood = &copied
	s.mu.Unlock()

	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, infra.RedisKeyStatsSnapshot, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("fresh cache write failed", zap.Error(err))
	}
	if err := s.rdb.Set(ctx, infra.RedisKeyStatsLastGood, raw, 0).Err(); err != nil {
		s.logger.Warn("last-good cache write failed", zap.Error(err))
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
