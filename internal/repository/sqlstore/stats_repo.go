package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Aggregates — сырые агрегаты по scan_history и users, из которых
// сервис собирает StatsSnapshot.
type Aggregates struct {
	TotalScans     int64
	SafeScans      int64
	Threats        int64
	TotalUsers     int64
	DailyScans     int64
	DailyThreats   int64
	WeeklyScans    int64
	HourlyScans    int64
	ActiveUsers    int64
	AvgResponseSec float64
}

type StatsRepo struct {
	store  *Store
	logger *zap.Logger
}

func NewStatsRepo(store *Store, logger *zap.Logger) *StatsRepo {
	return &StatsRepo{store: store, logger: logger.Named("stats-repo")}
}

// Aggregate собирает счетчики одним проходом по группам.
// Временные границы считаем в Go и передаем параметрами — SQL остается
// одинаковым для постгреса и sqlite.
func (r *StatsRepo) Aggregate(ctx context.Context, now time.Time) (*Aggregates, error) {
	agg := &Aggregates{}

	// 1. Тотальные счетчики: все сканы, безопасные, угрозы, среднее время
	query := r.store.rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN label LIKE '%Phishing%' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(prediction_time), 0)
		FROM scan_history`)
	if err := r.store.db.QueryRowContext(ctx, query).Scan(
		&agg.TotalScans, &agg.Threats, &agg.AvgResponseSec,
	); err != nil {
		return nil, fmt.Errorf("stats_repo: totals query: %w", err)
	}
	agg.SafeScans = agg.TotalScans - agg.Threats

	// 2. Дневная динамика от локальной полуночи
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	query = r.store.rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN label LIKE '%Phishing%' THEN 1 ELSE 0 END), 0)
		FROM scan_history WHERE scan_date >= ?`)
	if err := r.store.db.QueryRowContext(ctx, query, midnight).Scan(
		&agg.DailyScans, &agg.DailyThreats,
	); err != nil {
		return nil, fmt.Errorf("stats_repo: daily query: %w", err)
	}

	// 3. Скользящие окна: час и неделя
	query = r.store.rebind(`SELECT COUNT(*) FROM scan_history WHERE scan_date >= ?`)
	if err := r.store.db.QueryRowContext(ctx, query, now.Add(-time.Hour)).Scan(&agg.HourlyScans); err != nil {
		return nil, fmt.Errorf("stats_repo: hourly query: %w", err)
	}
	if err := r.store.db.QueryRowContext(ctx, query, now.AddDate(0, 0, -7)).Scan(&agg.WeeklyScans); err != nil {
		return nil, fmt.Errorf("stats_repo: weekly query: %w", err)
	}

	// 4. Активные пользователи: уникальные user_id за последние сутки
	query = r.store.rebind(`SELECT COUNT(DISTINCT user_id) FROM scan_history WHERE scan_date >= ?`)
	if err := r.store.db.QueryRowContext(ctx, query, now.Add(-24*time.Hour)).Scan(&agg.ActiveUsers); err != nil {
		return nil, fmt.Errorf("stats_repo: active users query: %w", err)
	}

	// 5. Всего пользователей. В dev-хранилище (sqlite) таблицы users может
	// не быть — тогда деградируем счетчик до нуля, не роняя весь снимок.
	query = r.store.rebind(`SELECT COUNT(*) FROM users`)
	if err := r.store.db.QueryRowContext(ctx, query).Scan(&agg.TotalUsers); err != nil {
		agg.TotalUsers = 0
		r.logger.Warn("users table unavailable, total_users degraded to 0", zap.Error(err))
	}

	return agg, nil
}
