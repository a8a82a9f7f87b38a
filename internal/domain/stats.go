package domain

import "time"

// StatsSnapshot — агрегированная статистика сервиса, которую отдает /api/stats.
// Первые четыре счетчика и поле error — гарантированный контракт для лендинга
// и терминального дашборда; остальное — расширенные метрики той же выборки.
type StatsSnapshot struct {
	Status           string  `json:"status"`
	Timestamp        string  `json:"timestamp"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`

	// Основные счетчики главной страницы
	TotalURLs      int64   `json:"total_urls"`
	TotalUsers     int64   `json:"total_users"`
	ThreatsBlocked int64   `json:"threats_blocked"`
	AvgResponseSec float64 `json:"avg_response_time"`

	// Дневная и недельная динамика
	DailyURLs    int64 `json:"daily_urls"`
	DailyThreats int64 `json:"daily_threats"`
	WeeklyScans  int64 `json:"weekly_scans"`
	HourlyScans  int64 `json:"hourly_scans"`
	ActiveUsers  int64 `json:"active_users"`

	// Качество модели
	Accuracy      float64 `json:"accuracy"`
	DetectionRate float64 `json:"detection_rate"`
	Uptime        float64 `json:"uptime"`

	DatabaseStatus string `json:"database_status"`

	// Заполняется только в деградированном режиме. Клиент обязан трактовать
	// любой ответ с непустым error как сбой.
	Error string `json:"error,omitempty"`
}

// Категории ошибок деградированного ответа
const (
	ErrCategoryUnavailable = "database_unavailable"
	ErrCategoryTimeout     = "database_timeout"
)

const (
	StatusOperational = "operational"
	StatusDegraded    = "degraded"

	DBStatusHealthy = "healthy"
	DBStatusError   = "error"
)

// Фиксированные показатели, которые сервис не вычисляет по выборке
const (
	DefaultAccuracy      = 98.7 // точность модели на пустой базе
	DefaultDetectionRate = 15.2
	ReportedUptime       = 99.9
	FallbackResponseSec  = 0.087
)

// FallbackSnapshot — фиксированный деградированный снимок для клиента:
// все счетчики нулевые, время ответа зафиксировано. Страница никогда
// не остается в состоянии вечной загрузки.
func FallbackSnapshot() StatsSnapshot {
	return StatsSnapshot{
		Status:         StatusDegraded,
		Timestamp:      time.Now().Format(time.RFC3339),
		AvgResponseSec: FallbackResponseSec,
		DatabaseStatus: DBStatusError,
	}
}

// Degraded помечает снимок как деградированный, не трогая счетчики:
// цифры остаются последними известными, а не выдуманными.
func (s StatsSnapshot) Degraded(category string) StatsSnapshot {
	s.Status = StatusDegraded
	s.DatabaseStatus = DBStatusError
	s.Error = category
	s.Timestamp = time.Now().Format(time.RFC3339)
	return s
}

// HealthStatus — ответ сервисного /health.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
