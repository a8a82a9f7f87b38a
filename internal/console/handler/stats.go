package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/xela07ax/phishguard-console/internal/domain"
	"go.uber.org/zap"
)

// StatsProvider описывает, что нам нужно от сервиса
type StatsProvider interface {
	Snapshot(ctx context.Context) domain.StatsSnapshot
}

// Pinger проверяет живость хранилища для /health
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatsHandler struct {
	service StatsProvider
	store   Pinger
	logger  *zap.Logger
}

func NewStatsHandler(service StatsProvider, store Pinger, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		store:   store,
		logger:  logger.Named("stats-handler"),
	}
}

// GetStats — продуктовый эндпоинт. Всегда отвечает 200: деградация
// выражается полем error в теле, клиент обязан его проверить.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot(r.Context())

	w.Header().Set("Content-Type", "application/json")
	// Счетчики кэширует наш собственный слой, промежуточным кэшам тут
	// делать нечего
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("stats response write failed", zap.Error(err))
	}
}

// GetHealth — сервисный healthcheck: пингуем базу с коротким таймаутом.
func (h *StatsHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := domain.HealthStatus{Status: "ok", Database: domain.DBStatusHealthy}
	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status = domain.HealthStatus{Status: "unavailable", Database: domain.DBStatusError}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
