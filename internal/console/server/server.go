package server

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/phishguard-console/internal/console/handler"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"github.com/xela07ax/phishguard-console/web"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	statsHandler *handler.StatsHandler
	registry     *prometheus.Registry
	metrics      *Metrics
}

// NewConsoleServer собирает HTTP-поверхность statsapi: продуктовый
// /api/stats, сервисные /health и /metrics, лендинг и (по флагу) pprof.
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	statsH *handler.StatsHandler,
	registry *prometheus.Registry,
	metrics *Metrics,
) *ConsoleServer {
	s := &ConsoleServer{
		router:       chi.NewRouter(),
		logger:       logger.Named("console-api"),
		cfg:          cfg,
		statsHandler: statsH,
		registry:     registry,
		metrics:      metrics,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	// Порядок важен: IP -> Trace -> Лог -> Recoverer -> CORS -> Лимиты
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(RequestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(CORS(s.cfg.Server.CORSOrigins))
	r.Use(RateLimit(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.metrics))
	r.Use(BodyLimit(s.cfg.Server.MaxBodyBytes))

	// --- 2. Продуктовый API: единственный эндпоинт ---
	r.Get("/api/stats", s.statsHandler.GetStats)

	// --- 3. Сервисные поверхности ---
	r.Get("/health", s.statsHandler.GetHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP)

	// Отладочные роуты только по явному флагу конфига
	if s.cfg.Server.DebugRoutes {
		r.Mount("/debug", middleware.Profiler())
		s.logger.Warn("debug routes enabled at /debug/pprof")
	}

	// --- 4. Лендинг: вшитая статика ---
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		// Промах по embed ловится на первом же запуске
		panic(err)
	}
	fileServer := http.FileServer(http.FS(static))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		req.URL.Path = "/" // index.html
		fileServer.ServeHTTP(w, req)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
