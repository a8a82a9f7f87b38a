package infra

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config — корневая структура конфигурации всей платформы.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера и его защитных лимитов.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	DebugRoutes    bool          `mapstructure:"debug_routes"` // включает /debug/pprof
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к хранилищу сканов.
// URL со схемой postgres:// поднимает pgx, sqlite:// или путь к файлу — sqlite.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и Cache).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// AuthConfig — поверхность деплой-дескриптора. Аутентификацию реализует
// основное приложение; наша обязанность — провалидировать эти значения
// на старте, чтобы кривой секрет не уехал в прод молча.
type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	JWTAlgorithm     string `mapstructure:"jwt_algorithm"`
	JWTExpiryMinutes int    `mapstructure:"jwt_expiry_minutes"`
	BcryptCost       int    `mapstructure:"bcrypt_cost"`
}

// ScannerConfig содержит настройки движка проверки URL.
type ScannerConfig struct {
	ModelPath      string `mapstructure:"model_path"`      // JSON бустинговой модели; нет файла — работаем по правилам
	RecordUserID   int64  `mapstructure:"record_user_id"`  // от чьего имени urlscan пишет в scan_history
	RedisTrustlist bool   `mapstructure:"redis_trustlist"` // подмешивать доверенные домены из Redis
}

// WatchConfig настраивает клиента опроса статистики.
type WatchConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Interval       time.Duration `mapstructure:"interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom — то же, но с явным путем к файлу (флаг -config у CLI).
// Пустой путь включает стандартный поиск.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")    // имя файла без расширения
		v.SetConfigType("yaml")      // формат
		v.AddConfigPath(".")         // ищем в корне
		v.AddConfigPath("./configs") // и в папке с конфигами
	}

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Алиасы под имена переменных деплой-дескриптора, чтобы платформа
	// могла не знать про нашу структуру ключей
	bindEnvAliases(v)

	// 4. Установка дефолтных значений
	setDefaults(v)

	// 5. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 6. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Список origin из ENV приходит одной строкой через запятую
	cfg.Server.CORSOrigins = splitOrigins(cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnvAliases(v *viper.Viper) {
	// Первый аргумент — ключ конфига, дальше — имена ENV в порядке приоритета
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.max_body_bytes", "SERVER_MAX_BODY_BYTES", "MAX_REQUEST_SIZE")
	v.BindEnv("server.rate_limit_rps", "SERVER_RATE_LIMIT_RPS", "RATE_LIMIT_PER_SECOND")
	v.BindEnv("server.cors_origins", "SERVER_CORS_ORIGINS", "CORS_ORIGINS")
	v.BindEnv("server.debug_routes", "SERVER_DEBUG_ROUTES", "DEBUG")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "SECRET_KEY")
	v.BindEnv("auth.jwt_algorithm", "AUTH_JWT_ALGORITHM", "ALGORITHM")
	v.BindEnv("auth.jwt_expiry_minutes", "AUTH_JWT_EXPIRY_MINUTES", "ACCESS_TOKEN_EXPIRE_MINUTES")
	v.BindEnv("auth.bcrypt_cost", "AUTH_BCRYPT_COST", "BCRYPT_ROUNDS")
	v.BindEnv("logger.level", "LOGGER_LEVEL", "LOG_LEVEL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit_rps", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.debug_routes", false)

	v.SetDefault("database.url", "postgres://localhost:5432/phishguard")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("auth.jwt_algorithm", "HS256")
	v.SetDefault("auth.jwt_expiry_minutes", 30)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("scanner.model_path", "model/xgboost_model.json")
	v.SetDefault("scanner.record_user_id", 1)
	v.SetDefault("scanner.redis_trustlist", false)

	v.SetDefault("watch.endpoint", "http://localhost:8000/api/stats")
	v.SetDefault("watch.interval", 30*time.Second)
	v.SetDefault("watch.request_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// Validate проверяет конфигурацию до того, как она разойдется по компонентам.
// Ошибка всегда называет конкретный ключ.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be positive, got %v", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("config: server.rate_limit_burst must be positive, got %d", c.Server.RateLimitBurst)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}

	if c.Database.URL == "" {
		return errors.New("config: database.url is required")
	}
	if u, err := url.Parse(c.Database.URL); err == nil && u.Scheme != "" {
		switch u.Scheme {
		case "postgres", "postgresql", "sqlite", "file":
		default:
			return fmt.Errorf("config: database.url scheme %q is not supported", u.Scheme)
		}
	}

	// Алгоритм сверяем с реестром jwt-библиотеки, а не со своим списком
	if jwt.GetSigningMethod(c.Auth.JWTAlgorithm) == nil {
		return fmt.Errorf("config: auth.jwt_algorithm %q is not a registered signing method", c.Auth.JWTAlgorithm)
	}
	if strings.HasPrefix(c.Auth.JWTAlgorithm, "HS") && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 32 bytes for %s", c.Auth.JWTAlgorithm)
	}
	if c.Auth.JWTExpiryMinutes <= 0 {
		return fmt.Errorf("config: auth.jwt_expiry_minutes must be positive, got %d", c.Auth.JWTExpiryMinutes)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: auth.bcrypt_cost %d is outside [%d, %d]",
			c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.Watch.Interval <= 0 {
		return fmt.Errorf("config: watch.interval must be positive, got %v", c.Watch.Interval)
	}

	return nil
}

// splitOrigins нормализует список origin: из ENV он приезжает одной
// строкой "https://a.com,https://b.com".
func splitOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		for _, part := range strings.Split(o, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
