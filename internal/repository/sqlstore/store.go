package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/xela07ax/phishguard-console/internal/infra"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	_ "modernc.org/sqlite"             // Драйвер SQLite (dev-хранилище и тесты)
)

// Store — единая точка доступа к хранилищу сканов. Диалект выбирается
// схемой database.url: postgres:// поднимает pgx, sqlite:// или путь
// к файлу — modernc sqlite. Схему таблиц ведет основное приложение,
// мы к ней только подключаемся.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open разбирает URL, открывает пул и настраивает его по конфигу.
func Open(cfg infra.DatabaseConfig) (*Store, error) {
	driver, dsn, postgres := resolveDriver(cfg.URL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, postgres: postgres}

	if !postgres {
		// WAL и busy_timeout, иначе конкурирующие записи ловят SQLITE_BUSY
		if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
			return nil, fmt.Errorf("sqlstore: set WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
			return nil, fmt.Errorf("sqlstore: set busy_timeout: %w", err)
		}
	}

	return s, nil
}

// resolveDriver маппит URL конфига на (драйвер, DSN).
func resolveDriver(rawURL string) (driver, dsn string, postgres bool) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return "pgx", rawURL, true
	case strings.HasPrefix(rawURL, "sqlite://"):
		return "sqlite", strings.TrimPrefix(rawURL, "sqlite://"), false
	default:
		// Голый путь или file: — локальный sqlite-файл
		return "sqlite", rawURL, false
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind переводит запрос с `?` на нумерованные плейсхолдеры $N.
// Запросы пишем один раз под `?`, постгрес получает свой синтаксис здесь.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
