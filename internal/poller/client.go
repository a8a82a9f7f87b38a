package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xela07ax/phishguard-console/internal/domain"
)

// Категории отказов клиента. Для отрисовки все они схлопываются в одно
// деградированное состояние, различается только текст причины.
type FailReason string

const (
	FailNetwork FailReason = "network"     // транспортная ошибка
	FailStatus  FailReason = "http_status" // код ответа вне 2xx
	FailRead    FailReason = "body_read"
	FailDecode  FailReason = "json_decode"
	FailRemote  FailReason = "remote_error" // сервер прислал поле error
)

// FetchError — типизированный отказ одного цикла опроса.
type FetchError struct {
	Reason FailReason
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("poller: %s: %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client — явно сконструированный клиент эндпоинта статистики.
// Владеет своим http.Client с таймаутом запроса.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// FetchOnce выполняет один цикл: GET -> статус -> тело -> JSON -> поле error.
// Любой сбой возвращается типизированным *FetchError.
func (c *Client) FetchOnce(ctx context.Context) (domain.StatsSnapshot, error) {
	var snap domain.StatsSnapshot

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return snap, &FetchError{Reason: FailNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return snap, &FetchError{Reason: FailNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return snap, &FetchError{
			Reason: FailStatus,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return snap, &FetchError{Reason: FailRead, Err: err}
	}

	if err := json.Unmarshal(body, &snap); err != nil {
		return snap, &FetchError{Reason: FailDecode, Err: err}
	}

	// Контракт: ответ с непустым error — отказ, даже при статусе 200
	if snap.Error != "" {
		return snap, &FetchError{
			Reason: FailRemote,
			Err:    fmt.Errorf("server reported %q", snap.Error),
		}
	}

	return snap, nil
}
