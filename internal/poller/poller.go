package poller

import (
	"context"
	"time"

	"github.com/xela07ax/phishguard-console/internal/domain"
)

// Result — «помеченный» результат цикла: либо снимок, либо причина отказа.
// Отказ никогда не маскируется под нулевые цифры — это решает рендерер.
type Result struct {
	Snapshot domain.StatsSnapshot
	Err      error
	At       time.Time
	Elapsed  time.Duration
}

func (r Result) Failed() bool { return r.Err != nil }

// Poller — отменяемая периодическая задача вокруг Client.
// Все циклы (тики и ручные обновления) исполняет одна горутина, поэтому
// медленный ответ и очередной тик не могут наложиться друг на друга.
type Poller struct {
	client   *Client
	interval time.Duration

	results chan Result
	refresh chan struct{} // buffered(1): повторные Refresh во время цикла схлопываются
}

func New(client *Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		client:   client,
		interval: interval,
		results:  make(chan Result, 1),
		refresh:  make(chan struct{}, 1),
	}
}

// Results отдает канал результатов. Закрывается при завершении Run.
func (p *Poller) Results() <-chan Result {
	return p.results
}

// Refresh запрашивает ровно один внеочередной цикл. Если цикл уже идет,
// запрос встает в очередь; очередь глубиной один — лишние триггеры
// схлопываются.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run крутит опрос: немедленный цикл на старте, дальше по тикеру.
// Останавливается отменой контекста, канал результатов закрывается.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.results)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		case <-p.refresh:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	snap, err := p.client.FetchOnce(ctx)
	res := Result{
		Snapshot: snap,
		Err:      err,
		At:       start,
		Elapsed:  time.Since(start),
	}

	// Потребитель один (рендерер); если он отстал, свежий результат
	// вытесняет непрочитанный — дашборду нужен последний, не все
	select {
	case p.results <- res:
	default:
		select {
		case <-p.results:
		default:
		}
		select {
		case p.results <- res:
		case <-ctx.Done():
		}
	}
}
