package scanlog

/*
Файл recorder.go отвязывает сканирование от персистентности.
Вердикты уходят в буферизованный канал, воркер копит пачку и пишет
ее одним Bulk Insert по лимиту (100 записей) или по таймеру (500мс).
При остановке — Drain Pattern: канал закрывается, воркер дочитывает
остатки и делает финальный flush, потерь при перезагрузке нет.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически уходят записи сканов
type StorageInterface interface {
	WriteBatch(ctx context.Context, records []domain.ScanRecord) error
}

const (
	bufferSize    = 10000
	batchLimit    = 100
	flushInterval = 500 * time.Millisecond
)

type Recorder struct {
	ch     chan domain.ScanRecord
	repo   StorageInterface
	rdb    *redis.Client // nil — инвалидация кэша отключена
	logger *zap.Logger
	wg     sync.WaitGroup
	// Атомарный флаг (0 - открыт, 1 - закрыт) на случай поздних Record
	isClosed int32
}

func NewRecorder(repo StorageInterface, rdb *redis.Client, logger *zap.Logger) *Recorder {
	return &Recorder{
		ch:     make(chan domain.ScanRecord, bufferSize),
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("recorder"),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход и ждет, пока воркер допишет буфер.
func (r *Recorder) Stop() {
	atomic.StoreInt32(&r.isClosed, 1)

	// Крошечная пауза, чтобы текущие Record успели проскочить
	time.Sleep(10 * time.Millisecond)

	r.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.wg.Wait()
	r.logger.Info("recorder stopped gracefully")
}

// Record ставит запись в очередь. Никогда не блокирует вызывающего:
// при переполнении буфера запись сбрасывается (Load Shedding) с ошибкой в лог.
func (r *Recorder) Record(rec domain.ScanRecord) {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now()
	}

	if atomic.LoadInt32(&r.isClosed) == 1 {
		r.logger.Warn("scan record dropped: recorder is stopping", zap.String("url", rec.URL))
		return
	}

	select {
	case r.ch <- rec:
	default:
		r.logger.Error("scan_buffer_overflow", zap.String("url", rec.URL))
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]domain.ScanRecord, 0, batchLimit)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст на остановке может быть уже закрыт
		if err := r.repo.WriteBatch(context.Background(), batch); err != nil {
			r.logger.Error("scan flush failed", zap.Int("batch", len(batch)), zap.Error(err))
		} else {
			r.invalidateStats()
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-r.ch:
			if !ok {
				// Канал закрыт в Stop(): дочитали остатки, финальный сброс
				flush()
				r.logger.Info("recorder worker finished")
				return
			}
			batch = append(batch, rec)
			if len(batch) >= batchLimit {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// invalidateStats сообщает statsapi, что счетчики устарели.
// Недоступный Redis не ошибка: следующий пересчет случится по TTL кэша.
func (r *Recorder) invalidateStats() {
	if r.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, infra.RedisChanStatsInvalidate, "flush").Err(); err != nil {
		r.logger.Warn("stats invalidation signal failed", zap.Error(err))
	}
}
