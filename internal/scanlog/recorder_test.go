package scanlog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"go.uber.org/zap"
)

// captureStorage копит пачки в памяти вместо базы
type captureStorage struct {
	mu      sync.Mutex
	batches [][]domain.ScanRecord
}

func (c *captureStorage) WriteBatch(_ context.Context, records []domain.ScanRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// копия: воркер переиспользует свой срез после flush
	batch := make([]domain.ScanRecord, len(records))
	copy(batch, records)
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureStorage) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func (c *captureStorage) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func record(i int) domain.ScanRecord {
	return domain.ScanRecord{
		UserID:    1,
		URL:       fmt.Sprintf("https://site-%d.example.com", i),
		Label:     domain.LabelSafe,
		ScannedAt: time.Now(),
	}
}

func TestRecorderFlushesFullBatch(t *testing.T) {
	storage := &captureStorage{}
	r := NewRecorder(storage, nil, zap.NewNop())
	r.Start()
	defer r.Stop()

	// ровно лимит пачки: сброс по размеру, не дожидаясь тикера
	for i := 0; i < 100; i++ {
		r.Record(record(i))
	}

	require.Eventually(t, func() bool {
		return storage.total() == 100
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, storage.batchCount())
}

func TestRecorderFlushesByTicker(t *testing.T) {
	storage := &captureStorage{}
	r := NewRecorder(storage, nil, zap.NewNop())
	r.Start()
	defer r.Stop()

	r.Record(record(1))
	r.Record(record(2))

	// меньше лимита: записи уходят только по таймеру
	require.Eventually(t, func() bool {
		return storage.total() == 2
	}, 2*time.Second, 25*time.Millisecond)
}

func TestRecorderStopDrainsBuffer(t *testing.T) {
	storage := &captureStorage{}
	r := NewRecorder(storage, nil, zap.NewNop())
	r.Start()

	for i := 0; i < 7; i++ {
		r.Record(record(i))
	}
	r.Stop()

	// Stop вернулся — значит буфер дописан
	assert.Equal(t, 7, storage.total())
}

func TestRecorderDropsLateRecords(t *testing.T) {
	storage := &captureStorage{}
	r := NewRecorder(storage, nil, zap.NewNop())
	r.Start()
	r.Stop()

	r.Record(record(1)) // после остановки — молча в лог, без паники
	assert.Equal(t, 0, storage.total())
}

func TestRecorderFillsZeroScanTime(t *testing.T) {
	storage := &captureStorage{}
	r := NewRecorder(storage, nil, zap.NewNop())
	r.Start()

	r.Record(domain.ScanRecord{URL: "https://no-time.example.com", Label: domain.LabelSafe})
	r.Stop()

	require.Equal(t, 1, storage.total())
	assert.False(t, storage.batches[0][0].ScannedAt.IsZero())
}
