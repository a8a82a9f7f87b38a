package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(hits, 1)
		fmt.Fprintf(w, `{"status":"operational","total_urls":%d}`, n)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPollerImmediateFirstCycle(t *testing.T) {
	var hits int64
	srv := countingServer(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// интервал заведомо больше теста: единственный цикл — стартовый
	p := New(NewClient(srv.URL, time.Second), time.Hour)
	go p.Run(ctx)

	select {
	case res := <-p.Results():
		require.NoError(t, res.Err)
		assert.Equal(t, int64(1), res.Snapshot.TotalURLs)
		assert.False(t, res.At.IsZero())
	case <-time.After(3 * time.Second):
		t.Fatal("no result from initial cycle")
	}
}

func TestPollerManualRefresh(t *testing.T) {
	var hits int64
	srv := countingServer(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(NewClient(srv.URL, time.Second), time.Hour)
	go p.Run(ctx)

	first := <-p.Results()
	require.NoError(t, first.Err)

	p.Refresh()

	select {
	case res := <-p.Results():
		require.NoError(t, res.Err)
		assert.Equal(t, int64(2), res.Snapshot.TotalURLs)
	case <-time.After(3 * time.Second):
		t.Fatal("refresh did not trigger a cycle")
	}
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestPollerResultsClosedOnCancel(t *testing.T) {
	var hits int64
	srv := countingServer(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	p := New(NewClient(srv.URL, time.Second), time.Hour)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	<-p.Results()
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("poller did not stop on context cancel")
	}

	_, open := <-p.Results()
	assert.False(t, open, "results channel must be closed after Run returns")
}

func TestPollerLatestResultWins(t *testing.T) {
	var hits int64
	srv := countingServer(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(NewClient(srv.URL, time.Second), time.Hour)
	go p.Run(ctx)

	// Потребитель не читает: второй цикл вытесняет первый результат
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&hits) == 1
	}, 3*time.Second, 10*time.Millisecond)

	p.Refresh()
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&hits) == 2
	}, 3*time.Second, 10*time.Millisecond)
	// даем циклу дописать результат в канал после ответа сервера
	time.Sleep(300 * time.Millisecond)

	res := <-p.Results()
	assert.Equal(t, int64(2), res.Snapshot.TotalURLs)
}
