package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ReliabilityWrapper прикрывает базу от шторма запросов:
// лимитер режет QPS, предохранитель отсекает лежащую базу,
// ретраи сглаживают кратковременные сбои.
type ReliabilityWrapper struct {
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewReliabilityWrapper настраивает цепочку. onStateChange (может быть nil)
// дергается при переключении предохранителя — туда вешается метрика.
func NewReliabilityWrapper(name string, qps float64, onStateChange func(open bool)) *ReliabilityWrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			if onStateChange != nil {
				onStateChange(to == gobreaker.StateOpen)
			}
		},
	})

	return &ReliabilityWrapper{
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(qps), int(qps)),
	}
}

// Do прогоняет операцию через лимитер -> предохранитель -> ретраи.
// Каждая попытка живет под собственным таймаутом.
func (w *ReliabilityWrapper) Do(ctx context.Context, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var result interface{}

	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			var opErr error
			result, opErr = op(tCtx)
			return opErr
		})

		return result, retryErr
	})
	if err != nil {
		return nil, err
	}

	return cbResult, nil
}
