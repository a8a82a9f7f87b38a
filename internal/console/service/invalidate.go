package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"go.uber.org/zap"
)

// ListenInvalidations — «живучая» подписка на сигнал устаревания счетчиков.
// urlscan публикует его после каждой записанной пачки; мы сбрасываем свежий
// кэш, и следующий запрос пересчитает агрегаты. Цикл переживает обрывы
// соединения: переподключается с паузой и синхронизируется заново.
func ListenInvalidations(ctx context.Context, rdb *redis.Client, logger *zap.Logger) {
	logger = logger.Named("invalidate")

	dropFresh := func() {
		opCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Del(opCtx, infra.RedisKeyStatsSnapshot).Err(); err != nil {
			logger.Warn("fresh cache drop failed", zap.Error(err))
		}
	}

	for {
		pubsub := rdb.Subscribe(ctx, infra.RedisChanStatsInvalidate)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", infra.RedisChanStatsInvalidate), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Пока нас не было, сигналы могли потеряться — сбрасываем кэш
		// на каждом успешном коннекте
		dropFresh()
		logger.Info("invalidation listener subscribed")

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break loop // канал закрыт, идем на переподключение
				}
				dropFresh()
			}
		}

		pubsub.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
