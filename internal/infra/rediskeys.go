package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "phishguard"
)

// Ключи кэша статистики
const (
	// Свежий снимок /api/stats, TTL равен периоду опроса страницы
	RedisKeyStatsSnapshot = RedisNamespace + ":stats:snapshot"
	// Последний успешный снимок без TTL — источник цифр в деградированном режиме
	RedisKeyStatsLastGood = RedisNamespace + ":stats:last_good"
)

// Ключи доверенного реестра доменов
const (
	RedisKeyTrustedDomains = RedisNamespace + ":trusted:domains"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanStatsInvalidate — сигнал "счетчики устарели": свежий кэш
	// сбрасывается и следующий запрос пересчитает агрегаты.
	RedisChanStatsInvalidate = RedisNamespace + ":stats:invalidate"
)

// GetSeedLockKey Генератор ключей для блокировок прогрева справочников
func GetSeedLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:seed:%s", RedisNamespace, resource)
}
