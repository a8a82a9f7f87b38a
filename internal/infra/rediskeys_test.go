package infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKeysAreNamespaced(t *testing.T) {
	for _, key := range []string{
		RedisKeyStatsSnapshot,
		RedisKeyStatsLastGood,
		RedisKeyTrustedDomains,
		RedisChanStatsInvalidate,
	} {
		assert.True(t, strings.HasPrefix(key, RedisNamespace+":"), key)
	}
}

func TestGetSeedLockKey(t *testing.T) {
	assert.Equal(t, "phishguard:lock:seed:trusted", GetSeedLockKey("trusted"))
}
