package detect

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// Встроенный реестр крупных доменов. Redis-оверлей расширяет его в рантайме.
var majorDomains = map[string]struct{}{
	"google.com": {}, "facebook.com": {}, "twitter.com": {}, "instagram.com": {},
	"linkedin.com": {}, "amazon.com": {}, "microsoft.com": {}, "apple.com": {},
	"github.com": {}, "stackoverflow.com": {}, "youtube.com": {}, "gmail.com": {},
	"outlook.com": {}, "yahoo.com": {}, "reddit.com": {}, "wikipedia.org": {},
	"mozilla.org": {}, "github.io": {}, "cloudflare.com": {}, "netflix.com": {},
	"spotify.com": {}, "dropbox.com": {}, "adobe.com": {}, "salesforce.com": {},
	"zoom.us": {}, "discord.com": {}, "slack.com": {}, "twitch.tv": {},
	"medium.com": {}, "wordpress.com": {},
}

// Университетские домены, собиравшие ложные срабатывания
var universityDomains = map[string]struct{}{
	"uthm.edu.my": {}, "utm.my": {}, "upm.edu.my": {}, "um.edu.my": {},
	"usm.my": {}, "ukm.my": {}, "utp.edu.my": {}, "mmu.edu.my": {},
}

// Сервисные префиксы хоста; срезается только первый совпавший
var hostPrefixes = []string{"www.", "mail.", "webmail.", "m.", "mobile.", "app.", "api."}

var educationalWords = []string{"university", "univ", "college", "school", "academy"}

// TrustedRegistry — реестр доверенных доменов. Попадание в реестр
// останавливает скоринг: URL безопасен по определению списка.
// Локальная копия Redis-оверлея живет за RWMutex — Hot Path читает
// только память.
type TrustedRegistry struct {
	mu      sync.RWMutex
	overlay map[string]struct{}

	rdb    *redis.Client // nil — оверлей выключен
	logger *zap.Logger
}

func NewTrustedRegistry(rdb *redis.Client, logger *zap.Logger) *TrustedRegistry {
	return &TrustedRegistry{
		overlay: make(map[string]struct{}),
		rdb:     rdb,
		logger:  logger.Named("trusted"),
	}
}

// Init синхронизирует локальную копию оверлея и при пустом Redis
// прогревает его встроенным списком крупных доменов.
func (t *TrustedRegistry) Init(ctx context.Context) error {
	if t.rdb == nil {
		return nil
	}

	domains, err := t.rdb.SMembers(ctx, infra.RedisKeyTrustedDomains).Result()
	if err != nil {
		return fmt.Errorf("trusted: overlay sync: %w", err)
	}

	t.mu.Lock()
	t.overlay = make(map[string]struct{}, len(domains))
	for _, d := range domains {
		t.overlay[strings.ToLower(d)] = struct{}{}
	}
	t.mu.Unlock()

	if len(domains) > 0 {
		t.logger.Info("trusted overlay synced", zap.Int("count", len(domains)))
		return nil
	}

	// Распределенная блокировка (SetNX): Redis греет только один инстанс
	ok, err := t.rdb.SetNX(ctx, infra.GetSeedLockKey("trusted"), "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // либо сеть моргнула, либо другой инстанс уже греет
	}

	t.logger.Info("trusted overlay is empty, seeding from built-in set",
		zap.Int("count", len(majorDomains)))

	pipe := t.rdb.Pipeline()
	for d := range majorDomains {
		pipe.SAdd(ctx, infra.RedisKeyTrustedDomains, d)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trusted: overlay seed: %w", err)
	}
	return nil
}

// normalizeHost срезает один сервисный префикс и порт.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	for _, p := range hostPrefixes {
		if strings.HasPrefix(host, p) {
			host = host[len(p):]
			break
		}
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// matchDomainSet проверяет равенство или суффикс через точку:
// docs.google.com совпадает с записью google.com.
func matchDomainSet(host string, set map[string]struct{}) (string, bool) {
	for d := range set {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d, true
		}
	}
	return "", false
}

// Lookup проверяет хост по реестру. Первое совпадение выигрывает,
// причина возвращается строкой для вердикта.
func (t *TrustedRegistry) Lookup(host string) (bool, string) {
	domain := normalizeHost(host)
	if domain == "" {
		return false, ""
	}

	// 1. Крупные доверенные домены
	if d, ok := matchDomainSet(domain, majorDomains); ok {
		return true, "Major trusted domain: " + d
	}

	// 2. Университетские домены
	if d, ok := matchDomainSet(domain, universityDomains); ok {
		return true, "University domain: " + d
	}

	// 3. Образовательные и правительственные семейства TLD
	if reason, ok := matchTrustedTLD(domain); ok {
		return true, reason
	}

	// 4. Образовательно звучащий хост — если в нем нет фишинговых маркеров
	for _, w := range educationalWords {
		if strings.Contains(domain, w) {
			for _, bad := range []string{"login", "secure", "verify", "update"} {
				if strings.Contains(domain, bad) {
					return false, ""
				}
			}
			return true, "Educational-sounding domain"
		}
	}

	// 5. Redis-оверлей: сверяем зарегистрированный домен (eTLD+1)
	if t.lookupOverlay(domain) {
		return true, "Operator trusted domain"
	}

	return false, ""
}

func matchTrustedTLD(domain string) (string, bool) {
	labels := strings.Split(domain, ".")
	last := labels[len(labels)-1]

	switch last {
	case "edu":
		return "Educational domain", true
	case "gov":
		return "Government domain", true
	case "mil":
		return "Military domain", true
	}

	// Страновые варианты: .edu.XX, .gov.XX, .mil.XX, .ac.XX
	if len(labels) >= 2 && len(last) == 2 {
		switch labels[len(labels)-2] {
		case "edu", "gov", "mil":
			return "Educational/Government domain: ." + labels[len(labels)-2] + "." + last, true
		case "ac":
			return "Academic domain: .ac." + last, true
		}
	}

	// Французские университеты: univ-*.fr
	if last == "fr" && len(labels) >= 2 && strings.HasPrefix(labels[len(labels)-2], "univ-") {
		return "French university domain", true
	}

	if strings.Contains(domain, ".ac.") {
		return "Academic domain", true
	}

	return "", false
}

func (t *TrustedRegistry) lookupOverlay(domain string) bool {
	if t.rdb == nil {
		return false
	}

	// foo.portal.evilcorp.co.uk сверяется записью evilcorp.co.uk
	registered, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		registered = domain
	}

	t.mu.RLock()
	_, ok := t.overlay[registered]
	t.mu.RUnlock()
	return ok
}
