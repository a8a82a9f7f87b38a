package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"go.uber.org/zap"
)

func scoreURL(t *testing.T, raw string) (domain.ScanLabel, float64, int, []string) {
	t.Helper()
	parsed, err := parseURL(raw)
	assert.NoError(t, err)
	f := ExtractFeatures(raw, parsed)
	return NewRuleScorer(zap.NewNop()).Score(raw, parsed.Host, f)
}

func TestScorePlainHTTPSite(t *testing.T) {
	label, confidence, risk, reasons := scoreURL(t, "http://example.com")

	// единственный штраф — отсутствие HTTPS
	assert.Equal(t, domain.LabelSafe, label)
	assert.Equal(t, 20, risk)
	assert.Equal(t, 90.0, confidence)
	assert.Equal(t, []string{"No HTTPS encryption"}, reasons)
}

func TestScoreCleanHTTPSSite(t *testing.T) {
	label, confidence, risk, reasons := scoreURL(t, "https://example.com")

	assert.Equal(t, domain.LabelSafe, label)
	assert.Equal(t, 0, risk)
	assert.Equal(t, 95.0, confidence)
	assert.Empty(t, reasons)
}

func TestScorePhishingByKeywordsAndIP(t *testing.T) {
	raw := "http://192.168.0.1/login-verify?account=update"
	label, confidence, risk, reasons := scoreURL(t, raw)

	// >= 4 ключевых слов +40, нет HTTPS +20, IP-литерал +25
	assert.Equal(t, domain.LabelPhishing, label)
	assert.Equal(t, 85, risk)
	assert.Equal(t, 85.0, confidence)
	assert.Contains(t, strings.Join(reasons, "; "), "IP address")
}

func TestScoreSuspiciousTLD(t *testing.T) {
	_, _, risk, reasons := scoreURL(t, "https://promo.example.tk")

	assert.Equal(t, 15, risk)
	assert.Contains(t, reasons, "Suspicious TLD")
}

func TestScoreNonASCII(t *testing.T) {
	_, _, risk, reasons := scoreURL(t, "https://аpple.com") // кириллическая "а"

	assert.Equal(t, 15, risk)
	assert.Contains(t, reasons, "Non-ASCII characters detected")
}

func TestScoreRiskIsCapped(t *testing.T) {
	// Все категории сразу: длина, символы, слова, HTTPS, поддомены, IP, TLD
	long := "http://1.2.3.4/" + strings.Repeat("login-verify-account-update-bank/", 6) + "?x=" + strings.Repeat("%41", 20)
	label, confidence, risk, _ := scoreURL(t, long)

	assert.Equal(t, domain.LabelPhishing, label)
	assert.Equal(t, 100, risk)
	assert.Equal(t, 95.0, confidence)
}

func TestScoreMediumRiskStaysSafe(t *testing.T) {
	// 3 ключевых слова +30, нет HTTPS +20 = 50: серая зона
	label, confidence, risk, _ := scoreURL(t, "http://example.com/login-verify-account")

	assert.Equal(t, domain.LabelSafe, label)
	assert.Equal(t, 50, risk)
	assert.Equal(t, 50.0, confidence)
}
