package detect

import (
	"fmt"
	"net"
	"strings"

	"github.com/xela07ax/phishguard-console/internal/domain"
	"go.uber.org/zap"
)

var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".click", ".download"}

// RuleScorer — правиловый скоринг, запасной путь движка. Работает всегда,
// в отличие от модели, которой может не быть на диске.
type RuleScorer struct {
	logger *zap.Logger
}

func NewRuleScorer(logger *zap.Logger) *RuleScorer {
	return &RuleScorer{logger: logger.Named("rules")}
}

// Score накапливает риск 0-100 по таблице штрафов и маппит его в вердикт.
// Каждое сработавшее правило оставляет причину.
func (s *RuleScorer) Score(rawURL string, host string, f Features) (domain.ScanLabel, float64, int, []string) {
	score := 0
	var penalties []string

	// Длина URL
	switch {
	case f.URLLength > 150:
		score += 30
		penalties = append(penalties, fmt.Sprintf("Very long URL: %d chars", f.URLLength))
	case f.URLLength > 100:
		score += 20
		penalties = append(penalties, fmt.Sprintf("Long URL: %d chars", f.URLLength))
	case f.URLLength > 80:
		score += 10
		penalties = append(penalties, fmt.Sprintf("Moderately long URL: %d chars", f.URLLength))
	}

	// Спецсимволы: сначала доля, потом абсолютные пороги
	length := f.URLLength
	if length < 1 {
		length = 1
	}
	ratio := float64(f.SpecialChars) / float64(length)
	switch {
	case ratio > 0.4:
		score += 25
		penalties = append(penalties, fmt.Sprintf("High special char ratio: %.2f", ratio))
	case f.SpecialChars > 20:
		score += 20
		penalties = append(penalties, fmt.Sprintf("Many special chars: %d", f.SpecialChars))
	case f.SpecialChars > 15:
		score += 10
		penalties = append(penalties, fmt.Sprintf("Some special chars: %d", f.SpecialChars))
	}

	// Ключевые слова — самый сильный индикатор
	switch {
	case f.SuspiciousKeywords >= 4:
		score += 40
		penalties = append(penalties, fmt.Sprintf("Many suspicious keywords: %d", f.SuspiciousKeywords))
	case f.SuspiciousKeywords >= 3:
		score += 30
		penalties = append(penalties, fmt.Sprintf("Several suspicious keywords: %d", f.SuspiciousKeywords))
	case f.SuspiciousKeywords >= 2:
		score += 20
		penalties = append(penalties, fmt.Sprintf("Some suspicious keywords: %d", f.SuspiciousKeywords))
	case f.SuspiciousKeywords >= 1:
		score += 10
		penalties = append(penalties, fmt.Sprintf("One suspicious keyword: %d", f.SuspiciousKeywords))
	}

	if !f.HasHTTPS {
		score += 20
		penalties = append(penalties, "No HTTPS encryption")
	}

	// Поддомены: 2-3 уровня — норма для легитимных сайтов
	switch {
	case f.NumSubdomains > 6:
		score += 20
		penalties = append(penalties, fmt.Sprintf("Excessive subdomains: %d", f.NumSubdomains))
	case f.NumSubdomains > 4:
		score += 10
		penalties = append(penalties, fmt.Sprintf("Many subdomains: %d", f.NumSubdomains))
	}

	// IP-литерал вместо домена
	hostNoPort := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostNoPort = h
	}
	if net.ParseIP(hostNoPort) != nil {
		score += 25
		penalties = append(penalties, "IP address used instead of domain")
	}

	lower := strings.ToLower(rawURL)
	for _, tld := range suspiciousTLDs {
		if strings.Contains(lower, tld) {
			score += 15
			penalties = append(penalties, "Suspicious TLD")
			break
		}
	}

	// Гомографы: любой символ за пределами ASCII
	for _, c := range rawURL {
		if c > 127 {
			score += 15
			penalties = append(penalties, "Non-ASCII characters detected")
			break
		}
	}

	risk := score
	if risk > 100 {
		risk = 100
	}

	var label domain.ScanLabel
	var confidence float64
	switch {
	case risk >= 70:
		label = domain.LabelPhishing
		confidence = minF(95.0, float64(risk))
	case risk >= 50:
		// Средний риск: оставляем Safe, но с пониженной уверенностью
		label = domain.LabelSafe
		confidence = minF(70.0, float64(100-risk))
	default:
		label = domain.LabelSafe
		confidence = minF(95.0, float64(100-risk+10))
	}

	if len(penalties) > 0 {
		s.logger.Debug("rule penalties applied",
			zap.String("url", rawURL),
			zap.Strings("penalties", penalties),
			zap.Int("risk", risk))
	}

	return label, confidence, risk, penalties
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
