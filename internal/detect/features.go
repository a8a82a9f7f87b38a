package detect

import (
	"net/url"
	"strings"
)

// Порядок фиксирован: в нем признаки уходят в бустинговую модель
var featureNames = []string{
	"URL_Length", "Special_Chars", "Num_Subdomains", "Suspicious_Keywords", "Has_HTTPS",
}

// Ключевые слова фишинговых страниц. Считаем число РАЗЛИЧНЫХ слов,
// встретившихся в URL, а не все вхождения.
var suspiciousKeywords = []string{
	"login", "secure", "account", "update", "bank", "paypal", "verify",
	"confirm", "signin", "password", "suspended", "limited", "expire",
	"urgent", "immediate", "click", "here", "now", "free", "winner",
}

const specialCharSet = "@/?=_-&%#"

// Features — признаковое описание URL для скоринга.
type Features struct {
	URLLength          int
	SpecialChars       int
	NumSubdomains      int
	SuspiciousKeywords int
	HasHTTPS           bool
}

// Vector разворачивает признаки в порядке featureNames.
func (f Features) Vector() []float64 {
	https := 0.0
	if f.HasHTTPS {
		https = 1.0
	}
	return []float64{
		float64(f.URLLength),
		float64(f.SpecialChars),
		float64(f.NumSubdomains),
		float64(f.SuspiciousKeywords),
		https,
	}
}

// Map — те же признаки по именам, для сериализации в scan_history.features.
func (f Features) Map() map[string]float64 {
	v := f.Vector()
	m := make(map[string]float64, len(featureNames))
	for i, name := range featureNames {
		m[name] = v[i]
	}
	return m
}

// ExtractFeatures считает признаки по уже распарсенному URL.
func ExtractFeatures(rawURL string, parsed *url.URL) Features {
	f := Features{URLLength: len(rawURL)}

	for _, c := range rawURL {
		if strings.ContainsRune(specialCharSet, c) {
			f.SpecialChars++
		}
	}

	// Поддомены: точки в хосте минус одна, не ниже нуля.
	// URL без хоста дает 0.
	if host := parsed.Host; host != "" {
		if n := strings.Count(host, ".") - 1; n > 0 {
			f.NumSubdomains = n
		}
	}

	lower := strings.ToLower(rawURL)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			f.SuspiciousKeywords++
		}
	}

	f.HasHTTPS = parsed.Scheme == "https"
	return f
}
