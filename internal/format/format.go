// Package format содержит хелперы отображения счетчиков — те же
// сокращения, что рисует лендинг.
package format

import "fmt"

// Counter сокращает большие числа: до 1000 — как есть, дальше
// один знак после запятой с суффиксом K или M.
func Counter(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Seconds форматирует время ответа: три знака и суффикс s.
func Seconds(v float64) string {
	return fmt.Sprintf("%.3fs", v)
}
