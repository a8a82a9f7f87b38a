package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"github.com/xela07ax/phishguard-console/internal/format"
	"github.com/xela07ax/phishguard-console/internal/poller"
	"github.com/xela07ax/phishguard-console/internal/ui"
)

type tile struct {
	label string
	value string
}

func snapshotTiles(s domain.StatsSnapshot) []tile {
	return []tile{
		{"URLs Analyzed", format.Counter(s.TotalURLs)},
		{"Users", format.Counter(s.TotalUsers)},
		{"Threats Blocked", format.Counter(s.ThreatsBlocked)},
		{"Avg Response", format.Seconds(s.AvgResponseSec)},
	}
}

// renderFrame собирает полный кадр дашборда. Отказ рисуется как красный
// баннер с причиной плюс фиксированный fallback-снимок — то же двухфазное
// поведение, что и у лендинга.
func renderFrame(res poller.Result, endpoint string, interval time.Duration) string {
	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render("PhishGuard Stats"))
	b.WriteString("\r\n\r\n")

	snap := res.Snapshot
	if res.Failed() {
		b.WriteString(ui.ErrorBannerStyle.Render(
			ui.Icon("⚠ ", "[!] ") + "stats unavailable: " + res.Err.Error()))
		b.WriteString("\r\n\r\n")
		snap = domain.FallbackSnapshot()
	}

	cells := make([]string, 0, 4)
	for _, t := range snapshotTiles(snap) {
		cells = append(cells, ui.TileStyle.Render(
			ui.TileValueStyle.Render(t.value)+"\n"+ui.TileLabelStyle.Render(t.label)))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	// lipgloss отдает \n, в raw-режиме терминалу нужен \r\n
	b.WriteString(strings.ReplaceAll(row, "\n", "\r\n"))
	b.WriteString("\r\n\r\n")

	b.WriteString(ui.StatusStyle.Render(fmt.Sprintf(
		"%s  fetched %s in %s  next tick in %s",
		endpoint,
		res.At.Format("15:04:05"),
		res.Elapsed.Round(time.Millisecond),
		interval,
	)))
	b.WriteString("\r\n")
	b.WriteString(ui.StatusStyle.Render("r refresh · q quit"))
	b.WriteString("\r\n")

	return b.String()
}

// plainLine — вывод для пайпа: одна строка на цикл, без ANSI.
func plainLine(res poller.Result) string {
	if res.Failed() {
		fb := domain.FallbackSnapshot()
		return fmt.Sprintf("%s ERROR %v | urls=%d users=%d threats=%d avg=%s",
			res.At.Format(time.RFC3339), res.Err,
			fb.TotalURLs, fb.TotalUsers, fb.ThreatsBlocked, format.Seconds(fb.AvgResponseSec))
	}
	s := res.Snapshot
	return fmt.Sprintf("%s OK urls=%s users=%s threats=%s avg=%s",
		res.At.Format(time.RFC3339),
		format.Counter(s.TotalURLs), format.Counter(s.TotalUsers),
		format.Counter(s.ThreatsBlocked), format.Seconds(s.AvgResponseSec))
}
