// Package ui — палитра и возможности терминала для statswatch и urlscan.
package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Палитра
var (
	Accent  = lipgloss.Color("#6C5CE7")
	Safe    = lipgloss.Color("#00D26A")
	Threat  = lipgloss.Color("#FF3838")
	Warning = lipgloss.Color("#FFB800")
	Muted   = lipgloss.Color("#6B7280")
	Text    = lipgloss.Color("#F0F2F8")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Accent).
			Padding(0, 1)

	TileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 2).
			Align(lipgloss.Center)

	TileValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text)

	TileLabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	StatusStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ErrorBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(Threat).
				Padding(0, 1)

	SafeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Safe)

	ThreatStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Threat)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

var (
	ttyOnce sync.Once
	ttyOK   bool
)

// InteractiveTerminal сообщает, рисуем ли мы в живой терминал.
// При пайпе в файл дашборд деградирует до плоских строк без ANSI.
func InteractiveTerminal() bool {
	ttyOnce.Do(func() {
		if os.Getenv("TERM") == "dumb" {
			return
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return
		}
		ttyOK = termenv.DefaultOutput().ColorProfile() != termenv.Ascii
	})
	return ttyOK
}

// Icon возвращает unicode-вариант, если терминал его потянет
func Icon(unicode, ascii string) string {
	if InteractiveTerminal() {
		return unicode
	}
	return ascii
}

// ClearScreen чистит экран перед перерисовкой кадра дашборда
func ClearScreen() {
	out := termenv.DefaultOutput()
	out.ClearScreen()
	out.MoveCursor(1, 1)
}
