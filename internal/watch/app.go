// Package watch — терминальный дашборд поверх клиента опроса статистики.
package watch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xela07ax/phishguard-console/internal/poller"
	"github.com/xela07ax/phishguard-console/internal/ui"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type App struct {
	poller   *poller.Poller
	endpoint string
	interval time.Duration
	logger   *zap.Logger
}

func NewApp(p *poller.Poller, endpoint string, interval time.Duration, logger *zap.Logger) *App {
	return &App{
		poller:   p,
		endpoint: endpoint,
		interval: interval,
		logger:   logger,
	}
}

// Run крутит дашборд до отмены контекста или клавиши выхода.
// Не-TTY stdout деградирует до плоских строк, чтобы работал пайп.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := ui.InteractiveTerminal()

	if interactive {
		// Raw-режим ради одиночных клавиш без Enter; возврат терминала
		// в исходное состояние — строго до выхода
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("watch: raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), oldState)

		go a.readKeys(cancel)
	}

	go a.poller.Run(ctx)

	for res := range a.poller.Results() {
		if res.Failed() {
			a.logger.Error("fetch cycle failed", zap.Error(res.Err))
		}
		if interactive {
			ui.ClearScreen()
			fmt.Print(renderFrame(res, a.endpoint, a.interval))
		} else {
			fmt.Println(plainLine(res))
		}
	}

	return nil
}

// readKeys читает stdin побайтово: r — внеочередной цикл, q/Ctrl+C — выход.
func (a *App) readKeys(cancel context.CancelFunc) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case 'r', 'R':
			a.poller.Refresh()
		case 'q', 'Q', 0x03: // Ctrl+C приходит байтом в raw-режиме
			cancel()
			return
		}
	}
}
