package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xela07ax/phishguard-console/internal/infra"
	"github.com/xela07ax/phishguard-console/internal/poller"
	"github.com/xela07ax/phishguard-console/internal/watch"
)

func main() {
	var (
		endpoint = flag.String("endpoint", "", "stats endpoint URL (overrides config)")
		interval = flag.Duration("interval", 0, "poll interval (overrides config)")
	)
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *endpoint != "" {
		cfg.Watch.Endpoint = *endpoint
	}
	if *interval > 0 {
		cfg.Watch.Interval = *interval
	}

	// Дашборд владеет stdout — лог только об ошибках и только в stderr
	logger := infra.NewStderrLogger()
	defer logger.Sync()

	client := poller.NewClient(cfg.Watch.Endpoint, cfg.Watch.RequestTimeout)
	p := poller.New(client, cfg.Watch.Interval)
	app := watch.NewApp(p, cfg.Watch.Endpoint, cfg.Watch.Interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		// Второй сигнал — жесткий выход, если терминал завис
		<-stop
		os.Exit(1)
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("watch error: %v", err)
	}
	// Пауза, чтобы терминал успел восстановиться после raw-режима
	time.Sleep(10 * time.Millisecond)
}
