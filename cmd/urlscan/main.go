package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/phishguard-console/internal/detect"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"github.com/xela07ax/phishguard-console/internal/repository/sqlstore"
	"github.com/xela07ax/phishguard-console/internal/scanlog"
	"github.com/xela07ax/phishguard-console/internal/ui"
	"go.uber.org/zap"
)

// Коды выхода: 1 — найден фишинг (удобно для скриптов), 2 — ошибка запуска
const (
	exitThreat = 1
	exitSetup  = 2
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		modelPath  = flag.String("model", "", "boosted-trees model path (overrides config)")
		record     = flag.Bool("record", false, "persist scans into the store")
		tailN      = flag.Int("tail", 0, "print newest N scan records and exit")
		jsonOut    = flag.Bool("json", false, "NDJSON output")
		quiet      = flag.Bool("quiet", false, "suppress rule reasons")
	)
	flag.Parse()

	cfg, err := infra.LoadConfigFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitSetup)
	}
	if *modelPath != "" {
		cfg.Scanner.ModelPath = *modelPath
	}

	// Вердикты идут в stdout; лог — только ошибки в stderr
	logger := infra.NewStderrLogger()
	defer logger.Sync()

	if *tailN > 0 {
		os.Exit(runTail(cfg, *tailN, *jsonOut))
	}

	urls := collectURLs(flag.Args())
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: urlscan [flags] URL [URL...]  (or URLs on stdin)")
		os.Exit(exitSetup)
	}

	// Redis нужен не только оверлею: рекордер публикует через него сигнал
	// инвалидации счетчиков после каждой записанной пачки
	rdb := openRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// Оверлей доверенных доменов — отдельный флаг конфига
	overlayRdb := rdb
	if !cfg.Scanner.RedisTrustlist {
		overlayRdb = nil
	}

	trusted := detect.NewTrustedRegistry(overlayRdb, logger)
	if overlayRdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := trusted.Init(ctx); err != nil {
			logger.Warn("trusted overlay unavailable, using built-in set only", zap.Error(err))
		}
		cancel()
	}

	detector := detect.NewDetector(cfg.Scanner.ModelPath, trusted, logger)
	modelVersion := "rules-1.0"
	if detector.ModelLoaded() {
		modelVersion = "xgboost-json"
	}

	// Персистентность включается флагом; без базы сканирование работает
	var recorder *scanlog.Recorder
	var store *sqlstore.Store
	if *record {
		store, err = sqlstore.Open(cfg.Database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store error: %v\n", err)
			os.Exit(exitSetup)
		}
		defer store.Close()

		recorder = scanlog.NewRecorder(sqlstore.NewScanRepo(store), rdb, logger)
		recorder.Start()
	}

	threatFound := false
	enc := json.NewEncoder(os.Stdout)
	ctx := context.Background()

	for _, rawURL := range urls {
		verdict, err := detector.Scan(ctx, rawURL)
		if err != nil {
			logger.Error("scan failed", zap.String("url", rawURL), zap.Error(err))
			continue
		}
		if verdict.IsThreat() {
			threatFound = true
		}

		if recorder != nil {
			recorder.Record(domain.ScanRecord{
				UserID:       cfg.Scanner.RecordUserID,
				URL:          verdict.URL,
				Label:        verdict.Label,
				Confidence:   verdict.Confidence,
				RiskScore:    verdict.RiskScore,
				FeaturesJSON: detect.MarshalFeatures(verdict.Features),
				ResponseSec:  verdict.Elapsed.Seconds(),
				ModelVersion: modelVersion,
				ScannedAt:    time.Now(),
			})
		}

		if *jsonOut {
			enc.Encode(verdictJSON(verdict))
		} else {
			printVerdict(verdict, *quiet)
		}
	}

	// Дренаж буфера до выхода: записи не теряются
	if recorder != nil {
		recorder.Stop()
	}

	if threatFound {
		if store != nil {
			store.Close() // os.Exit не исполняет defer
		}
		os.Exit(exitThreat)
	}
}

// openRedis создает клиента, когда Redis включен конфигом.
// Выключенный Redis — nil: оверлей и инвалидация тихо отключаются.
func openRedis(cfg *infra.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// collectURLs берет позиционные аргументы, а при их отсутствии — stdin построчно.
func collectURLs(args []string) []string {
	if len(args) > 0 {
		return args
	}
	var urls []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

func printVerdict(v *domain.ScanVerdict, quiet bool) {
	var badge string
	if v.IsThreat() {
		badge = ui.ThreatStyle.Render(ui.Icon("✗", "[!]") + " Phishing")
	} else {
		badge = ui.SafeStyle.Render(ui.Icon("✓", "[+]") + " Safe")
	}

	fmt.Printf("%s  %s  %s\n",
		badge,
		v.URL,
		ui.MutedStyle.Render(fmt.Sprintf("risk=%d confidence=%.1f source=%s", v.RiskScore, v.Confidence, v.Source)),
	)

	if !quiet {
		for _, reason := range v.Reasons {
			fmt.Printf("    %s\n", ui.MutedStyle.Render("- "+reason))
		}
	}
}

type scanLine struct {
	URL        string   `json:"url"`
	Label      string   `json:"label"`
	RiskScore  int      `json:"risk_score"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Reasons    []string `json:"reasons,omitempty"`
	ElapsedMs  float64  `json:"elapsed_ms"`
}

func verdictJSON(v *domain.ScanVerdict) scanLine {
	return scanLine{
		URL:        v.URL,
		Label:      string(v.Label),
		RiskScore:  v.RiskScore,
		Confidence: v.Confidence,
		Source:     string(v.Source),
		Reasons:    v.Reasons,
		ElapsedMs:  float64(v.Elapsed.Microseconds()) / 1000,
	}
}

// runTail печатает последние N записей из scan_history.
func runTail(cfg *infra.Config, n int, jsonOut bool) int {
	store, err := sqlstore.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		return exitSetup
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := sqlstore.NewScanRepo(store).Recent(ctx, n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tail error: %v\n", err)
		return exitSetup
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if jsonOut {
			enc.Encode(rec)
			continue
		}
		badge := ui.SafeStyle.Render(ui.Icon("✓", "[+]"))
		if rec.Label == domain.LabelPhishing {
			badge = ui.ThreatStyle.Render(ui.Icon("✗", "[!]"))
		}
		fmt.Printf("%s %s  %s  %s\n",
			badge,
			rec.ScannedAt.Format("2006-01-02 15:04:05"),
			truncateURL(rec.URL, 50),
			ui.MutedStyle.Render(fmt.Sprintf("%s risk=%d", rec.Label, rec.RiskScore)),
		)
	}
	return 0
}

// truncateURL режет длинные URL для таблицы, по рунам
func truncateURL(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
