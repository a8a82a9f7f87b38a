package detect

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const memoLimit = 4096

// Detector — ядро проверки URL. Порядок принятия решения:
// доверенный реестр -> модель (если загружена) -> правила.
// Параллельные проверки одного URL схлопываются через singleflight,
// повторные — отвечаются из мемо-кэша.
type Detector struct {
	trusted *TrustedRegistry
	rules   *RuleScorer
	model   *Model // nil — работаем только по правилам
	logger  *zap.Logger

	group singleflight.Group

	mu   sync.Mutex
	memo map[string]*domain.ScanVerdict
}

// NewDetector собирает движок. Отсутствующая или битая модель не фатальна:
// логируем и живем на правилах, как и задумано.
func NewDetector(modelPath string, trusted *TrustedRegistry, logger *zap.Logger) *Detector {
	logger = logger.Named("detector")

	d := &Detector{
		trusted: trusted,
		rules:   NewRuleScorer(logger),
		logger:  logger,
		memo:    make(map[string]*domain.ScanVerdict),
	}

	if modelPath != "" {
		model, err := LoadModel(modelPath)
		if err != nil {
			logger.Warn("model unavailable, using rule-based fallback",
				zap.String("path", modelPath), zap.Error(err))
		} else {
			d.model = model
			logger.Info("boosted-trees model loaded", zap.String("path", modelPath))
		}
	}

	return d
}

// ModelLoaded сообщает, работает ли движок через модель.
func (d *Detector) ModelLoaded() bool {
	return d.model != nil
}

// Scan проверяет один URL и возвращает вердикт.
func (d *Detector) Scan(ctx context.Context, rawURL string) (*domain.ScanVerdict, error) {
	if cached := d.fromMemo(rawURL); cached != nil {
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := d.group.Do(rawURL, func() (interface{}, error) {
		verdict := d.scanOnce(rawURL)
		d.toMemo(rawURL, verdict)
		return verdict, nil
	})
	if err != nil {
		return nil, err
	}

	verdict := *v.(*domain.ScanVerdict) // копия: TraceID у каждого вызова свой
	verdict.TraceID = uuid.New().String()
	return &verdict, nil
}

func (d *Detector) scanOnce(rawURL string) *domain.ScanVerdict {
	start := time.Now()

	parsed, perr := parseURL(rawURL)
	if perr != nil {
		// Неразборчивый URL: дефолтный осторожный вердикт
		d.logger.Warn("unparsable url", zap.String("url", rawURL), zap.Error(perr))
		return &domain.ScanVerdict{
			URL:        rawURL,
			Label:      domain.LabelSafe,
			Confidence: 75,
			RiskScore:  25,
			Source:     domain.SourceRules,
			Features:   Features{}.Map(),
			Reasons:    []string{"URL could not be parsed"},
			Elapsed:    time.Since(start),
		}
	}

	features := ExtractFeatures(rawURL, parsed)
	verdict := &domain.ScanVerdict{
		URL:      rawURL,
		Features: features.Map(),
	}

	// 1. Доверенный реестр — высший приоритет
	if ok, reason := d.trusted.Lookup(parsed.Host); ok {
		verdict.Label = domain.LabelSafe
		verdict.Source = domain.SourceTrusted
		verdict.Reasons = []string{reason}
		// Пути отчитываются чуть по-разному: модельный — 97/3, правиловый — 98/2
		if d.model != nil {
			verdict.Confidence, verdict.RiskScore = 97.0, 3
		} else {
			verdict.Confidence, verdict.RiskScore = 98.0, 2
		}
		verdict.Elapsed = time.Since(start)
		return verdict
	}

	// 2. Модель, если загружена
	if d.model != nil {
		if p, err := d.model.Predict(features); err == nil {
			verdict.Label, verdict.Confidence, verdict.RiskScore = MapVerdict(p)
			verdict.Source = domain.SourceModel
			verdict.Elapsed = time.Since(start)
			return verdict
		} else {
			// Ошибка инференса на одном URL не выключает модель целиком
			d.logger.Error("model inference failed, falling back to rules",
				zap.String("url", rawURL), zap.Error(err))
		}
	}

	// 3. Правила
	label, confidence, risk, reasons := d.rules.Score(rawURL, parsed.Host, features)
	verdict.Label = label
	verdict.Confidence = confidence
	verdict.RiskScore = risk
	verdict.Source = domain.SourceRules
	verdict.Reasons = reasons
	verdict.Elapsed = time.Since(start)
	return verdict
}

// parseURL нормализует вход: схема по умолчанию http, хост в нижнем регистре.
func parseURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, err
	}
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed, nil
}

func (d *Detector) fromMemo(rawURL string) *domain.ScanVerdict {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.memo[rawURL]; ok {
		copied := *v
		copied.TraceID = uuid.New().String()
		return &copied
	}
	return nil
}

func (d *Detector) toMemo(rawURL string, v *domain.ScanVerdict) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Грубая защита от распухания: переполнились — начинаем заново
	if len(d.memo) >= memoLimit {
		d.memo = make(map[string]*domain.ScanVerdict)
	}
	d.memo[rawURL] = v
}

// MarshalFeatures сериализует признаки для колонки scan_history.features.
func MarshalFeatures(features map[string]float64) string {
	raw, err := json.Marshal(features)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
