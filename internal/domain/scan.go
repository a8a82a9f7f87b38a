package domain

import "time"

type ScanLabel string

const (
	LabelSafe     ScanLabel = "Safe"
	LabelPhishing ScanLabel = "Phishing"
)

// Источник вердикта: какой путь движка принял решение
type VerdictSource string

const (
	SourceTrusted VerdictSource = "trusted" // домен из доверенного реестра
	SourceRules   VerdictSource = "rules"   // правиловый скоринг
	SourceModel   VerdictSource = "model"   // бустинговая модель
)

// ScanRecord — одна строка scan_history. Схема таблицы внешняя
// (ее владеет основное приложение), мы только пишем и читаем.
type ScanRecord struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	URL          string    `json:"url"`
	Label        ScanLabel `json:"label"`
	Confidence   float64   `json:"confidence"`
	RiskScore    int       `json:"risk_score"`
	FeaturesJSON string    `json:"features,omitempty"` // сериализованные признаки
	ResponseSec  float64   `json:"prediction_time"`
	ModelVersion string    `json:"model_version"`
	ScannedAt    time.Time `json:"scan_date"`
}

// ScanVerdict — результат движка до персистентности.
type ScanVerdict struct {
	URL        string
	Label      ScanLabel
	Confidence float64
	RiskScore  int
	Source     VerdictSource
	Features   map[string]float64
	Reasons    []string // сработавшие правила или причина доверия
	Elapsed    time.Duration
	TraceID    string
}

func (v *ScanVerdict) IsThreat() bool {
	return v.Label == LabelPhishing
}
