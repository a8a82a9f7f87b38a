package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/phishguard-console/internal/domain"
)

type ScanRepo struct {
	store *Store
}

func NewScanRepo(store *Store) *ScanRepo {
	return &ScanRepo{store: store}
}

// Колонки scan_history, которые мы пишем (id выдает база)
const scanColumns = 9

// WriteBatch сохраняет пачку сканов одним multi-row INSERT.
func (r *ScanRepo) WriteBatch(ctx context.Context, records []domain.ScanRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Динамически строим плейсхолдеры для пакетной вставки
	var placeholders strings.Builder
	vals := make([]interface{}, 0, len(records)*scanColumns)

	for i, rec := range records {
		if i > 0 {
			placeholders.WriteByte(',')
		}
		placeholders.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		vals = append(vals,
			rec.UserID, rec.URL, string(rec.Label), rec.Confidence,
			rec.RiskScore, rec.FeaturesJSON, rec.ResponseSec, rec.ModelVersion, rec.ScannedAt,
		)
	}

	query := r.store.rebind(fmt.Sprintf(
		"INSERT INTO scan_history (user_id, url, label, confidence, risk_score, features, prediction_time, model_version, scan_date) VALUES %s",
		placeholders.String(),
	))

	if _, err := r.store.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("scan_repo: batch insert of %d records: %w", len(records), err)
	}
	return nil
}

// Recent возвращает последние сканы, новые первыми. Используется urlscan -tail.
func (r *ScanRepo) Recent(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	query := r.store.rebind(`
		SELECT id, user_id, url, label, confidence, risk_score, prediction_time, scan_date
		FROM scan_history
		ORDER BY scan_date DESC, id DESC
		LIMIT ?`)

	rows, err := r.store.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("scan_repo: recent query: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ScanRecord, 0, limit)
	for rows.Next() {
		var rec domain.ScanRecord
		var label string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.URL, &label,
			&rec.Confidence, &rec.RiskScore, &rec.ResponseSec, &rec.ScannedAt,
		); err != nil {
			return nil, fmt.Errorf("scan_repo: scan row: %w", err)
		}
		rec.Label = domain.ScanLabel(label)
		records = append(records, rec)
	}
	return records, rows.Err()
}
