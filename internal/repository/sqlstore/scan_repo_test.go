package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/phishguard-console/internal/domain"
)

func TestWriteBatchEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, NewScanRepo(s).WriteBatch(context.Background(), nil))
}

func TestWriteBatchAndRecent(t *testing.T) {
	s := newTestStore(t)
	repo := NewScanRepo(s)

	base := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	records := []domain.ScanRecord{
		{UserID: 7, URL: "https://a.example.com", Label: domain.LabelSafe,
			Confidence: 95, RiskScore: 5, FeaturesJSON: `{"URL_Length":21}`,
			ResponseSec: 0.05, ModelVersion: "rules-1.0", ScannedAt: base},
		{UserID: 8, URL: "http://b.example.tk/login", Label: domain.LabelPhishing,
			Confidence: 85, RiskScore: 85, FeaturesJSON: `{"URL_Length":25}`,
			ResponseSec: 0.07, ModelVersion: "xgboost-2.1", ScannedAt: base.Add(time.Minute)},
		{UserID: 7, URL: "https://c.example.com", Label: domain.LabelSafe,
			Confidence: 90, RiskScore: 10, FeaturesJSON: "{}",
			ResponseSec: 0.04, ModelVersion: "rules-1.0", ScannedAt: base.Add(2 * time.Minute)},
	}
	require.NoError(t, repo.WriteBatch(context.Background(), records))

	got, err := repo.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// новые первыми, лимит соблюден
	assert.Equal(t, "https://c.example.com", got[0].URL)
	assert.Equal(t, "http://b.example.tk/login", got[1].URL)
	assert.Equal(t, domain.LabelPhishing, got[1].Label)
	assert.Equal(t, int64(8), got[1].UserID)
	assert.Equal(t, 85, got[1].RiskScore)
	assert.True(t, got[1].ScannedAt.Equal(base.Add(time.Minute)),
		"scan_date должен пережить раунд-трип: %v", got[1].ScannedAt)
}

func TestRecentOnEmptyTable(t *testing.T) {
	s := newTestStore(t)

	got, err := NewScanRepo(s).Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
