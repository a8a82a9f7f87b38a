package detect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"go.uber.org/zap"
)

func newRuleDetector(t *testing.T) *Detector {
	t.Helper()
	return NewDetector("", newRegistry(), zap.NewNop())
}

func TestDetectorBadModelPathFallsBackToRules(t *testing.T) {
	d := NewDetector(filepath.Join(t.TempDir(), "missing.json"), newRegistry(), zap.NewNop())
	assert.False(t, d.ModelLoaded())

	v, err := d.Scan(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRules, v.Source)
}

func TestDetectorTrustedShortCircuit(t *testing.T) {
	d := newRuleDetector(t)

	v, err := d.Scan(context.Background(), "https://docs.google.com/spreadsheets")
	require.NoError(t, err)

	assert.Equal(t, domain.LabelSafe, v.Label)
	assert.Equal(t, domain.SourceTrusted, v.Source)
	assert.Equal(t, 98.0, v.Confidence)
	assert.Equal(t, 2, v.RiskScore)
	assert.NotEmpty(t, v.Reasons)
}

func TestDetectorTrustedWithModelLoaded(t *testing.T) {
	d := NewDetector(writeModel(t, singleSplitModel), newRegistry(), zap.NewNop())
	require.True(t, d.ModelLoaded())

	v, err := d.Scan(context.Background(), "https://github.com/torvalds/linux")
	require.NoError(t, err)

	// модельный путь отчитывается 97/3
	assert.Equal(t, domain.SourceTrusted, v.Source)
	assert.Equal(t, 97.0, v.Confidence)
	assert.Equal(t, 3, v.RiskScore)
}

func TestDetectorModelVerdict(t *testing.T) {
	d := NewDetector(writeModel(t, singleSplitModel), newRegistry(), zap.NewNop())

	v, err := d.Scan(context.Background(), "http://no-tls-here.example.net")
	require.NoError(t, err)

	// лист +1.2 за отсутствие HTTPS: sigmoid(1.2) > 0.7
	assert.Equal(t, domain.SourceModel, v.Source)
	assert.Equal(t, domain.LabelPhishing, v.Label)
	assert.Equal(t, 76, v.RiskScore)
}

func TestDetectorSchemeDefaultsToHTTP(t *testing.T) {
	d := newRuleDetector(t)

	v, err := d.Scan(context.Background(), "example.net/path")
	require.NoError(t, err)

	// схема дописана, штраф за отсутствие HTTPS применен
	assert.Contains(t, v.Reasons, "No HTTPS encryption")
}

func TestDetectorUnparsableURL(t *testing.T) {
	d := newRuleDetector(t)

	v, err := d.Scan(context.Background(), "http://%zz/broken")
	require.NoError(t, err)

	assert.Equal(t, domain.LabelSafe, v.Label)
	assert.Equal(t, 75.0, v.Confidence)
	assert.Equal(t, 25, v.RiskScore)
	assert.Equal(t, []string{"URL could not be parsed"}, v.Reasons)
}

func TestDetectorCanceledContext(t *testing.T) {
	d := newRuleDetector(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// либо вердикт, либо ошибка — никогда обе сразу
	v, err := d.Scan(ctx, "https://example.com")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectorMemoKeepsVerdictFreshTraceID(t *testing.T) {
	d := newRuleDetector(t)

	first, err := d.Scan(context.Background(), "https://repeat.example.org")
	require.NoError(t, err)
	second, err := d.Scan(context.Background(), "https://repeat.example.org")
	require.NoError(t, err)

	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.RiskScore, second.RiskScore)
	// trace-id у каждого вызова свой, даже из кэша
	assert.NotEqual(t, first.TraceID, second.TraceID)
	assert.NotEmpty(t, second.TraceID)
}
