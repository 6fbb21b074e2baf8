package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/extractor"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/gartstein/kyp/internal/credit/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func clock() time.Time { return time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC) }

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	return raw
}

func newPipeline(t *testing.T) *Pipeline {
	return New(zaptest.NewLogger(t), ratios.DefaultBenchmarks(), clock)
}

func TestRun_Decisions(t *testing.T) {
	tests := []struct {
		fixture string
		want    models.Outcome
	}{
		{"healthy.json", models.OutcomeApprove},
		{"moderate.json", models.OutcomeReview},
		{"distressed.json", models.OutcomeDeny},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			run := newPipeline(t).Run(fixture(t, tt.fixture))

			assert.Equal(t, StateDecided, run.State)
			assert.Empty(t, run.FailedStage)
			assert.Nil(t, run.Err)
			assert.Equal(t, models.StatusSuccess, run.Extraction.Status())
			assert.Equal(t, models.StatusSuccess, run.Ratios.Status())

			rep, ok := run.Decided()
			require.True(t, ok)
			assert.Equal(t, tt.want, rep.Decision.Outcome)
			assert.Equal(t, 4, rep.Metadata.Sections)
		})
	}
}

func TestRun_ExtractorFailureStopsPipeline(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(zap.New(core), ratios.DefaultBenchmarks(), clock)

	run := p.Run([]byte(`{"empresa": {}}`))

	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, extractor.Stage, run.FailedStage)
	require.NotNil(t, run.Err)
	assert.Equal(t, e.KindMissingSections, run.Err.Kind)
	assert.Equal(t, []string{"duplicata", "financeiro"}, run.Err.InvalidFields)
	assert.Equal(t, run.Err, run.Extraction.Err())
	assert.Nil(t, run.Ratios)
	assert.Nil(t, run.Report)

	_, ok := run.Decided()
	assert.False(t, ok)
	stopped := logs.FilterMessage("pipeline stopped").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, "missing_sections", stopped[0].ContextMap()["kind"])
}

func TestRun_RatioFailureKeepsKind(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(fixture(t, "healthy.json"), &doc))
	// negative assets pass extraction but not the ratio engine
	doc["financeiro"].(map[string]any)["balanco_patrimonial"].(map[string]any)["ativo_circulante"] = -1
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	run := newPipeline(t).Run(raw)

	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, ratios.Stage, run.FailedStage)
	assert.Equal(t, e.KindLiquidityFailed, run.Err.Kind)
	assert.Equal(t, models.StatusSuccess, run.Extraction.Status())
	assert.Equal(t, models.StatusError, run.Ratios.Status())
	assert.Nil(t, run.Report)
}

func TestRun_Idempotent(t *testing.T) {
	p := newPipeline(t)
	raw := fixture(t, "moderate.json")

	first, err := json.Marshal(p.Run(raw))
	require.NoError(t, err)
	second, err := json.Marshal(p.Run(raw))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestRun_Concurrent(t *testing.T) {
	p := newPipeline(t)
	inputs := [][]byte{fixture(t, "healthy.json"), fixture(t, "distressed.json")}

	var wg sync.WaitGroup
	results := make([]models.Outcome, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rep, ok := p.Run(inputs[i%2]).Decided()
			if ok {
				results[i] = rep.Decision.Outcome
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		want := models.OutcomeApprove
		if i%2 == 1 {
			want = models.OutcomeDeny
		}
		assert.Equal(t, want, got)
	}
}

func TestExecution_JSON(t *testing.T) {
	run := newPipeline(t).Run([]byte(`not json`))

	body, err := json.Marshal(run)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "failed", decoded["state"])
	assert.Equal(t, "extractor", decoded["failed_stage"])
	analysis := decoded["credit_analysis"].(map[string]any)
	assert.Equal(t, "error", analysis["status"])
	assert.Equal(t, "invalid_json", analysis["error"])
	assert.NotContains(t, decoded, "financial_ratios")
}

func TestAdvance_RejectsSkippedStage(t *testing.T) {
	run := &Execution{State: StateNew}
	assert.Panics(t, func() { run.advance(StateDecided) })
	assert.Panics(t, func() { (&Execution{State: StateFailed}).advance(StateExtracted) })
	assert.NotPanics(t, func() { run.advance(StateExtracted) })
}

func TestStagesExposed(t *testing.T) {
	p := newPipeline(t)
	assert.NotNil(t, p.Extractor())
	assert.NotNil(t, p.Engine())
	assert.IsType(t, &report.Assembler{}, p.Assembler())
}

func TestRun_OverflowingBalanceFailsCleanly(t *testing.T) {
	tests := []struct {
		name    string
		balance map[string]any
	}{
		{"current ratio overflows", map[string]any{
			"ativo_circulante": 1e308, "ativo_nao_circulante": 0,
			"passivo_circulante": 1e-300, "passivo_nao_circulante": 0, "patrimonio_liquido": 1,
		}},
		{"total assets overflow", map[string]any{
			"ativo_circulante": 1e308, "ativo_nao_circulante": 1e308,
			"passivo_circulante": 1, "patrimonio_liquido": 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc map[string]any
			require.NoError(t, json.Unmarshal(fixture(t, "healthy.json"), &doc))
			doc["financeiro"].(map[string]any)["balanco_patrimonial"] = tt.balance
			raw, err := json.Marshal(doc)
			require.NoError(t, err)

			var run *Execution
			require.NotPanics(t, func() { run = newPipeline(t).Run(raw) })

			assert.Equal(t, StateFailed, run.State)
			assert.Equal(t, extractor.Stage, run.FailedStage)
			assert.Equal(t, e.KindInvalidDataType, run.Err.Kind)
			_, err = json.Marshal(run)
			assert.NoError(t, err)
		})
	}
}
