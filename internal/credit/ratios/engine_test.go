package ratios

import (
	"encoding/json"
	"errors"
	"testing"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func extraction(sector string, sheet models.BalanceSheet, income models.IncomeStatement) *models.Extraction {
	return &models.Extraction{
		Company:      models.Company{CNPJ: "12345678000190", LegalName: "ACME", Sector: sector},
		BalanceSheet: sheet,
		Income:       income,
		Completeness: models.Completeness{AllFieldsPresent: true, MissingFields: []string{}},
	}
}

func healthy() *models.Extraction {
	return extraction("Indústria",
		models.NewBalanceSheet(250000, 250000, 100000, 50000, 350000),
		models.IncomeStatement{
			GrossRevenue:    480000,
			NetRevenue:      400000,
			GrossProfit:     300000,
			OperatingProfit: 220000,
			NetProfit:       200000,
			EBITDA:          240000,
		})
}

func distressed() *models.Extraction {
	return extraction("Logística",
		models.NewBalanceSheet(70000, 30000, 100000, 50000, 0),
		models.IncomeStatement{
			GrossRevenue:    300000,
			NetRevenue:      250000,
			GrossProfit:     50000,
			OperatingProfit: 5000,
			NetProfit:       -10000,
			EBITDA:          15000,
		})
}

func newEngine(t *testing.T) *Engine {
	return New(zaptest.NewLogger(t), DefaultBenchmarks())
}

func TestCalculate_Healthy(t *testing.T) {
	out, err := newEngine(t).Calculate(healthy())
	require.NoError(t, err)

	assert.Equal(t, 2.5, out.Liquidity.Ratios.CurrentRatio)
	assert.Equal(t, 0.5714, out.Profitability.Ratios.ROE)
	assert.Equal(t, 0.3, out.Debt.Ratios.DebtRatio)
	assert.Equal(t, models.AssessmentAboveAverage, out.BenchmarkComparison.OverallAssessment)
	assert.Equal(t, 8.17, out.HealthScore)
	assert.Equal(t,
		"A empresa apresenta saúde financeira geral de 8.2/10, com liquidez classificada como Excelente. "+
			"A rentabilidade é avaliada como Excelente e a posição competitiva: "+
			"A empresa apresenta performance superior ao setor (Indústria). "+
			"Pontos de atenção: Concentração em curto prazo (66.7%).",
		out.Summary)
}

func TestCalculate_Distressed(t *testing.T) {
	out, err := newEngine(t).Calculate(distressed())
	require.NoError(t, err)

	assert.True(t, out.Debt.Ratios.DebtToEquity.IsUnbounded())
	assert.True(t, out.Debt.Ratios.EquityMultiplier.IsUnbounded())
	assert.Equal(t, models.AssessmentBelowAverage, out.BenchmarkComparison.OverallAssessment)
	assert.Equal(t, 6, out.BenchmarkComparison.MetricsSummary.BelowAverage)
	assert.Equal(t, 1.44, out.HealthScore)
	assert.Contains(t, out.Summary, "Pontos de atenção: Liquidez corrente baixa (0.70). ROE baixo (0.0%). Patrimônio líquido zero ou negativo")

	// the unbounded marker survives serialization without IEEE infinities
	body, err := json.Marshal(models.Success(out))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"debt_to_equity":"inf"`)
	assert.NotContains(t, string(body), "Inf")
}

func TestCalculate_UnknownSector(t *testing.T) {
	x := healthy()
	x.Company.Sector = ""
	out, err := newEngine(t).Calculate(x)
	require.NoError(t, err)
	assert.Equal(t, UnknownSector, out.BenchmarkComparison.Sector)
}

func TestCalculate_Failures(t *testing.T) {
	negative := healthy()
	negative.BalanceSheet.CurrentLiabilities = -1

	negativeAssets := healthy()
	negativeAssets.BalanceSheet.TotalAssets = -10

	negativeDebt := healthy()
	negativeDebt.BalanceSheet.NonCurrentLiabilities = -5

	tests := []struct {
		name  string
		input *models.Extraction
		kind  e.Kind
	}{
		{"nil extraction", nil, e.KindInvalidInput},
		{"negative current liabilities", negative, e.KindLiquidityFailed},
		{"negative total assets", negativeAssets, e.KindProfitabilityFailed},
		{"negative long-term debt", negativeDebt, e.KindDebtFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			en := New(zap.New(core), DefaultBenchmarks())

			out, err := en.Calculate(tt.input)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, e.ErrInvalidInput))

			se, ok := e.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, Stage, se.Stage)
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, string(tt.kind), logs.All()[0].ContextMap()["kind"])
		})
	}
}

func TestCalculate_NegativeValuesNamedInMessage(t *testing.T) {
	x := healthy()
	x.BalanceSheet.CurrentAssets = -100
	_, err := newEngine(t).Calculate(x)
	se, ok := e.As(err)
	require.True(t, ok)
	assert.Equal(t, e.KindLiquidityFailed, se.Kind)
	assert.Contains(t, se.Message, string(e.KindInvalidValues))
}

func TestCalculateResult_PropagatesUpstreamError(t *testing.T) {
	upstream := e.New(e.KindInvalidCNPJ, "CNPJ format invalid: 123").WithStage("extractor")
	got := newEngine(t).CalculateResult(models.Failure[models.Extraction](upstream))

	assert.Equal(t, models.StatusError, got.Status())
	assert.Equal(t, upstream, got.Err())

	ok := newEngine(t).CalculateResult(models.Success(healthy()))
	assert.Equal(t, models.StatusSuccess, ok.Status())
}

func TestDecodeExtraction(t *testing.T) {
	body, err := json.Marshal(healthy())
	require.NoError(t, err)

	x, err := DecodeExtraction(body)
	require.NoError(t, err)
	assert.Equal(t, healthy().BalanceSheet, x.BalanceSheet)

	_, err = DecodeExtraction([]byte(`{"balanco":{"ativo_circulante":10}}`))
	se, ok := e.As(err)
	require.True(t, ok)
	assert.Equal(t, e.KindLiquidityFailed, se.Kind)
	assert.Equal(t, []string{"passivo_circulante"}, se.InvalidFields)

	_, err = DecodeExtraction([]byte(`"text"`))
	se, ok = e.As(err)
	require.True(t, ok)
	assert.Equal(t, e.KindInvalidInput, se.Kind)
}

func TestCalculate_Idempotent(t *testing.T) {
	en := newEngine(t)
	a, err := en.Calculate(healthy())
	require.NoError(t, err)
	b, err := en.Calculate(healthy())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCalculate_OverflowIsRejected(t *testing.T) {
	tests := []struct {
		name  string
		sheet models.BalanceSheet
		kind  e.Kind
	}{
		{"current ratio overflows", models.NewBalanceSheet(1e308, 0, 1e-300, 0, 1), e.KindLiquidityFailed},
		{"total assets overflow", models.NewBalanceSheet(1e308, 1e308, 1, 0, 1), e.KindDebtFailed},
		{"return on equity overflows", models.NewBalanceSheet(1, 0, 1, 0, 1e-300), e.KindProfitabilityFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := extraction("Indústria", tt.sheet, models.IncomeStatement{NetProfit: 1e10, NetRevenue: 1})

			var out *models.FinancialRatios
			var err error
			require.NotPanics(t, func() {
				out, err = newEngine(t).Calculate(x)
			})
			assert.Nil(t, out)
			se, ok := e.As(err)
			require.True(t, ok, "expected a stage error, got %v", err)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Contains(t, se.Message, string(e.KindInvalidValues))
		})
	}
}

func TestCalculate_RecoversFromPanic(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	failingSink := zap.Hooks(func(entry zapcore.Entry) error {
		if entry.Message == "starting debt ratios calculation" {
			panic("log sink closed")
		}
		return nil
	})
	en := New(zap.New(core, failingSink), DefaultBenchmarks())

	out, err := en.Calculate(healthy())
	assert.Nil(t, out)
	se, ok := e.As(err)
	require.True(t, ok)
	assert.Equal(t, e.KindUnexpected, se.Kind)
	assert.Equal(t, Stage, se.Stage)
	assert.Contains(t, se.Message, "log sink closed")
	assert.Equal(t, 1, logs.FilterMessage("ratio calculation panicked").Len())
}
