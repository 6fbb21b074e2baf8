package extractor

import (
	"testing"

	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/stretchr/testify/assert"
)

func TestLiquidityPoints(t *testing.T) {
	for ratio, want := range map[float64]float64{
		2.0: 3, 1.5: 3, 1.49: 2, 1.0: 2, 0.99: 1, 0.8: 1, 0.79: 0, 0: 0, UnboundedLiquidity: 3,
	} {
		assert.Equal(t, want, LiquidityPoints(ratio), "ratio %v", ratio)
	}
}

func TestSolvencyPoints(t *testing.T) {
	assert.Equal(t, 3.0, SolvencyPoints(1, 1))
	assert.Equal(t, 1.5, SolvencyPoints(1, 0))
	assert.Equal(t, 1.5, SolvencyPoints(-5, 1))
	assert.Equal(t, 0.0, SolvencyPoints(0, -1))
}

func TestHistoryPoints(t *testing.T) {
	tests := []struct {
		total, late int
		want        float64
	}{
		{0, 0, 2},
		{10, 0, 4},
		{10, 1, 2},
		{10, 2, 1},
		{10, 3, 1},
		{10, 4, 0},
	}
	for _, tt := range tests {
		h := models.PaymentHistory{TotalOperations: tt.total, LateOperations: tt.late}
		assert.Equal(t, tt.want, HistoryPoints(h), "%d/%d", tt.late, tt.total)
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, models.RiskLow, Level(10))
	assert.Equal(t, models.RiskLow, Level(7))
	assert.Equal(t, models.RiskMedium, Level(6.9))
	assert.Equal(t, models.RiskMedium, Level(4))
	assert.Equal(t, models.RiskHigh, Level(3.9))
	assert.Equal(t, models.RiskHigh, Level(0))
}

func TestScore_CriticalCap(t *testing.T) {
	derived := models.DerivedMetrics{
		CurrentRatio: 0.5,
		RedFlags:     []models.RedFlag{{Severity: models.SeverityCritical}},
	}
	sheet := models.NewBalanceSheet(50, 0, 100, 0, 500)
	income := models.IncomeStatement{NetProfit: 10}
	history := models.PaymentHistory{TotalOperations: 5}

	// uncapped: 0 + 3 + 4 = 7
	got := Score(derived, sheet, income, history)
	assert.Equal(t, MaxScoreWithCriticalFlag, got.Score)
	assert.Equal(t, models.RiskHigh, got.Level)
	assert.Contains(t, got.Rationale, "limita o score")

	derived.RedFlags[0].Severity = models.SeverityHigh
	got = Score(derived, sheet, income, history)
	assert.Equal(t, 7.0, got.Score)
	assert.Equal(t, models.RiskLow, got.Level)
	assert.NotContains(t, got.Rationale, "limita o score")
}
