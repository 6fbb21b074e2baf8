package ratios

import (
	"fmt"
	"strings"

	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
)

// Health score weights.
const (
	LiquidityWeight     = 0.3
	ProfitabilityWeight = 0.4
	DebtWeight          = 0.3
)

// LiquiditySubscore maps the current ratio to 0-10, reaching 10 at 2.5.
func LiquiditySubscore(currentRatio float64) float64 {
	return utils.Clamp(currentRatio/2.5*10, 0, 10)
}

// ProfitabilitySubscore blends ROE (60%) and net margin (40%) on 0-10.
func ProfitabilitySubscore(roe, netMargin float64) float64 {
	return utils.Clamp(roe*10*0.6+netMargin*10*0.4, 0, 10)
}

// DebtSubscore is a step function of the debt ratio.
func DebtSubscore(debtRatio float64) float64 {
	switch {
	case debtRatio <= 0.3:
		return 10
	case debtRatio <= 0.5:
		return 8
	case debtRatio <= 0.7:
		return 5
	}
	return 2
}

// HealthScore is the weighted 0-10 financial health score, rounded to two
// places.
func HealthScore(l *models.LiquidityAnalysis, p *models.ProfitabilityAnalysis, d *models.DebtAnalysis) float64 {
	weighted := LiquiditySubscore(l.Ratios.CurrentRatio)*LiquidityWeight +
		ProfitabilitySubscore(p.Ratios.ROE, p.Ratios.NetMargin)*ProfitabilityWeight +
		DebtSubscore(d.Ratios.DebtRatio)*DebtWeight
	return utils.Round(utils.Clamp(weighted, 0, 10), 2)
}

// Summary composes the executive summary: score and liquidity, profitability
// and competitive position, then the first alert of each ratio category.
func Summary(l *models.LiquidityAnalysis, p *models.ProfitabilityAnalysis, d *models.DebtAnalysis, b *models.BenchmarkComparison, score float64) string {
	sentences := []string{
		fmt.Sprintf("A empresa apresenta saúde financeira geral de %.1f/10, com liquidez classificada como %s.",
			score, reading(l.Interpretation, "current_ratio")),
		fmt.Sprintf("A rentabilidade é avaliada como %s e a posição competitiva: %s.",
			reading(p.Interpretation, "roe"), strings.TrimSuffix(b.CompetitivePosition, ".")),
	}

	var top []string
	for _, alerts := range [][]string{l.Alerts, p.Alerts, d.Alerts} {
		if len(alerts) > 0 {
			top = append(top, alerts[0])
		}
	}
	if len(top) > 0 {
		sentences = append(sentences, "Pontos de atenção: "+strings.Join(top, " "))
	}
	return strings.Join(sentences, " ")
}

func reading(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return "N/A"
}
