package extractor

import (
	"fmt"
	"strings"

	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
)

// Score thresholds of the risk levels.
const (
	LowRiskScore    = 7.0
	MediumRiskScore = 4.0
)

// LiquidityPoints scores the current ratio on a 0-3 scale.
func LiquidityPoints(currentRatio float64) float64 {
	switch {
	case currentRatio >= 1.5:
		return 3
	case currentRatio >= 1.0:
		return 2
	case currentRatio >= 0.8:
		return 1
	}
	return 0
}

// SolvencyPoints awards 1.5 for positive equity and 1.5 for a net profit.
func SolvencyPoints(equity, netProfit float64) float64 {
	var p float64
	if equity > 0 {
		p += 1.5
	}
	if netProfit > 0 {
		p += 1.5
	}
	return p
}

// HistoryPoints scores the late ratio on a 0-4 scale. No history is neutral.
func HistoryPoints(h models.PaymentHistory) float64 {
	if h.TotalOperations == 0 {
		return 2
	}
	late := h.LateRatio()
	switch {
	case late == 0:
		return 4
	case late <= 0.1:
		return 2
	case late <= 0.3:
		return 1
	}
	return 0
}

// Level maps a score to its risk band.
func Level(score float64) models.RiskLevel {
	switch {
	case score >= LowRiskScore:
		return models.RiskLow
	case score >= MediumRiskScore:
		return models.RiskMedium
	}
	return models.RiskHigh
}

// Score computes the additive pre-score. A CRITICAL red flag caps it at
// MaxScoreWithCriticalFlag.
func Score(d models.DerivedMetrics, sheet models.BalanceSheet, income models.IncomeStatement, h models.PaymentHistory) models.RiskAssessment {
	liquidity := LiquidityPoints(d.CurrentRatio)
	solvency := SolvencyPoints(sheet.Equity, income.NetProfit)
	history := HistoryPoints(h)

	score := liquidity + solvency + history
	capped := d.HasCritical() && score > MaxScoreWithCriticalFlag
	if d.HasCritical() {
		score = min(score, MaxScoreWithCriticalFlag)
	}
	score = utils.Round(score, 1)

	var b strings.Builder
	fmt.Fprintf(&b, "Liquidez %.1f/3, patrimônio e lucro %.1f/3, histórico de pagamentos %.1f/4.", liquidity, solvency, history)
	if h.TotalOperations == 0 {
		b.WriteString(" Histórico insuficiente, pontuação neutra.")
	}
	if capped {
		fmt.Fprintf(&b, " Alerta crítico limita o score a %.1f.", MaxScoreWithCriticalFlag)
	}

	return models.RiskAssessment{
		Score:     score,
		Level:     Level(score),
		Rationale: b.String(),
	}
}
