package ratios

import (
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
	"go.uber.org/zap"
)

const (
	// EstimatedInterestRate approximates interest expense as a share of total
	// liabilities when no explicit figure exists.
	EstimatedInterestRate = 0.10
	// ShortTermConcentration is the debt composition above which short-term
	// debt is flagged.
	ShortTermConcentration = 0.6

	lowCoverage       = 2.0
	strongCoverage    = 5.0
	criticalSolvency  = "CRÍTICO - Patrimônio líquido zero ou negativo"
	operatingProfitID = "dre.lucro_operacional"
)

// Debt computes leverage and coverage ratios. Debt-to-equity and the equity
// multiplier are unbounded when equity is not positive and there is debt or
// assets to relate it to.
func (en *Engine) Debt(x *models.Extraction, table Table) (*models.DebtAnalysis, error) {
	en.logger.Info("starting debt ratios calculation")

	bal := x.BalanceSheet
	if bal.CurrentLiabilities < 0 || bal.NonCurrentLiabilities < 0 || bal.TotalAssets < 0 {
		return nil, e.New(e.KindInvalidValues, "liabilities and assets must be non-negative")
	}
	liabilities, assets, equity := bal.TotalLiabilities, bal.TotalAssets, bal.Equity
	if err := outOfRange(liabilities, assets, equity); err != nil {
		return nil, err
	}

	ratios := models.DebtRatios{
		DebtRatio:       positiveDiv(liabilities, assets),
		DebtComposition: positiveDiv(bal.CurrentLiabilities, liabilities),
	}
	switch {
	case equity > 0:
		ratios.DebtToEquity = models.Bounded(utils.Round(utils.SafeDiv(liabilities, equity), 2))
		ratios.EquityMultiplier = models.Bounded(utils.Round(utils.SafeDiv(assets, equity), 2))
	default:
		if liabilities > 0 {
			ratios.DebtToEquity = models.Unbounded()
		}
		if liabilities > 0 || assets > 0 {
			ratios.EquityMultiplier = models.Unbounded()
		}
	}

	profit := x.Income.OperatingProfit
	if x.Completeness.IsMissing(operatingProfitID) {
		profit = x.Income.NetProfit
	}
	interest := liabilities * EstimatedInterestRate
	switch {
	case interest > 0:
		ratios.InterestCoverage = models.Bounded(utils.Round(utils.SafeDiv(profit, interest), 2))
	case profit > 0:
		ratios.InterestCoverage = models.Unbounded()
	}

	leverage, _ := ratios.DebtToEquity.Value()
	multiplier, _ := ratios.EquityMultiplier.Value()
	coverage, _ := ratios.InterestCoverage.Value()
	if err := outOfRange(ratios.DebtRatio, ratios.DebtComposition, leverage, multiplier, coverage); err != nil {
		return nil, err
	}

	debtRating := table.Threshold(MetricDebtRatio)
	composition := "Normal"
	if ratios.DebtComposition > ShortTermConcentration {
		composition = "Risco de liquidez"
	}
	out := &models.DebtAnalysis{
		Ratios: ratios,
		Interpretation: map[string]string{
			"debt_ratio":        string(debtRating.Rate(ratios.DebtRatio)),
			"debt_to_equity":    DebtToEquityReading(ratios.DebtToEquity),
			"equity_multiplier": EquityMultiplierReading(ratios.EquityMultiplier),
			"debt_composition":  composition,
			"interest_coverage": CoverageReading(ratios.InterestCoverage),
		},
		Alerts:    []string{},
		Strengths: []string{},
	}

	em := ratios.EquityMultiplier
	if em.IsUnbounded() {
		out.Alerts = append(out.Alerts, "Patrimônio líquido zero ou negativo - atenção para solvência.")
	} else if em.Exceeds(table.Threshold(MetricEquityMultiplier).Adequate) {
		out.Alerts = append(out.Alerts, fmt.Sprintf("Equity multiplier elevado (%s) - alavancagem alta.", em))
	}
	if ratios.DebtRatio > debtRating.Adequate {
		out.Alerts = append(out.Alerts, fmt.Sprintf("Endividamento elevado (%.1f%% dos ativos).", ratios.DebtRatio*100))
	} else {
		out.Strengths = append(out.Strengths, "Endividamento dentro do esperado para o setor.")
	}
	if ratios.DebtComposition > ShortTermConcentration {
		out.Alerts = append(out.Alerts, fmt.Sprintf("Concentração em curto prazo (%.1f%%).", ratios.DebtComposition*100))
	}
	ic := ratios.InterestCoverage
	if v, ok := ic.Value(); ok && v < lowCoverage {
		out.Alerts = append(out.Alerts, fmt.Sprintf("Baixa cobertura de juros (%.2fx).", v))
	} else if ic.Exceeds(strongCoverage) {
		out.Strengths = append(out.Strengths, "Boa capacidade de cobertura de juros.")
	}

	en.logger.Info("debt calculation successful",
		zap.Float64("debt_ratio", ratios.DebtRatio),
		zap.Stringer("equity_multiplier", ratios.EquityMultiplier))
	en.logger.Debug("debt details", zap.Int("alerts", len(out.Alerts)), zap.Int("strengths", len(out.Strengths)))
	return out, nil
}

// DebtToEquityReading interprets debt-to-equity on fixed breakpoints.
func DebtToEquityReading(r models.Ratio) string {
	switch {
	case r.IsUnbounded():
		return criticalSolvency
	case r.Exceeds(2.0):
		return "Alto - Endividamento elevado em relação ao patrimônio"
	case r.Exceeds(1.0):
		return "Moderado - Dívida superior ao patrimônio"
	case r.Exceeds(0.5):
		return "Adequado - Dívida controlada"
	}
	return "Excelente - Baixo endividamento"
}

// EquityMultiplierReading interprets the equity multiplier on fixed breakpoints.
func EquityMultiplierReading(r models.Ratio) string {
	switch {
	case r.IsUnbounded():
		return criticalSolvency
	case r.Exceeds(3.0):
		return "Alto - Alavancagem excessiva"
	case r.Exceeds(2.5):
		return "Moderado - Alavancagem acima da média"
	case r.Exceeds(2.0):
		return "Adequado - Alavancagem dentro do esperado"
	}
	return "Excelente - Baixa alavancagem"
}

// CoverageReading interprets interest coverage.
func CoverageReading(r models.Ratio) string {
	v, ok := r.Value()
	switch {
	case !ok || v > strongCoverage:
		return "Excelente"
	case v >= lowCoverage:
		return "Adequado"
	}
	return "Risco"
}
