package ratios

import (
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
	"go.uber.org/zap"
)

// LowROE is the return on equity under which an alert is raised.
const LowROE = 0.10

// Profitability computes ROE, ROA and the three margins over net revenue.
// Each ratio is 0 when its denominator is not positive.
func (en *Engine) Profitability(x *models.Extraction, table Table) (*models.ProfitabilityAnalysis, error) {
	en.logger.Info("starting profitability ratios calculation")

	dre, bal := x.Income, x.BalanceSheet
	if bal.TotalAssets < 0 {
		return nil, e.New(e.KindInvalidValues, "total assets must be non-negative (ativo_total=%.2f)", bal.TotalAssets)
	}

	ratios := models.ProfitabilityRatios{
		ROE:          positiveDiv(dre.NetProfit, bal.Equity),
		ROA:          positiveDiv(dre.NetProfit, bal.TotalAssets),
		GrossMargin:  positiveDiv(dre.GrossProfit, dre.NetRevenue),
		NetMargin:    positiveDiv(dre.NetProfit, dre.NetRevenue),
		EBITDAMargin: positiveDiv(dre.EBITDA, dre.NetRevenue),
	}
	if err := outOfRange(ratios.ROE, ratios.ROA, ratios.GrossMargin, ratios.NetMargin, ratios.EBITDAMargin); err != nil {
		return nil, err
	}

	out := &models.ProfitabilityAnalysis{
		Ratios: ratios,
		Interpretation: map[string]string{
			"roe":            string(table.Threshold(MetricROE).Rate(ratios.ROE)),
			"roa":            string(table.Threshold(MetricROA).Rate(ratios.ROA)),
			"margem_liquida": string(table.Threshold(MetricNetMargin).Rate(ratios.NetMargin)),
			"ebitda_margin":  string(table.Threshold(MetricEBITDAMargin).Rate(ratios.EBITDAMargin)),
		},
		Alerts:    []string{},
		Strengths: []string{},
	}

	if ratios.ROE < LowROE {
		out.Alerts = append(out.Alerts, fmt.Sprintf("ROE baixo (%.1f%%).", ratios.ROE*100))
	} else if ratios.ROE >= table.Threshold(MetricROE).Excellent {
		out.Strengths = append(out.Strengths, fmt.Sprintf("ROE forte (%.1f%%).", ratios.ROE*100))
	}
	if ratios.NetMargin <= 0 {
		out.Alerts = append(out.Alerts, "Margem líquida negativa ou zero.")
	}
	if ratios.EBITDAMargin >= table.Threshold(MetricEBITDAMargin).Excellent {
		out.Strengths = append(out.Strengths, fmt.Sprintf("EBITDA margin forte (%.1f%%).", ratios.EBITDAMargin*100))
	}

	en.logger.Info("profitability calculation successful",
		zap.Float64("roe", ratios.ROE),
		zap.Float64("roa", ratios.ROA))
	en.logger.Debug("profitability details", zap.Int("alerts", len(out.Alerts)), zap.Int("strengths", len(out.Strengths)))
	return out, nil
}

func positiveDiv(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return utils.SafeDiv(a, b)
}
