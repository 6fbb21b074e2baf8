package ratios

import (
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
	"go.uber.org/zap"
)

// LowLiquidity is the current ratio under which an alert is raised.
const LowLiquidity = 1.0

// Liquidity computes the current and quick ratios and the working capital.
// Inventory is not part of the input, so the quick ratio equals the current
// ratio.
func (en *Engine) Liquidity(x *models.Extraction, table Table) (*models.LiquidityAnalysis, error) {
	en.logger.Info("starting liquidity ratios calculation")

	assets, liabilities := x.BalanceSheet.CurrentAssets, x.BalanceSheet.CurrentLiabilities
	if assets < 0 || liabilities < 0 {
		return nil, e.New(e.KindInvalidValues, "assets/liabilities must be non-negative (ativo_circulante=%.2f, passivo_circulante=%.2f)", assets, liabilities)
	}

	current := utils.SafeDiv(assets, liabilities)
	ratios := models.LiquidityRatios{
		CurrentRatio:   current,
		QuickRatio:     current,
		WorkingCapital: utils.Round(assets-liabilities, 2),
	}
	if err := outOfRange(ratios.CurrentRatio, ratios.WorkingCapital); err != nil {
		return nil, err
	}

	workingCapital := "Positivo"
	if ratios.WorkingCapital < 0 {
		workingCapital = "Negativo"
	}
	out := &models.LiquidityAnalysis{
		Ratios: ratios,
		Interpretation: map[string]string{
			"current_ratio":   string(table.Threshold(MetricCurrentRatio).Rate(ratios.CurrentRatio)),
			"quick_ratio":     string(table.Threshold(MetricQuickRatio).Rate(ratios.QuickRatio)),
			"working_capital": workingCapital,
		},
		Alerts:    []string{},
		Strengths: []string{},
	}

	if ratios.CurrentRatio < LowLiquidity {
		out.Alerts = append(out.Alerts, fmt.Sprintf("Liquidez corrente baixa (%.2f).", ratios.CurrentRatio))
	}
	if ratios.CurrentRatio >= table.Threshold(MetricCurrentRatio).Excellent {
		out.Strengths = append(out.Strengths, fmt.Sprintf("Liquidez corrente excelente (%.2f).", ratios.CurrentRatio))
	}
	if ratios.WorkingCapital < 0 {
		out.Alerts = append(out.Alerts, "Capital de giro negativo.")
	}

	en.logger.Info("liquidity calculation successful",
		zap.Float64("current_ratio", ratios.CurrentRatio),
		zap.Float64("working_capital", ratios.WorkingCapital))
	en.logger.Debug("liquidity details", zap.Int("alerts", len(out.Alerts)), zap.Int("strengths", len(out.Strengths)))
	return out, nil
}
