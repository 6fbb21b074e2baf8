package ratios

import (
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"go.uber.org/zap"
)

// DebtToAssets is the benchmark key of the debt ratio.
const DebtToAssets = "debt_to_assets"

// majority is the number of metrics in one band that decides the overall
// assessment.
const majority = 3

// Compare rates the benchmarked subset of metrics against the sector table.
// All three ratio sets are required.
func (en *Engine) Compare(l *models.LiquidityAnalysis, p *models.ProfitabilityAnalysis, d *models.DebtAnalysis, sector string) (*models.BenchmarkComparison, error) {
	en.logger.Info("starting benchmark comparison", zap.String("sector", sector))

	switch {
	case l == nil:
		return nil, e.New(e.KindInvalidLiquidityData, "liquidity data must have status success")
	case p == nil:
		return nil, e.New(e.KindInvalidProfitabilityData, "profitability data must have status success")
	case d == nil:
		return nil, e.New(e.KindInvalidDebtData, "debt data must have status success")
	}
	if sector == "" {
		sector = UnknownSector
	}
	table := en.benchmarks.For(sector)

	metrics := []struct {
		key, metric string
		value       float64
	}{
		{MetricCurrentRatio, MetricCurrentRatio, l.Ratios.CurrentRatio},
		{MetricROE, MetricROE, p.Ratios.ROE},
		{MetricROA, MetricROA, p.Ratios.ROA},
		{MetricNetMargin, MetricNetMargin, p.Ratios.NetMargin},
		{MetricEBITDAMargin, MetricEBITDAMargin, p.Ratios.EBITDAMargin},
		{DebtToAssets, MetricDebtRatio, d.Ratios.DebtRatio},
	}

	out := &models.BenchmarkComparison{
		Sector:     sector,
		Benchmarks: make(map[string]models.MetricComparison, len(metrics)),
	}
	for _, m := range metrics {
		th := table.Threshold(m.metric)
		status := th.Rate(m.value)
		out.Benchmarks[m.key] = models.MetricComparison{Company: m.value, SectorAvg: th.Good, Status: status}

		switch status {
		case models.RatingExcellent:
			out.MetricsSummary.AboveAverage++
		case models.RatingBelow:
			out.MetricsSummary.BelowAverage++
		}
	}
	s := &out.MetricsSummary
	s.TotalMetrics = len(metrics)
	s.Average = s.TotalMetrics - s.AboveAverage - s.BelowAverage

	switch {
	case s.AboveAverage >= majority:
		out.OverallAssessment = models.AssessmentAboveAverage
		out.CompetitivePosition = fmt.Sprintf("A empresa apresenta performance superior ao setor (%s).", sector)
	case s.BelowAverage >= majority:
		out.OverallAssessment = models.AssessmentBelowAverage
		out.CompetitivePosition = fmt.Sprintf("A empresa apresenta performance abaixo da média do setor (%s).", sector)
	default:
		out.OverallAssessment = models.AssessmentAverage
		out.CompetitivePosition = fmt.Sprintf("A empresa está alinhada com a média do setor (%s).", sector)
	}

	en.logger.Info("benchmark comparison successful",
		zap.String("overall_assessment", string(out.OverallAssessment)),
		zap.String("sector", sector))
	en.logger.Debug("metrics summary",
		zap.Int("above_average", s.AboveAverage),
		zap.Int("below_average", s.BelowAverage),
		zap.Int("average", s.Average))
	return out, nil
}
