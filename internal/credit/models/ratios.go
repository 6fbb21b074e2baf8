package models

// RatioSet groups one category of ratios with their reading.
type RatioSet[T any] struct {
	Ratios         T                 `json:"ratios"`
	Interpretation map[string]string `json:"interpretation"`
	Alerts         []string          `json:"alerts"`
	Strengths      []string          `json:"strengths"`
}

// LiquidityRatios: quick ratio equals current ratio since inventory is not
// supplied.
type LiquidityRatios struct {
	CurrentRatio   float64 `json:"current_ratio"`
	QuickRatio     float64 `json:"quick_ratio"`
	WorkingCapital float64 `json:"working_capital"`
}

type ProfitabilityRatios struct {
	ROE          float64 `json:"roe"`
	ROA          float64 `json:"roa"`
	GrossMargin  float64 `json:"margem_bruta"`
	NetMargin    float64 `json:"margem_liquida"`
	EBITDAMargin float64 `json:"ebitda_margin"`
}

// DebtRatios carries the leverage figures. Ratio fields may be unbounded.
type DebtRatios struct {
	DebtRatio        float64 `json:"debt_ratio"`
	DebtToEquity     Ratio   `json:"debt_to_equity"`
	EquityMultiplier Ratio   `json:"equity_multiplier"`
	DebtComposition  float64 `json:"debt_composition"`
	InterestCoverage Ratio   `json:"interest_coverage"`
}

type (
	LiquidityAnalysis     = RatioSet[LiquidityRatios]
	ProfitabilityAnalysis = RatioSet[ProfitabilityRatios]
	DebtAnalysis          = RatioSet[DebtRatios]
)

// Rating is the qualitative reading of a metric against its thresholds.
type Rating string

const (
	RatingExcellent Rating = "Excelente"
	RatingGood      Rating = "Bom"
	RatingAdequate  Rating = "Adequado"
	RatingBelow     Rating = "Abaixo do esperado"
)

// Assessment is the overall benchmark position. WellAboveAverage,
// WellBelowAverage and Critical are never produced by the comparator; they
// exist so report renderers can map every status.
type Assessment string

const (
	AssessmentWellAboveAverage Assessment = "well_above_average"
	AssessmentAboveAverage     Assessment = "above_average"
	AssessmentAverage          Assessment = "average"
	AssessmentBelowAverage     Assessment = "below_average"
	AssessmentWellBelowAverage Assessment = "well_below_average"
	AssessmentCritical         Assessment = "critical"
)

// MetricComparison compares one company metric to the sector reference.
type MetricComparison struct {
	Company   float64 `json:"company"`
	SectorAvg float64 `json:"sector_avg"`
	Status    Rating  `json:"status"`
}

type MetricsSummary struct {
	TotalMetrics int `json:"total_metrics"`
	AboveAverage int `json:"above_average"`
	BelowAverage int `json:"below_average"`
	Average      int `json:"average"`
}

// BenchmarkComparison is the sector comparison of the ratio engine.
type BenchmarkComparison struct {
	Sector              string                      `json:"sector"`
	Benchmarks          map[string]MetricComparison `json:"benchmarks"`
	OverallAssessment   Assessment                  `json:"overall_assessment"`
	CompetitivePosition string                      `json:"competitive_position"`
	MetricsSummary      MetricsSummary              `json:"metrics_summary"`
}

// FinancialRatios is the ratio engine's success payload.
type FinancialRatios struct {
	Liquidity           LiquidityAnalysis     `json:"liquidity"`
	Profitability       ProfitabilityAnalysis `json:"profitability"`
	Debt                DebtAnalysis          `json:"debt"`
	BenchmarkComparison BenchmarkComparison   `json:"benchmark_comparison"`
	HealthScore         float64               `json:"financial_health_score"`
	Summary             string                `json:"summary"`
}
