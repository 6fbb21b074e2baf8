package models

import "time"

// AttentionPoint is a red flag listed in the report.
type AttentionPoint struct {
	Marker      string   `json:"marker"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

// PositivePoint is a strength listed in the report.
type PositivePoint struct {
	Marker      string `json:"marker"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// RiskSummary condenses both scores for the executive summary.
type RiskSummary struct {
	RiskLevel                 RiskLevel `json:"risk_level"`
	RiskScore                 float64   `json:"risk_score"`
	HealthScore               float64   `json:"financial_health_score"`
	PreliminaryRecommendation string    `json:"preliminary_recommendation"`
	CriticalNotes             string    `json:"critical_notes"`
	Summary                   string    `json:"summary"`
}

// RatioRow is one line of a ratio table.
type RatioRow struct {
	Label          string `json:"label"`
	Value          string `json:"value"`
	Sector         string `json:"sector,omitempty"`
	Status         string `json:"status,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`
}

// RatioTable is a rendered ratio category with its highlights.
type RatioTable struct {
	Title     string     `json:"title"`
	Rows      []RatioRow `json:"rows"`
	Strengths []string   `json:"strengths,omitempty"`
	Alerts    []string   `json:"alerts,omitempty"`
}

// ReportMetadata describes a generated report.
type ReportMetadata struct {
	GeneratedAt   time.Time `json:"generated_at"`
	ReportLength  int       `json:"report_length"`
	Sections      int       `json:"sections"`
	Company       string    `json:"empresa"`
	CNPJ          string    `json:"cnpj"`
	ReceivableVal float64   `json:"valor_duplicata"`
}

// Report is the assembler's structured output. Everything except
// Metadata.GeneratedAt is a pure function of the two stage payloads.
type Report struct {
	Company         Company             `json:"empresa"`
	Receivable      Receivable          `json:"duplicata"`
	Risk            RiskSummary         `json:"risk"`
	AttentionPoints []AttentionPoint    `json:"red_flags"`
	PositivePoints  []PositivePoint     `json:"positive_points"`
	Liquidity       RatioTable          `json:"liquidity_table"`
	Profitability   RatioTable          `json:"profitability_table"`
	Debt            RatioTable          `json:"debt_table"`
	Benchmark       BenchmarkComparison `json:"benchmark_comparison"`
	Decision        Decision            `json:"decision"`
	Markdown        string              `json:"report"`
	Metadata        ReportMetadata      `json:"metadata"`
}
