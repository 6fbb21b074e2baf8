package models

import "slices"

// BalanceSheet holds the balanço. Totals are derived, never read from input.
type BalanceSheet struct {
	CurrentAssets         float64 `json:"ativo_circulante"`
	NonCurrentAssets      float64 `json:"ativo_nao_circulante"`
	TotalAssets           float64 `json:"ativo_total"`
	CurrentLiabilities    float64 `json:"passivo_circulante"`
	NonCurrentLiabilities float64 `json:"passivo_nao_circulante"`
	TotalLiabilities      float64 `json:"passivo_total"`
	Equity                float64 `json:"patrimonio_liquido"`
}

// NewBalanceSheet builds a BalanceSheet and computes both totals.
func NewBalanceSheet(currentAssets, nonCurrentAssets, currentLiabilities, nonCurrentLiabilities, equity float64) BalanceSheet {
	return BalanceSheet{
		CurrentAssets:         currentAssets,
		NonCurrentAssets:      nonCurrentAssets,
		TotalAssets:           currentAssets + nonCurrentAssets,
		CurrentLiabilities:    currentLiabilities,
		NonCurrentLiabilities: nonCurrentLiabilities,
		TotalLiabilities:      currentLiabilities + nonCurrentLiabilities,
		Equity:                equity,
	}
}

// IncomeStatement holds the DRE lines used by the ratio engine.
type IncomeStatement struct {
	GrossRevenue    float64 `json:"receita_bruta"`
	NetRevenue      float64 `json:"receita_liquida"`
	GrossProfit     float64 `json:"lucro_bruto"`
	OperatingProfit float64 `json:"lucro_operacional"`
	NetProfit       float64 `json:"lucro_liquido"`
	EBITDA          float64 `json:"ebitda"`
}

// PaidStatus marks a settled past operation.
const PaidStatus = "PAGO"

// PaymentRecord is one past operation as supplied in the input document.
// DaysLate is read as any JSON number, so 0 and 0.0 are the same.
type PaymentRecord struct {
	Status   string  `json:"status"`
	DaysLate float64 `json:"dias_atraso"`
	Value    float64 `json:"valor"`
}

// PaymentHistory aggregates the past operations of the company.
type PaymentHistory struct {
	TotalOperations int     `json:"total_operacoes"`
	PaidOperations  int     `json:"operacoes_pagas"`
	LateOperations  int     `json:"atrasos"`
	AverageTicket   float64 `json:"ticket_medio"`
}

// LateRatio is the share of late operations, 0 when there is no history.
func (h PaymentHistory) LateRatio() float64 {
	if h.TotalOperations == 0 {
		return 0
	}
	return float64(h.LateOperations) / float64(h.TotalOperations)
}

// Severity grades a red flag.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// RedFlag is a deterministic warning raised during extraction or ratio analysis.
type RedFlag struct {
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Value       float64  `json:"value"`
}

// DerivedMetrics is the preliminary metrics block computed by the extractor.
type DerivedMetrics struct {
	WorkingCapital float64   `json:"capital_giro"`
	TangibleEquity float64   `json:"patrimonio_liquido_tangivel"`
	CurrentRatio   float64   `json:"liquidez_corrente"`
	RedFlags       []RedFlag `json:"calculated_red_flags"`
}

// HasCritical reports whether any red flag is CRITICAL.
func (d DerivedMetrics) HasCritical() bool {
	return slices.ContainsFunc(d.RedFlags, func(f RedFlag) bool {
		return f.Severity == SeverityCritical
	})
}

// Completeness records optional fields that were absent and defaulted to 0.
type Completeness struct {
	AllFieldsPresent bool     `json:"all_fields_present"`
	MissingFields    []string `json:"missing_fields"`
}

// IsMissing reports whether field (e.g. "dre.lucro_operacional") was defaulted.
func (c Completeness) IsMissing(field string) bool {
	return slices.Contains(c.MissingFields, field)
}

// RiskLevel is the coarse risk band of the pre-score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "BAIXO"
	RiskMedium RiskLevel = "MÉDIO"
	RiskHigh   RiskLevel = "ALTO"
)

// RiskAssessment is produced once by the extractor and never recomputed.
type RiskAssessment struct {
	Score     float64   `json:"score"`
	Level     RiskLevel `json:"level"`
	Rationale string    `json:"rationale"`
}

// Extraction is the extractor's success payload.
type Extraction struct {
	Company      Company         `json:"empresa"`
	Receivable   Receivable      `json:"duplicata"`
	BalanceSheet BalanceSheet    `json:"balanco"`
	Income       IncomeStatement `json:"dre"`
	History      PaymentHistory  `json:"historico"`
	Derived      DerivedMetrics  `json:"derived_metrics"`
	Completeness Completeness    `json:"completeness"`
	Risk         RiskAssessment  `json:"risk_analysis"`
}
