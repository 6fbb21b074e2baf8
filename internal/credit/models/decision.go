package models

// Outcome is the final credit decision.
type Outcome string

const (
	OutcomeApprove            Outcome = "APROVAR"
	OutcomeApproveWithCaveats Outcome = "APROVAR COM RESSALVAS"
	OutcomeReview             Outcome = "REVISAR"
	OutcomeDeny               Outcome = "NEGAR"
)

// Decision is derived solely from the risk score and the health score.
type Decision struct {
	Outcome Outcome `json:"final_decision"`
	// RateSpread is the yearly spread over CDI in percent; nil when undefined.
	RateSpread    *float64 `json:"rate_spread,omitempty"`
	SuggestedRate string   `json:"suggested_rate"`
	// TermDays is nil when the term is to be defined or not applicable.
	TermDays      *int     `json:"term_days,omitempty"`
	SuggestedTerm string   `json:"suggested_term"`
	Collateral    string   `json:"collateral"`
	Monitoring    string   `json:"monitoring"`
	Covenants     []string `json:"covenants,omitempty"`
	NextSteps     []string `json:"next_steps,omitempty"`
	// LimitingFactors explains a denial; at most three entries.
	LimitingFactors []string `json:"limiting_factors,omitempty"`
}

// Approved reports whether the decision grants credit, with or without caveats.
func (d Decision) Approved() bool {
	return d.Outcome == OutcomeApprove || d.Outcome == OutcomeApproveWithCaveats
}
