package report

import (
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
)

// maxLimitingFactors bounds the reasons listed for a denial.
const maxLimitingFactors = 3

type tier struct {
	minRisk, minHealth float64
	decision           models.Decision
}

// tiers are evaluated in order; the first match wins and NEGAR catches the rest.
var tiers = []tier{
	{
		minRisk: 7.0, minHealth: 8.0,
		decision: models.Decision{
			Outcome:       models.OutcomeApprove,
			RateSpread:    utils.Ptr(2.5),
			SuggestedRate: "CDI + 2.5% a.a.",
			TermDays:      utils.Ptr(180),
			SuggestedTerm: "180 dias",
			Collateral:    "Duplicata escritural",
			Monitoring:    "semestral",
			Covenants: []string{
				"Liquidez corrente > 1.5",
				"Endividamento geral < 50%",
				"EBITDA positivo",
			},
		},
	},
	{
		minRisk: 5.0, minHealth: 6.0,
		decision: models.Decision{
			Outcome:       models.OutcomeApproveWithCaveats,
			RateSpread:    utils.Ptr(4.0),
			SuggestedRate: "CDI + 4.0% a.a.",
			TermDays:      utils.Ptr(120),
			SuggestedTerm: "120 dias",
			Collateral:    "Duplicata escritural + Aval dos sócios",
			Monitoring:    "trimestral",
			Covenants: []string{
				"Liquidez corrente > 1.2",
				"Endividamento geral < 60%",
				"Margem EBITDA > 10%",
			},
		},
	},
	{
		minRisk: 4.0, minHealth: 0,
		decision: models.Decision{
			Outcome:       models.OutcomeReview,
			SuggestedRate: "A definir após revisão",
			SuggestedTerm: "A definir",
			Collateral:    "A definir - considerar garantias reais",
			Monitoring:    "N/A",
			NextSteps: []string{
				"Solicitar demonstrações financeiras auditadas",
				"Solicitar fluxo de caixa projetado para os próximos 12 meses",
				"Solicitar contratos com principais clientes",
				"Realizar análise complementar de mercado",
				"Submeter à reunião do comitê de crédito",
			},
		},
	},
}

var deny = models.Decision{
	Outcome:       models.OutcomeDeny,
	SuggestedRate: "N/A",
	SuggestedTerm: "N/A",
	Collateral:    "N/A",
	Monitoring:    "N/A",
}

// Decide applies the decision matrix. It is total: every score pair maps to
// exactly one outcome.
func Decide(riskScore, healthScore float64) models.Decision {
	for _, t := range tiers {
		if riskScore >= t.minRisk && healthScore >= t.minHealth {
			return clone(t.decision)
		}
	}
	return clone(deny)
}

// clone keeps callers from aliasing the shared tier slices.
func clone(d models.Decision) models.Decision {
	if d.RateSpread != nil {
		d.RateSpread = utils.Ptr(*d.RateSpread)
	}
	if d.TermDays != nil {
		d.TermDays = utils.Ptr(*d.TermDays)
	}
	d.Covenants = append([]string(nil), d.Covenants...)
	d.NextSteps = append([]string(nil), d.NextSteps...)
	return d
}
