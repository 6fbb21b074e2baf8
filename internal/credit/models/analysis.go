package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is a completed pipeline run as archived by the service layer.
type Analysis struct {
	ID          uuid.UUID `json:"id"`
	CNPJ        string    `json:"cnpj"`
	LegalName   string    `json:"razao_social"`
	Outcome     Outcome   `json:"final_decision"`
	RiskScore   float64   `json:"risk_score"`
	HealthScore float64   `json:"financial_health_score"`
	Report      *Report   `json:"report"`
	CreatedAt   time.Time `json:"created_at"`
}
