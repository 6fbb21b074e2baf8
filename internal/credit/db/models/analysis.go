// Package models contains the archive records of the credit service,
// configured to work using GORM as the ORM.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	credit "github.com/gartstein/kyp/internal/credit/models"
	"github.com/google/uuid"
)

// AnalysisRecord is a decided analysis. The scalar columns are denormalized
// from the report so they can be queried; the report itself is kept as JSON.
type AnalysisRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CNPJ            string    `gorm:"size:14;index:idx_analysis_cnpj_created,priority:1"`
	LegalName       string    `gorm:"size:255"`
	Sector          string    `gorm:"size:100"`
	ReceivableValue float64   `gorm:"check:receivable_value > 0"`
	DueDate         string    `gorm:"size:10"`
	Decision        string    `gorm:"size:32;index"`
	RiskLevel       string    `gorm:"size:16"`
	RiskScore       float64   `gorm:"check:risk_score >= 0"`
	HealthScore     float64   `gorm:"check:health_score >= 0"`
	Report          string    `gorm:"type:text"`
	Markdown        string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"index:idx_analysis_cnpj_created,priority:2"`
}

// TableName pins the table name independently of the struct name.
func (AnalysisRecord) TableName() string {
	return "analyses"
}

// NewAnalysisRecord flattens an analysis for storage.
func NewAnalysisRecord(a *credit.Analysis) (*AnalysisRecord, error) {
	if a.Report == nil {
		return nil, fmt.Errorf("analysis %s has no report", a.ID)
	}
	body, err := json.Marshal(a.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return &AnalysisRecord{
		ID:              a.ID,
		CNPJ:            a.CNPJ,
		LegalName:       a.LegalName,
		Sector:          a.Report.Company.Sector,
		ReceivableValue: a.Report.Receivable.Value,
		DueDate:         a.Report.Receivable.DueDate,
		Decision:        string(a.Outcome),
		RiskLevel:       string(a.Report.Risk.RiskLevel),
		RiskScore:       a.RiskScore,
		HealthScore:     a.HealthScore,
		Report:          string(body),
		Markdown:        a.Report.Markdown,
		CreatedAt:       a.CreatedAt,
	}, nil
}

// Analysis rebuilds the domain value.
func (r *AnalysisRecord) Analysis() (*credit.Analysis, error) {
	var rep credit.Report
	if err := json.Unmarshal([]byte(r.Report), &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report of analysis %s: %w", r.ID, err)
	}
	return &credit.Analysis{
		ID:          r.ID,
		CNPJ:        r.CNPJ,
		LegalName:   r.LegalName,
		Outcome:     credit.Outcome(r.Decision),
		RiskScore:   r.RiskScore,
		HealthScore: r.HealthScore,
		Report:      &rep,
		CreatedAt:   r.CreatedAt,
	}, nil
}
