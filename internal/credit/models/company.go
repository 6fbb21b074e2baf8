// Package models defines the entities produced and consumed by the credit
// analysis pipeline. Every value is built once per run and never mutated by a
// later stage.
package models

import (
	"time"
)

// DateLayout is the canonical due-date layout.
const DateLayout = "2006-01-02"

// Company identifies the drawer of the receivable.
type Company struct {
	// CNPJ holds the 14 digits of the tax id with separators removed.
	CNPJ string `json:"cnpj"`
	// LegalName is the razão social.
	LegalName string `json:"razao_social"`
	// Sector is passed through to the benchmark comparison.
	Sector string `json:"setor"`
}

// Receivable is the duplicata under analysis.
type Receivable struct {
	// Value is strictly positive.
	Value float64 `json:"valor"`
	// DueDate is formatted with DateLayout.
	DueDate string `json:"vencimento"`
}

// Due parses DueDate. The extractor guarantees it is well formed.
func (r Receivable) Due() time.Time {
	t, _ := time.Parse(DateLayout, r.DueDate)
	return t
}
