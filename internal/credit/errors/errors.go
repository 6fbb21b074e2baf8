// Package errors defines the error kinds produced by the credit analysis
// stages and the sentinel errors used by the service layer.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// Kind names a failure category. Kinds are part of the wire contract.
type Kind string

const (
	// Extractor
	KindInvalidJSON             Kind = "invalid_json"
	KindMissingSections         Kind = "missing_sections"
	KindIncompleteEmpresaData   Kind = "incomplete_empresa_data"
	KindInvalidCNPJ             Kind = "invalid_cnpj"
	KindInvalidDateFormat       Kind = "invalid_date_format"
	KindIncompleteDuplicataData Kind = "incomplete_duplicata_data"
	KindInvalidDuplicataValue   Kind = "invalid_duplicata_value"
	KindInvalidDataType         Kind = "invalid_data_type"
	KindUnexpected              Kind = "unexpected_error"

	// Ratio engine
	KindInvalidInput             Kind = "invalid_input"
	KindInvalidValues            Kind = "invalid_values"
	KindInvalidLiquidityData     Kind = "invalid_liquidity_data"
	KindInvalidProfitabilityData Kind = "invalid_profitability_data"
	KindInvalidDebtData          Kind = "invalid_debt_data"
	KindLiquidityFailed          Kind = "liquidity_failed"
	KindProfitabilityFailed      Kind = "profitability_failed"
	KindDebtFailed               Kind = "debt_failed"
	KindBenchmarkFailed          Kind = "benchmark_failed"

	// Report assembler
	KindInvalidCreditAnalysis  Kind = "invalid_credit_analysis"
	KindInvalidFinancialRatios Kind = "invalid_financial_ratios"
)

// Error is a stage failure carried as data.
type Error struct {
	Kind          Kind     `json:"error"`
	Message       string   `json:"message"`
	Stage         string   `json:"stage,omitempty"`
	InvalidFields []string `json:"invalid_fields,omitempty"`
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Recovered converts a recovered panic value into an unexpected_error.
func Recovered(r any) *Error {
	return New(KindUnexpected, "unexpected error: %v", r)
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports every stage failure as invalid input so callers can branch on
// ErrInvalidInput without knowing individual kinds.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidInput
}

// WithStage returns a copy of e tagged with the stage that produced it.
func (e *Error) WithStage(stage string) *Error {
	c := *e
	c.Stage = stage
	return &c
}

// WithFields returns a copy of e listing the offending fields.
func (e *Error) WithFields(fields ...string) *Error {
	c := *e
	c.InvalidFields = append([]string(nil), fields...)
	return &c
}

// As extracts a stage Error from err.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// MissingList joins field names for messages.
func MissingList(fields []string) string {
	return strings.Join(fields, ", ")
}
