// Package ratios derives liquidity, profitability and debt ratios from an
// extraction, compares them with sector benchmarks and scores the overall
// financial health.
package ratios

import (
	"encoding/json"
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/pkg/utils"
	"go.uber.org/zap"
)

// Stage is the name reported on ratio engine failures.
const Stage = "ratios"

// UnknownSector labels comparisons of companies without a sector.
const UnknownSector = "Desconhecido"

// Engine computes models.FinancialRatios. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	logger     *zap.Logger
	benchmarks Benchmarks
}

// New creates an Engine using the given benchmark table.
func New(logger *zap.Logger, benchmarks Benchmarks) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:     logger.Named("ratios"),
		benchmarks: benchmarks,
	}
}

// Benchmarks returns the injected benchmark table.
func (en *Engine) Benchmarks() Benchmarks {
	return en.benchmarks
}

// Calculate runs liquidity, profitability, debt, benchmark comparison, scoring
// and summary in that order, stopping at the first failing sub-stage.
func (en *Engine) Calculate(x *models.Extraction) (out *models.FinancialRatios, err error) {
	defer func() {
		if r := recover(); r != nil {
			en.logger.Error("ratio calculation panicked", zap.Any("panic", r))
			out, err = nil, en.fail(e.Recovered(r))
		}
	}()
	if x == nil {
		return nil, en.fail(e.New(e.KindInvalidInput, "extracted data is required"))
	}
	sector := x.Company.Sector
	if sector == "" {
		sector = UnknownSector
	}
	table := en.benchmarks.For(sector)

	liquidity, err := en.Liquidity(x, table)
	if err != nil {
		return nil, en.fail(wrap(e.KindLiquidityFailed, err))
	}
	profitability, err := en.Profitability(x, table)
	if err != nil {
		return nil, en.fail(wrap(e.KindProfitabilityFailed, err))
	}
	debt, err := en.Debt(x, table)
	if err != nil {
		return nil, en.fail(wrap(e.KindDebtFailed, err))
	}
	benchmark, err := en.Compare(liquidity, profitability, debt, sector)
	if err != nil {
		return nil, en.fail(wrap(e.KindBenchmarkFailed, err))
	}

	score := HealthScore(liquidity, profitability, debt)
	return &models.FinancialRatios{
		Liquidity:           *liquidity,
		Profitability:       *profitability,
		Debt:                *debt,
		BenchmarkComparison: *benchmark,
		HealthScore:         score,
		Summary:             Summary(liquidity, profitability, debt, benchmark, score),
	}, nil
}

// CalculateResult runs Calculate on a tagged extractor output. A failed
// extraction is returned unchanged.
func (en *Engine) CalculateResult(in models.Result[models.Extraction]) models.Result[models.FinancialRatios] {
	x, ok := in.Value()
	if !ok {
		return models.Failure[models.FinancialRatios](in.Err())
	}
	return models.From(en.Calculate(x))
}

// DecodeExtraction parses a serialized extractor success payload, checking
// that the balance sheet carries the fields the liquidity stage needs.
func DecodeExtraction(raw []byte) (*models.Extraction, error) {
	var probe struct {
		Balance map[string]json.RawMessage `json:"balanco"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, e.New(e.KindInvalidInput, "extracted_data must be a JSON object: %v", err).WithStage(Stage)
	}
	var missing []string
	for _, k := range []string{"ativo_circulante", "passivo_circulante"} {
		if _, ok := probe.Balance[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		inner := e.New(e.KindInvalidLiquidityData, "missing required fields: %s", e.MissingList(missing)).WithFields(missing...)
		return nil, wrap(e.KindLiquidityFailed, inner).WithStage(Stage)
	}

	var x models.Extraction
	if err := json.Unmarshal(raw, &x); err != nil {
		return nil, e.New(e.KindInvalidDataType, "extracted_data has an invalid field: %v", err).WithStage(Stage)
	}
	return &x, nil
}

// outOfRange rejects a sub-stage result holding NaN or an infinity, which
// extreme but valid inputs can produce through overflow.
func outOfRange(values ...float64) error {
	if utils.Finite(values...) {
		return nil
	}
	return e.New(e.KindInvalidValues, "ratios out of range for the given balance sheet")
}

func (en *Engine) fail(se *e.Error) error {
	se = se.WithStage(Stage)
	en.logger.Error("ratio calculation failed", zap.String("kind", string(se.Kind)), zap.String("message", se.Message))
	return se
}

// wrap reports a sub-stage failure under the pipeline kind, keeping the
// original kind in the message.
func wrap(kind e.Kind, err error) *e.Error {
	if se, ok := e.As(err); ok {
		out := e.New(kind, "%s: %s", se.Kind, se.Message)
		out.InvalidFields = se.InvalidFields
		return out
	}
	return e.New(kind, "%s", fmt.Sprint(err))
}
