// Package report applies the credit decision matrix and assembles the final
// report from the extractor and ratio engine payloads.
package report

import (
	"time"
	"unicode/utf8"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stage is the name reported on assembler failures.
const Stage = "report"

// Attention and positive point categories.
const (
	CategoryLiquidity     = "LIQUIDITY"
	CategoryProfitability = "PROFITABILITY"
	CategoryDebt          = "DEBT"
	CategoryHistory       = "PAYMENT_HISTORY"
)

var preliminary = map[models.RiskLevel]string{
	models.RiskHigh:   "NEGAR - Risco elevado",
	models.RiskMedium: "REVISAR - Análise adicional necessária",
	models.RiskLow:    "PROSSEGUIR - Perfil adequado",
}

// Assembler builds models.Report values. The clock is the only impure input.
type Assembler struct {
	logger  *zap.Logger
	now     func() time.Time
	printer *message.Printer
}

// New creates an Assembler. A nil clock uses time.Now.
func New(logger *zap.Logger, now func() time.Time) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		logger:  logger.Named("report"),
		now:     now,
		printer: message.NewPrinter(language.BrazilianPortuguese),
	}
}

// AssembleResults gates on both stage results being successful.
func (a *Assembler) AssembleResults(x models.Result[models.Extraction], r models.Result[models.FinancialRatios]) models.Result[models.Report] {
	xv, ok := x.Value()
	if !ok {
		xv = nil
	}
	rv, ok := r.Value()
	if !ok {
		rv = nil
	}
	return models.From(a.Assemble(xv, rv))
}

// Assemble decides and renders the report.
func (a *Assembler) Assemble(x *models.Extraction, r *models.FinancialRatios) (rep *models.Report, err error) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("report assembly panicked", zap.Any("panic", p))
			rep, err = nil, a.fail(e.Recovered(p))
		}
	}()
	if x == nil {
		return nil, a.fail(e.New(e.KindInvalidCreditAnalysis, "credit_analysis must have success status"))
	}
	if r == nil {
		return nil, a.fail(e.New(e.KindInvalidFinancialRatios, "financial_ratios must have success status"))
	}

	rep = &models.Report{
		Company:    x.Company,
		Receivable: x.Receivable,
		Risk: models.RiskSummary{
			RiskLevel:                 x.Risk.Level,
			RiskScore:                 x.Risk.Score,
			HealthScore:               r.HealthScore,
			PreliminaryRecommendation: preliminary[x.Risk.Level],
			CriticalNotes:             criticalNotes(x),
			Summary:                   r.Summary,
		},
		AttentionPoints: attentionPoints(x, r),
		PositivePoints:  positivePoints(x, r),
		Liquidity:       a.liquidityTable(&r.Liquidity),
		Profitability:   a.profitabilityTable(&r.Profitability, &r.BenchmarkComparison),
		Debt:            a.debtTable(&r.Debt),
		Benchmark:       r.BenchmarkComparison,
		Decision:        Decide(x.Risk.Score, r.HealthScore),
	}
	if rep.Decision.Outcome == models.OutcomeDeny {
		for _, p := range rep.AttentionPoints {
			if len(rep.Decision.LimitingFactors) == maxLimitingFactors {
				break
			}
			rep.Decision.LimitingFactors = append(rep.Decision.LimitingFactors, p.Description)
		}
	}

	generatedAt := a.now().UTC().Truncate(time.Second)
	rep.Markdown = a.markdown(rep, generatedAt)

	sections, err := CountSections(rep.Markdown)
	if err != nil {
		return nil, a.fail(e.New(e.KindUnexpected, "failed to inspect report: %v", err))
	}
	rep.Metadata = models.ReportMetadata{
		GeneratedAt:   generatedAt,
		ReportLength:  utf8.RuneCountInString(rep.Markdown),
		Sections:      sections,
		Company:       x.Company.LegalName,
		CNPJ:          x.Company.CNPJ,
		ReceivableVal: x.Receivable.Value,
	}

	a.logger.Info("report generated",
		zap.String("cnpj", x.Company.CNPJ),
		zap.String("decision", string(rep.Decision.Outcome)),
		zap.Int("report_length", rep.Metadata.ReportLength))
	return rep, nil
}

func (a *Assembler) fail(se *e.Error) error {
	se = se.WithStage(Stage)
	a.logger.Error("report assembly failed", zap.String("kind", string(se.Kind)), zap.String("message", se.Message))
	return se
}

func criticalNotes(x *models.Extraction) string {
	notes := x.Risk.Rationale
	if missing := x.Completeness.MissingFields; len(missing) > 0 {
		notes += " Campos ausentes tratados como zero: " + e.MissingList(missing) + "."
	}
	return notes
}

func attentionPoints(x *models.Extraction, r *models.FinancialRatios) []models.AttentionPoint {
	out := []models.AttentionPoint{}
	for _, f := range x.Derived.RedFlags {
		out = append(out, models.AttentionPoint{
			Marker:      SeverityMarker(f.Severity),
			Severity:    f.Severity,
			Category:    f.Category,
			Description: f.Description,
		})
	}
	for _, group := range []struct {
		category string
		alerts   []string
	}{
		{CategoryLiquidity, r.Liquidity.Alerts},
		{CategoryProfitability, r.Profitability.Alerts},
		{CategoryDebt, r.Debt.Alerts},
	} {
		for _, alert := range group.alerts {
			out = append(out, models.AttentionPoint{
				Marker:      SeverityMarker(models.SeverityMedium),
				Severity:    models.SeverityMedium,
				Category:    group.category,
				Description: alert,
			})
		}
	}
	return out
}

func positivePoints(x *models.Extraction, r *models.FinancialRatios) []models.PositivePoint {
	out := []models.PositivePoint{}
	for _, group := range []struct {
		category  string
		strengths []string
	}{
		{CategoryLiquidity, r.Liquidity.Strengths},
		{CategoryProfitability, r.Profitability.Strengths},
		{CategoryDebt, r.Debt.Strengths},
	} {
		for _, s := range group.strengths {
			out = append(out, models.PositivePoint{Marker: positiveMarker, Category: group.category, Description: s})
		}
	}
	if h := x.History; h.TotalOperations > 0 && h.LateOperations == 0 {
		out = append(out, models.PositivePoint{
			Marker:      positiveMarker,
			Category:    CategoryHistory,
			Description: "Histórico de pagamentos sem atrasos.",
		})
	}
	return out
}
