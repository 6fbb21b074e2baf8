// Package extractor parses the raw duplicata document, validates it in a fixed
// fail-fast order and computes the derived metrics and the deterministic
// pre-score consumed by the ratio engine.
package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/validators"
	"github.com/gartstein/kyp/internal/pkg/utils"
	"go.uber.org/zap"
)

// Stage is the name reported on extractor failures.
const Stage = "extractor"

// UnboundedLiquidity stands for a current ratio with no current liabilities.
const UnboundedLiquidity = 999.0

// MaxScoreWithCriticalFlag caps the pre-score when any red flag is CRITICAL.
const MaxScoreWithCriticalFlag = 3.5

var (
	requiredSections  = []string{"empresa", "duplicata", "financeiro"}
	balanceFields     = []string{"ativo_circulante", "ativo_nao_circulante", "passivo_circulante", "passivo_nao_circulante", "patrimonio_liquido"}
	incomeFields      = []string{"receita_bruta", "receita_liquida", "lucro_bruto", "lucro_operacional", "lucro_liquido", "ebitda"}
	dueDateLayouts    = []string{models.DateLayout, time.RFC3339, "2006-01-02T15:04:05"}
	errCompanyMessage = "empresa section must contain cnpj, razao_social and setor"
)

// Extractor turns a raw document into a models.Extraction.
type Extractor struct {
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates an Extractor. A nil logger disables logging.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		logger:   logger.Named("extractor"),
		validate: validators.New(),
	}
}

type fields map[string]json.RawMessage

// present reports whether key exists with a non-null value.
func (f fields) present(key string) bool {
	raw, ok := f[key]
	return ok && !isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Extract validates raw and builds the extraction payload. Every failure is a
// *errors.Error tagged with the extractor stage.
func (x *Extractor) Extract(raw []byte) (*models.Extraction, error) {
	out, err := x.extract(raw)
	if err != nil {
		se, ok := e.As(err)
		if !ok {
			se = e.New(e.KindUnexpected, "unexpected error during extraction: %v", err)
		}
		se = se.WithStage(Stage)
		x.logger.Warn("extraction rejected", zap.String("kind", string(se.Kind)), zap.String("message", se.Message))
		return nil, se
	}
	x.logger.Info("extraction completed",
		zap.String("cnpj", out.Company.CNPJ),
		zap.Float64("score", out.Risk.Score),
		zap.String("level", string(out.Risk.Level)),
		zap.Int("missing_fields", len(out.Completeness.MissingFields)),
	)
	return out, nil
}

func (x *Extractor) extract(raw []byte) (out *models.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("extraction panicked", zap.Any("panic", r))
			out, err = nil, e.Recovered(r)
		}
	}()

	var doc fields
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, e.New(e.KindInvalidJSON, "failed to parse JSON: %v", err)
	}
	if doc == nil {
		return nil, e.New(e.KindInvalidJSON, "document must be a JSON object")
	}

	var missing []string
	for _, s := range requiredSections {
		if !doc.present(s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return nil, e.New(e.KindMissingSections, "required sections missing: %s", e.MissingList(missing)).WithFields(missing...)
	}

	company, err := x.company(doc["empresa"])
	if err != nil {
		return nil, err
	}
	receivable, err := receivable(doc["duplicata"])
	if err != nil {
		return nil, err
	}

	var fin fields
	if err := json.Unmarshal(doc["financeiro"], &fin); err != nil || fin == nil {
		return nil, e.New(e.KindInvalidDataType, "financeiro must be an object").WithFields("financeiro")
	}

	var completeness models.Completeness
	bal, err := numbers(fin, "balanco_patrimonial", "balanco", balanceFields, &completeness)
	if err != nil {
		return nil, err
	}
	dre, err := numbers(fin, "dre", "dre", incomeFields, &completeness)
	if err != nil {
		return nil, err
	}
	history, err := paymentHistory(fin)
	if err != nil {
		return nil, err
	}
	completeness.AllFieldsPresent = len(completeness.MissingFields) == 0
	if completeness.MissingFields == nil {
		completeness.MissingFields = []string{}
	}

	sheet := models.NewBalanceSheet(
		bal["ativo_circulante"],
		bal["ativo_nao_circulante"],
		bal["passivo_circulante"],
		bal["passivo_nao_circulante"],
		bal["patrimonio_liquido"],
	)
	income := models.IncomeStatement{
		GrossRevenue:    dre["receita_bruta"],
		NetRevenue:      dre["receita_liquida"],
		GrossProfit:     dre["lucro_bruto"],
		OperatingProfit: dre["lucro_operacional"],
		NetProfit:       dre["lucro_liquido"],
		EBITDA:          dre["ebitda"],
	}
	derived := Derive(sheet)
	if !utils.Finite(sheet.TotalAssets, sheet.TotalLiabilities, derived.WorkingCapital, derived.CurrentRatio) {
		return nil, e.New(e.KindInvalidDataType, "balanco values are out of range").WithFields("balanco")
	}

	return &models.Extraction{
		Company:      company,
		Receivable:   receivable,
		BalanceSheet: sheet,
		Income:       income,
		History:      history,
		Derived:      derived,
		Completeness: completeness,
		Risk:         Score(derived, sheet, income, history),
	}, nil
}

func (x *Extractor) company(raw json.RawMessage) (models.Company, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return models.Company{}, e.New(e.KindIncompleteEmpresaData, "%s", errCompanyMessage)
	}
	for _, k := range []string{"cnpj", "razao_social", "setor"} {
		if !f.present(k) {
			return models.Company{}, e.New(e.KindIncompleteEmpresaData, "%s", errCompanyMessage)
		}
	}

	var name, sector string
	if json.Unmarshal(f["razao_social"], &name) != nil || json.Unmarshal(f["setor"], &sector) != nil {
		return models.Company{}, e.New(e.KindIncompleteEmpresaData, "razao_social and setor must be strings")
	}

	var rawCNPJ string
	if err := json.Unmarshal(f["cnpj"], &rawCNPJ); err != nil {
		return models.Company{}, e.New(e.KindInvalidCNPJ, "CNPJ format invalid: %s", string(f["cnpj"]))
	}
	cnpj := validators.NormalizeCNPJ(rawCNPJ)
	if err := x.validate.Var(cnpj, "cnpj"); err != nil {
		return models.Company{}, e.New(e.KindInvalidCNPJ, "CNPJ format invalid: %s", rawCNPJ)
	}

	return models.Company{CNPJ: cnpj, LegalName: name, Sector: sector}, nil
}

func receivable(raw json.RawMessage) (models.Receivable, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return models.Receivable{}, e.New(e.KindIncompleteDuplicataData, "duplicata section must contain valor and vencimento")
	}

	if !f.present("vencimento") {
		return models.Receivable{}, e.New(e.KindIncompleteDuplicataData, "duplicata section must contain valor and vencimento")
	}
	due, err := parseDueDate(f["vencimento"])
	if err != nil {
		return models.Receivable{}, e.New(e.KindInvalidDateFormat, "vencimento must be ISO 8601 (YYYY-MM-DD), got: %s", string(f["vencimento"]))
	}

	if !f.present("valor") {
		return models.Receivable{}, e.New(e.KindIncompleteDuplicataData, "duplicata section must contain valor and vencimento")
	}
	var value float64
	if err := json.Unmarshal(f["valor"], &value); err != nil || value <= 0 {
		return models.Receivable{}, e.New(e.KindInvalidDuplicataValue, "duplicata valor must be positive")
	}

	return models.Receivable{Value: value, DueDate: due.Format(models.DateLayout)}, nil
}

func parseDueDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", s)
}

// numbers reads the named numeric fields of an optional sub-object. Absent or
// null fields default to 0 and are recorded as missing under prefix.
func numbers(fin fields, key, prefix string, names []string, c *models.Completeness) (map[string]float64, error) {
	var section fields
	if fin.present(key) {
		if err := json.Unmarshal(fin[key], &section); err != nil {
			return nil, e.New(e.KindInvalidDataType, "%s must be an object", key).WithFields(key)
		}
	}
	out := make(map[string]float64, len(names))
	for _, name := range names {
		if !section.present(name) {
			out[name] = 0
			c.MissingFields = append(c.MissingFields, prefix+"."+name)
			continue
		}
		var v float64
		if err := json.Unmarshal(section[name], &v); err != nil {
			return nil, e.New(e.KindInvalidDataType, "%s.%s must be a number", prefix, name).WithFields(prefix + "." + name)
		}
		out[name] = v
	}
	return out, nil
}

func paymentHistory(fin fields) (models.PaymentHistory, error) {
	var records []models.PaymentRecord
	if fin.present("historico_pagamentos") {
		if err := json.Unmarshal(fin["historico_pagamentos"], &records); err != nil {
			return models.PaymentHistory{}, e.New(e.KindInvalidDataType, "historico_pagamentos must be a list of {status, dias_atraso, valor}").
				WithFields("historico_pagamentos")
		}
	}
	return Aggregate(records), nil
}

// Aggregate summarises past operations: paid means status PAGO, late means
// any days late.
func Aggregate(records []models.PaymentRecord) models.PaymentHistory {
	h := models.PaymentHistory{TotalOperations: len(records)}
	var sum float64
	for _, r := range records {
		if r.Status == models.PaidStatus {
			h.PaidOperations++
		}
		if r.DaysLate > 0 {
			h.LateOperations++
		}
		sum += r.Value
	}
	if len(records) > 0 {
		h.AverageTicket = sum / float64(len(records))
	}
	return h
}

// CurrentRatio divides current assets by current liabilities. With no
// liabilities it is 0 for no assets and UnboundedLiquidity otherwise.
func CurrentRatio(assets, liabilities float64) float64 {
	if liabilities > 0 {
		return utils.Round(assets/liabilities, 4)
	}
	if assets == 0 {
		return 0
	}
	return UnboundedLiquidity
}

// Derive computes working capital, the current ratio and its red flag.
func Derive(sheet models.BalanceSheet) models.DerivedMetrics {
	ratio := CurrentRatio(sheet.CurrentAssets, sheet.CurrentLiabilities)
	d := models.DerivedMetrics{
		WorkingCapital: sheet.CurrentAssets - sheet.CurrentLiabilities,
		TangibleEquity: sheet.Equity,
		CurrentRatio:   ratio,
		RedFlags:       []models.RedFlag{},
	}
	if ratio < 1.0 {
		severity := models.SeverityHigh
		if ratio < 0.8 {
			severity = models.SeverityCritical
		}
		d.RedFlags = append(d.RedFlags, models.RedFlag{
			Severity:    severity,
			Category:    "LIQUIDITY",
			Description: fmt.Sprintf("Liquidez Corrente baixa (%.2f)", ratio),
			Value:       ratio,
		})
	}
	return d
}
