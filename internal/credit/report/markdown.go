package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/validators"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	displayDate = "02/01/2006"
	infinity    = "∞"
)

var titleCase = cases.Title(language.BrazilianPortuguese)

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"#", `\#`, "<", `\<`, ">", `\>`, "|", `\|`, "!", `\!`,
)

// inline makes a caller supplied string safe to embed in a markdown line:
// line breaks collapse to spaces and markup characters are escaped.
func inline(s string) string {
	return inlineEscaper.Replace(strings.Join(strings.Fields(s), " "))
}

func (a *Assembler) money(v float64) string {
	return a.printer.Sprintf("R$ %.2f", v)
}

func (a *Assembler) percent(v float64) string {
	return a.printer.Sprintf("%.1f%%", v*100)
}

func (a *Assembler) decimal(v float64) string {
	return a.printer.Sprintf("%.2f", v)
}

func (a *Assembler) ratio(r models.Ratio, format func(float64) string) string {
	if v, ok := r.Value(); ok {
		return format(v)
	}
	return infinity
}

func (a *Assembler) liquidityTable(l *models.LiquidityAnalysis) models.RatioTable {
	return models.RatioTable{
		Title: "3.1 Liquidez",
		Rows: []models.RatioRow{
			{Label: "Liquidez Corrente", Value: a.decimal(l.Ratios.CurrentRatio), Interpretation: l.Interpretation["current_ratio"]},
			{Label: "Liquidez Seca", Value: a.decimal(l.Ratios.QuickRatio), Interpretation: l.Interpretation["quick_ratio"]},
			{Label: "Capital de Giro", Value: a.money(l.Ratios.WorkingCapital), Interpretation: l.Interpretation["working_capital"]},
		},
		Strengths: l.Strengths,
		Alerts:    l.Alerts,
	}
}

func (a *Assembler) profitabilityTable(p *models.ProfitabilityAnalysis, b *models.BenchmarkComparison) models.RatioTable {
	row := func(label, key string, value float64) models.RatioRow {
		r := models.RatioRow{Label: label, Value: a.percent(value), Sector: "-", Status: "-"}
		if c, ok := b.Benchmarks[key]; ok {
			r.Sector = a.percent(c.SectorAvg)
			r.Status = RatingMarker(c.Status) + " " + string(c.Status)
		}
		return r
	}
	return models.RatioTable{
		Title: "3.2 Rentabilidade",
		Rows: []models.RatioRow{
			row("ROE", "roe", p.Ratios.ROE),
			row("ROA", "roa", p.Ratios.ROA),
			row("Margem Líquida", "margem_liquida", p.Ratios.NetMargin),
			row("Margem Bruta", "margem_bruta", p.Ratios.GrossMargin),
			row("EBITDA Margin", "ebitda_margin", p.Ratios.EBITDAMargin),
		},
		Strengths: p.Strengths,
		Alerts:    p.Alerts,
	}
}

func (a *Assembler) debtTable(d *models.DebtAnalysis) models.RatioTable {
	times := func(v float64) string { return a.printer.Sprintf("%.1fx", v) }
	return models.RatioTable{
		Title: "3.3 Endividamento",
		Rows: []models.RatioRow{
			{Label: "Dívida/Patrimônio", Value: a.ratio(d.Ratios.DebtToEquity, a.decimal), Interpretation: d.Interpretation["debt_to_equity"]},
			{Label: "Multiplicador de Capital", Value: a.ratio(d.Ratios.EquityMultiplier, a.decimal), Interpretation: d.Interpretation["equity_multiplier"]},
			{Label: "Endividamento Geral", Value: a.percent(d.Ratios.DebtRatio), Interpretation: d.Interpretation["debt_ratio"]},
			{Label: "Composição Curto Prazo", Value: a.percent(d.Ratios.DebtComposition), Interpretation: d.Interpretation["debt_composition"]},
			{Label: "Cobertura de Juros", Value: a.ratio(d.Ratios.InterestCoverage, times), Interpretation: d.Interpretation["interest_coverage"]},
		},
		Strengths: d.Strengths,
		Alerts:    d.Alerts,
	}
}

// mdWriter accumulates markdown. Blocks are always separated by a blank line
// so a "---" rule never turns the previous paragraph into a heading.
type mdWriter struct {
	b strings.Builder
}

func (w *mdWriter) block(lines ...string) {
	w.b.WriteString(strings.Join(lines, "\n"))
	w.b.WriteString("\n\n")
}

func (w *mdWriter) rule() {
	w.block("---")
}

func (w *mdWriter) list(items []string) {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	w.block(lines...)
}

func (w *mdWriter) numbered(items []string) {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, it)
	}
	w.block(lines...)
}

func (w *mdWriter) table(t models.RatioTable) {
	w.block("### " + t.Title)

	benchmarked := len(t.Rows) > 0 && t.Rows[0].Status != ""
	var lines []string
	if benchmarked {
		lines = append(lines, "| Indicador | Empresa | Setor | Status |", "|-----------|---------|-------|--------|")
		for _, r := range t.Rows {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |", r.Label, r.Value, r.Sector, r.Status))
		}
	} else {
		lines = append(lines, "| Indicador | Valor | Interpretação |", "|-----------|-------|---------------|")
		for _, r := range t.Rows {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s |", r.Label, r.Value, r.Interpretation))
		}
	}
	w.block(lines...)

	if len(t.Strengths) > 0 {
		w.block("**Destaques:**")
		w.list(t.Strengths)
	}
	if len(t.Alerts) > 0 {
		w.block("**Alertas:**")
		w.list(t.Alerts)
	}
}

func (a *Assembler) markdown(rep *models.Report, at time.Time) string {
	p := a.printer
	w := &mdWriter{}
	analysisDate := at.Format(displayDate)

	w.block("# RELATÓRIO DE ANÁLISE DE CRÉDITO", "# DUPLICATA ESCRITURAL")
	w.rule()

	w.block("## 1. RESUMO EXECUTIVO")
	w.block(
		"**Empresa:** "+inline(rep.Company.LegalName)+"  ",
		"**CNPJ:** "+validators.FormatCNPJ(rep.Company.CNPJ)+"  ",
		"**Setor:** "+inline(rep.Company.Sector)+"  ",
		"**Valor da Duplicata:** "+a.money(rep.Receivable.Value)+"  ",
		"**Vencimento:** "+rep.Receivable.Due().Format(displayDate)+"  ",
		"**Data de Análise:** "+analysisDate,
	)
	w.rule()
	w.block("### Síntese da Avaliação")
	w.block(
		p.Sprintf("**Nível de Risco:** %s (Score: %.1f/10)  ", rep.Risk.RiskLevel, rep.Risk.RiskScore),
		p.Sprintf("**Saúde Financeira:** %.2f/10  ", rep.Risk.HealthScore),
		"**Recomendação Preliminar:** "+rep.Risk.PreliminaryRecommendation,
	)
	w.block(rep.Risk.Summary)
	w.rule()

	w.block("## 2. ANÁLISE DE RISCO")
	w.block(
		"**Classificação de Risco:** "+string(rep.Risk.RiskLevel)+"  ",
		p.Sprintf("**Score de Risco:** %.1f/10", rep.Risk.RiskScore),
	)
	w.block("### Pontos de Atenção")
	if len(rep.AttentionPoints) == 0 {
		w.block("Nenhum ponto de atenção crítico identificado.")
	}
	for i, f := range rep.AttentionPoints {
		w.block(fmt.Sprintf("%d. %s **%s** (%s)", i+1, f.Marker, f.Category, f.Severity), "   - "+f.Description)
	}
	w.block("### Pontos Positivos")
	if len(rep.PositivePoints) == 0 {
		w.block("Nenhum ponto positivo identificado.")
	}
	for i, pp := range rep.PositivePoints {
		w.block(fmt.Sprintf("%d. %s **%s**", i+1, pp.Marker, pp.Category), "   - "+pp.Description)
	}
	w.block("### Notas do Analista")
	w.block(rep.Risk.CriticalNotes)
	w.rule()

	w.block("## 3. INDICADORES FINANCEIROS")
	w.table(rep.Liquidity)
	w.table(rep.Profitability)
	w.table(rep.Debt)
	w.block("### 3.4 Comparação com Setor")
	overall := rep.Benchmark.OverallAssessment
	w.block(
		"**Setor:** "+inline(rep.Benchmark.Sector)+"  ",
		"**Avaliação Geral:** "+AssessmentMarker(overall)+" "+titleCase.String(strings.ReplaceAll(string(overall), "_", " ")),
	)
	w.block(inline(rep.Benchmark.CompetitivePosition))
	w.rule()

	a.recommendation(w, rep)
	w.rule()

	w.block("### Assinaturas e Aprovações")
	w.block(
		"**Analista Responsável:** Sistema KYP Credit Analysis (Automatizado)  ",
		"**Data de Geração:** "+analysisDate+"  ",
		"**Validade da Análise:** 30 dias",
	)
	w.rule()
	w.block(
		"*Relatório gerado automaticamente pelo Sistema KYP Credit Analysis*  ",
		"*Timestamp: "+at.Format(time.RFC3339)+"*  ",
		"*Documento confidencial - Uso restrito ao comitê de crédito*",
	)
	w.block("### Disclaimer")
	w.block("Este relatório foi gerado por sistema automatizado de análise de crédito a partir de dados " +
		"fornecidos pelo solicitante. A decisão final deve considerar fatores qualitativos adicionais e " +
		"estar sujeita à aprovação do comitê de crédito da instituição.")

	return strings.TrimRight(w.b.String(), "\n") + "\n"
}

func (a *Assembler) recommendation(w *mdWriter, rep *models.Report) {
	d := rep.Decision
	w.block("## 4. RECOMENDAÇÃO FINAL")
	w.block("### " + OutcomeMarker(d.Outcome) + " **DECISÃO: " + string(d.Outcome) + "**")

	switch d.Outcome {
	case models.OutcomeApprove, models.OutcomeApproveWithCaveats:
		w.block("**Valor Aprovado:** " + a.money(rep.Receivable.Value))
		w.block("### Condições Sugeridas")
		w.list([]string{
			"**Taxa de Juros:** " + d.SuggestedRate,
			"**Prazo:** " + d.SuggestedTerm,
			"**Garantias:** " + d.Collateral,
		})
		w.block("### Plano de Monitoramento")
		covenants := make([]string, len(d.Covenants))
		for i, c := range d.Covenants {
			covenants[i] = "  - " + c
		}
		if d.Outcome == models.OutcomeApprove {
			w.block(append([]string{
				"- Revisão " + d.Monitoring + " dos indicadores financeiros",
				"- Acompanhamento trimestral do fluxo de caixa",
				"- Verificação de manutenção dos covenants:",
			}, covenants...)...)
			return
		}
		lines := append([]string{
			"- **Revisão " + d.Monitoring + "** dos indicadores financeiros (OBRIGATÓRIA)",
			"- **Acompanhamento mensal** do fluxo de caixa",
			"- Verificação rigorosa de manutenção dos covenants:",
		}, covenants...)
		w.block(append(lines, "- Alertas automáticos para atrasos > 5 dias", "- Reavaliação em 90 dias")...)

	case models.OutcomeReview:
		w.block("### Pontos a Revisar")
		w.list([]string{
			"Análise detalhada do fluxo de caixa projetado para os próximos 12 meses",
			"Validação das garantias disponíveis e sua liquidez",
			"Avaliação de relacionamento bancário histórico",
			"Possibilidade de co-obrigados ou avalistas adicionais",
		})
		w.block("### Próximos Passos")
		w.numbered(d.NextSteps)
		w.block("**Decisão final em até 5 dias úteis**")

	default:
		w.block("### Justificativa da Negativa")
		w.block(a.printer.Sprintf("Com base na análise realizada, a operação apresenta **risco elevado** (Score: %.1f/10), "+
			"que não se enquadra nas políticas de crédito vigentes da instituição.", rep.Risk.RiskScore))
		if len(d.LimitingFactors) > 0 {
			w.block("Os principais fatores limitantes são:")
			w.list(d.LimitingFactors)
		}
		w.block("### Recomendação ao Cliente")
		w.numbered([]string{
			"Melhore os indicadores de liquidez e rentabilidade",
			"Reduza o nível de endividamento, especialmente de curto prazo",
			"Estabeleça histórico de pagamentos positivo por pelo menos 6 meses",
			"Considere apresentar garantias reais adicionais",
		})
		w.block("**Nova análise poderá ser solicitada após 6 meses**, desde que demonstrada evolução nos pontos acima.")
	}
}
