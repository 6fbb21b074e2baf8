package ratios

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/gartstein/kyp/internal/credit/models"
	"gopkg.in/yaml.v3"
)

// Metric names of the benchmark table.
const (
	MetricCurrentRatio     = "current_ratio"
	MetricQuickRatio       = "quick_ratio"
	MetricROE              = "roe"
	MetricROA              = "roa"
	MetricNetMargin        = "margem_liquida"
	MetricEBITDAMargin     = "ebitda_margin"
	MetricDebtRatio        = "debt_ratio"
	MetricEquityMultiplier = "equity_multiplier"
)

var requiredMetrics = []string{
	MetricCurrentRatio, MetricQuickRatio,
	MetricROE, MetricROA, MetricNetMargin, MetricEBITDAMargin,
	MetricDebtRatio, MetricEquityMultiplier,
}

// Threshold holds the three rating cut-offs of a metric. For lower-is-better
// metrics a value rates Excelente when it is at most Excellent.
type Threshold struct {
	Excellent     float64 `yaml:"excellent"`
	Good          float64 `yaml:"good"`
	Adequate      float64 `yaml:"adequate"`
	LowerIsBetter bool    `yaml:"lower_is_better,omitempty"`
}

// Rate classifies v against t.
func (t Threshold) Rate(v float64) models.Rating {
	better := func(v, limit float64) bool { return v >= limit }
	if t.LowerIsBetter {
		better = func(v, limit float64) bool { return v <= limit }
	}
	switch {
	case better(v, t.Excellent):
		return models.RatingExcellent
	case better(v, t.Good):
		return models.RatingGood
	case better(v, t.Adequate):
		return models.RatingAdequate
	}
	return models.RatingBelow
}

func (t Threshold) ordered() bool {
	if t.LowerIsBetter {
		return t.Excellent <= t.Good && t.Good <= t.Adequate
	}
	return t.Excellent >= t.Good && t.Good >= t.Adequate
}

// Table is a complete, read-only set of thresholds.
type Table struct {
	m map[string]Threshold
}

// Threshold returns the cut-offs of metric.
func (t Table) Threshold(metric string) Threshold {
	return t.m[metric]
}

// Metrics lists the metric names in order.
func (t Table) Metrics() []string {
	return slices.Sorted(maps.Keys(t.m))
}

// Benchmarks is the immutable sector threshold configuration injected into
// the engine: a default table plus optional per-sector overrides.
type Benchmarks struct {
	defaults Table
	sectors  map[string]Table
}

// DefaultBenchmarks returns the compiled-in thresholds.
func DefaultBenchmarks() Benchmarks {
	return Benchmarks{
		defaults: Table{m: map[string]Threshold{
			MetricCurrentRatio:     {Excellent: 2.0, Good: 1.5, Adequate: 1.0},
			MetricQuickRatio:       {Excellent: 1.5, Good: 1.2, Adequate: 1.0},
			MetricROE:              {Excellent: 0.20, Good: 0.15, Adequate: 0.10},
			MetricROA:              {Excellent: 0.10, Good: 0.07, Adequate: 0.05},
			MetricNetMargin:        {Excellent: 0.20, Good: 0.15, Adequate: 0.05},
			MetricEBITDAMargin:     {Excellent: 0.25, Good: 0.15, Adequate: 0.08},
			// Debt ratio is rated lower-is-better on purpose. Older rating
			// tables scored a higher share of debt as better; do not restore that.
			MetricDebtRatio:        {Excellent: 0.35, Good: 0.50, Adequate: 0.70, LowerIsBetter: true},
			MetricEquityMultiplier: {Excellent: 1.7, Good: 2.0, Adequate: 2.5, LowerIsBetter: true},
		}},
		sectors: map[string]Table{},
	}
}

// For returns the table of sector, falling back to the defaults.
func (b Benchmarks) For(sector string) Table {
	if t, ok := b.sectors[sector]; ok {
		return t
	}
	return b.defaults
}

// Sectors lists the sectors with overrides.
func (b Benchmarks) Sectors() []string {
	return slices.Sorted(maps.Keys(b.sectors))
}

type benchmarkFile struct {
	Default map[string]Threshold            `yaml:"default"`
	Sectors map[string]map[string]Threshold `yaml:"sectors"`
}

// LoadBenchmarks reads a YAML benchmark file. Metrics absent from the file
// keep their compiled-in value; sector entries override the defaults.
func LoadBenchmarks(r io.Reader) (Benchmarks, error) {
	var f benchmarkFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return Benchmarks{}, fmt.Errorf("failed to decode benchmarks: %w", err)
	}

	base := DefaultBenchmarks().defaults
	defaults, err := merge(base, f.Default)
	if err != nil {
		return Benchmarks{}, fmt.Errorf("default benchmarks: %w", err)
	}

	out := Benchmarks{defaults: defaults, sectors: make(map[string]Table, len(f.Sectors))}
	for sector, overrides := range f.Sectors {
		t, err := merge(defaults, overrides)
		if err != nil {
			return Benchmarks{}, fmt.Errorf("benchmarks for sector %q: %w", sector, err)
		}
		out.sectors[sector] = t
	}
	return out, nil
}

func merge(base Table, overrides map[string]Threshold) (Table, error) {
	m := maps.Clone(base.m)
	for metric, th := range overrides {
		if !slices.Contains(requiredMetrics, metric) {
			return Table{}, fmt.Errorf("unknown metric %q", metric)
		}
		// the direction of a metric is fixed
		th.LowerIsBetter = m[metric].LowerIsBetter
		if !th.ordered() {
			return Table{}, fmt.Errorf("thresholds of %q are out of order", metric)
		}
		m[metric] = th
	}
	return Table{m: m}, nil
}
