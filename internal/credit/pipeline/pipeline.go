// Package pipeline sequences the extractor, the ratio engine and the report
// assembler. Each stage runs only after its predecessor succeeded and the first
// failure ends the run with that stage's error unchanged.
package pipeline

import (
	"fmt"
	"slices"
	"time"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/extractor"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/gartstein/kyp/internal/credit/report"
	"go.uber.org/zap"
)

// State is the furthest point a run reached.
type State string

const (
	StateNew            State = "new"
	StateExtracted      State = "extracted"
	StateRatiosComputed State = "ratios_computed"
	StateDecided        State = "decided"
	StateFailed         State = "failed"
)

var transitions = map[State][]State{
	StateNew:            {StateExtracted, StateFailed},
	StateExtracted:      {StateRatiosComputed, StateFailed},
	StateRatiosComputed: {StateDecided, StateFailed},
}

// Execution records one run. Stage results are nil for stages that never ran.
type Execution struct {
	State       State                                  `json:"state"`
	FailedStage string                                 `json:"failed_stage,omitempty"`
	Err         *e.Error                               `json:"error,omitempty"`
	Extraction  *models.Result[models.Extraction]      `json:"credit_analysis,omitempty"`
	Ratios      *models.Result[models.FinancialRatios] `json:"financial_ratios,omitempty"`
	Report      *models.Result[models.Report]          `json:"report,omitempty"`
}

func (x *Execution) advance(to State) {
	if !slices.Contains(transitions[x.State], to) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", x.State, to))
	}
	x.State = to
}

func (x *Execution) fail(stage string, se *e.Error) {
	x.advance(StateFailed)
	x.FailedStage = stage
	x.Err = se
}

// Decided reports whether the run produced a report, and returns it.
func (x *Execution) Decided() (*models.Report, bool) {
	if x.State != StateDecided || x.Report == nil {
		return nil, false
	}
	return x.Report.Value()
}

// Pipeline holds the three stages. It has no per-run state and may be shared
// between goroutines.
type Pipeline struct {
	extractor *extractor.Extractor
	engine    *ratios.Engine
	assembler *report.Assembler
	logger    *zap.Logger
}

// New wires the stages with the given benchmark table and report clock.
func New(logger *zap.Logger, benchmarks ratios.Benchmarks, now func() time.Time) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extractor.New(logger),
		engine:    ratios.New(logger, benchmarks),
		assembler: report.New(logger, now),
		logger:    logger.Named("pipeline"),
	}
}

// Extractor exposes the first stage for callers that run it alone.
func (p *Pipeline) Extractor() *extractor.Extractor { return p.extractor }

// Engine exposes the ratio stage.
func (p *Pipeline) Engine() *ratios.Engine { return p.engine }

// Assembler exposes the report stage.
func (p *Pipeline) Assembler() *report.Assembler { return p.assembler }

// Run drives raw through the three stages.
func (p *Pipeline) Run(raw []byte) *Execution {
	run := &Execution{State: StateNew}

	extraction := models.From(p.extractor.Extract(raw))
	run.Extraction = &extraction
	x, ok := extraction.Value()
	if !ok {
		return p.failed(run, extractor.Stage, extraction.Err())
	}
	run.advance(StateExtracted)

	fr := p.engine.CalculateResult(extraction)
	run.Ratios = &fr
	r, ok := fr.Value()
	if !ok {
		return p.failed(run, ratios.Stage, fr.Err())
	}
	run.advance(StateRatiosComputed)

	rep := models.From(p.assembler.Assemble(x, r))
	run.Report = &rep
	decided, ok := rep.Value()
	if !ok {
		return p.failed(run, report.Stage, rep.Err())
	}
	run.advance(StateDecided)

	p.logger.Debug("pipeline decided",
		zap.String("cnpj", x.Company.CNPJ),
		zap.String("decision", string(decided.Decision.Outcome)))
	return run
}

func (p *Pipeline) failed(run *Execution, stage string, se *e.Error) *Execution {
	run.fail(stage, se)
	p.logger.Info("pipeline stopped",
		zap.String("stage", stage),
		zap.String("kind", string(se.Kind)))
	return run
}
