// Package controller implements the service layer of the credit analysis:
// it runs the pipeline, archives decided analyses and announces outcomes.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/kyp/internal/credit/db"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/events"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"github.com/gartstein/kyp/internal/credit/report"
	"github.com/gartstein/kyp/internal/credit/validators"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the archive of decided analyses.
type Repository interface {
	SaveAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (*models.Analysis, error)
	ListAnalysesByCNPJ(ctx context.Context, cnpj string, limit int) ([]*models.Analysis, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// Runner executes the three analysis stages.
type Runner interface {
	Run(raw []byte) *pipeline.Execution
}

// AnalysisService runs analyses and serves archived ones.
type AnalysisService struct {
	runner   Runner
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewAnalysisService constructs an AnalysisService. The producer may be nil
// when no events are wanted.
func NewAnalysisService(runner Runner, repo Repository, producer EventProducer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		runner:   runner,
		repo:     repo,
		producer: producer,
		logger:   logger.Named("analysis_service"),
		validate: validators.New(),
		now:      time.Now,
	}
}

// Analyze runs the pipeline on raw. A decided run is archived and announced;
// a stage failure is announced and returned as the stage's *errors.Error.
func (s *AnalysisService) Analyze(ctx context.Context, raw []byte) (*models.Analysis, error) {
	run := s.runner.Run(raw)
	rep, ok := run.Decided()
	if !ok {
		cnpj := ""
		if x, ok := run.Extraction.Value(); ok {
			cnpj = x.Company.CNPJ
		}
		s.produce(events.Rejected(ctx, cnpj, run.Err, s.now().UTC()))
		return nil, run.Err
	}

	analysis := &models.Analysis{
		ID:          uuid.New(),
		CNPJ:        rep.Company.CNPJ,
		LegalName:   rep.Company.LegalName,
		Outcome:     rep.Decision.Outcome,
		RiskScore:   rep.Risk.RiskScore,
		HealthScore: rep.Risk.HealthScore,
		Report:      rep,
		CreatedAt:   rep.Metadata.GeneratedAt,
	}
	if err := s.repo.SaveAnalysis(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	s.logger.Info("analysis stored",
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("cnpj", analysis.CNPJ),
		zap.String("decision", string(analysis.Outcome)))

	s.produce(events.Completed(ctx, analysis))
	return analysis, nil
}

func (s *AnalysisService) produce(event events.Event) {
	if s.producer == nil {
		return
	}
	go s.producer.Produce(event)
}

// GetAnalysis retrieves an archived analysis by ID.
func (s *AnalysisService) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid analysis ID", e.ErrInvalidInput)
	}
	analysis, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return analysis, nil
}

// ListByCNPJ lists the archived analyses of a company, newest first. The CNPJ
// may be given with or without punctuation.
func (s *AnalysisService) ListByCNPJ(ctx context.Context, cnpj string, limit int) ([]*models.Analysis, error) {
	normalized := validators.NormalizeCNPJ(cnpj)
	if err := s.validate.Var(normalized, "cnpj"); err != nil {
		return nil, fmt.Errorf("%w: invalid CNPJ %q", e.ErrInvalidInput, cnpj)
	}
	list, err := s.repo.ListAnalysesByCNPJ(ctx, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return list, nil
}

// RenderReport renders the archived report of an analysis.
func (s *AnalysisService) RenderReport(ctx context.Context, id uuid.UUID, format report.Format) ([]byte, error) {
	analysis, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	title := "Análise de Crédito - " + analysis.LegalName
	out, err := report.Render(analysis.Report.Markdown, title, format)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

// HandleRequest analyzes a document received from the request topic. Stage
// failures are final for the request and already announced, so they are not
// returned; infrastructure errors are, and the consumer retries the message.
func (s *AnalysisService) HandleRequest(ctx context.Context, req events.Request) error {
	_, err := s.Analyze(ctx, req.Document)
	if se, ok := e.As(err); ok {
		s.logger.Info("request rejected",
			zap.String("request_id", req.RequestID),
			zap.String("stage", se.Stage),
			zap.String("kind", string(se.Kind)))
		return nil
	}
	return err
}
