package handlers

import (
	"context"

	"github.com/gartstein/kyp/internal/credit/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CreditAnalysisHandler provides the gRPC methods of CreditAnalysisService,
// mapping requests to an AnalysisController.
type CreditAnalysisHandler struct {
	service AnalysisController
	logger  *zap.Logger
}

// NewCreditAnalysisHandler constructs a new CreditAnalysisHandler with the given service and logger.
func NewCreditAnalysisHandler(service AnalysisController, logger *zap.Logger) *CreditAnalysisHandler {
	return &CreditAnalysisHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// Analyze runs an analysis of the JSON document carried in the request.
func (h *CreditAnalysisHandler) Analyze(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "document required")
	}
	analysis, err := h.service.Analyze(ctx, []byte(req.GetValue()))
	if err != nil {
		h.logger.Warn("Analyze failed", zap.Error(err))
		return nil, mapServiceError(h.logger, err)
	}
	out, err := toStruct(analysis)
	if err != nil {
		h.logger.Error("Failed to convert analysis", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode analysis")
	}
	return out, nil
}

// GetAnalysis fetches an archived analysis by ID.
func (h *CreditAnalysisHandler) GetAnalysis(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid analysis ID")
	}
	analysis, err := h.service.GetAnalysis(ctx, id)
	if err != nil {
		return nil, mapServiceError(h.logger, err)
	}
	out, err := toStruct(analysis)
	if err != nil {
		h.logger.Error("Failed to convert analysis", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode analysis")
	}
	return out, nil
}

// RenderReport returns the markdown report of an archived analysis.
func (h *CreditAnalysisHandler) RenderReport(ctx context.Context, req *wrapperspb.StringValue) (*httpbody.HttpBody, error) {
	id, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid analysis ID")
	}
	body, err := h.service.RenderReport(ctx, id, report.FormatMarkdown)
	if err != nil {
		return nil, mapServiceError(h.logger, err)
	}
	return &httpbody.HttpBody{
		ContentType: report.FormatMarkdown.ContentType(),
		Data:        body,
	}, nil
}
