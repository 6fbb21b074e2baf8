package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return structpb.NewStruct(fields)
}

// stageErrorBody is the tagged error shape shared by the HTTP answers and
// the gRPC status details.
func stageErrorBody(se *e.Error) models.Result[models.Analysis] {
	return models.Failure[models.Analysis](se)
}

// mapServiceError converts service errors into gRPC status errors. Stage
// errors become InvalidArgument and carry their tagged shape as a detail.
func mapServiceError(logger *zap.Logger, err error) error {
	if se, ok := e.As(err); ok {
		st := status.New(codes.InvalidArgument, se.Error())
		if detail, derr := toStruct(stageErrorBody(se)); derr == nil {
			if withDetail, werr := st.WithDetails(detail); werr == nil {
				st = withDetail
			}
		}
		return st.Err()
	}
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}
