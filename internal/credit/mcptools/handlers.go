package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// handleExtract implements the extract_financial_data tool
func handleExtract(p *pipeline.Pipeline, logger *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := request.RequireString("duplicata_json")
		if err != nil || doc == "" {
			return missing("duplicata_json"), nil
		}
		out := models.From(p.Extractor().Extract([]byte(doc)))
		return respond(logger, ToolExtract, out, out.Status())
	}
}

// handleRatios implements the calculate_financial_ratios tool
func handleRatios(p *pipeline.Pipeline, logger *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("extracted_data")
		if err != nil || raw == "" {
			return missing("extracted_data"), nil
		}
		out := p.Engine().CalculateResult(decodeExtraction([]byte(raw)))
		return respond(logger, ToolRatios, out, out.Status())
	}
}

// handleReport implements the generate_credit_report tool
func handleReport(p *pipeline.Pipeline, logger *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawX, err := request.RequireString("extracted_data")
		if err != nil || rawX == "" {
			return missing("extracted_data"), nil
		}
		rawR, err := request.RequireString("financial_ratios")
		if err != nil || rawR == "" {
			return missing("financial_ratios"), nil
		}
		out := p.Assembler().AssembleResults(
			decodeResult[models.Extraction]([]byte(rawX)),
			decodeResult[models.FinancialRatios]([]byte(rawR)),
		)
		return respond(logger, ToolReport, out, out.Status())
	}
}

// handleDuplicata implements the analyze_duplicata tool
func handleDuplicata(p *pipeline.Pipeline, logger *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := request.RequireString("duplicata_json")
		if err != nil || doc == "" {
			return missing("duplicata_json"), nil
		}
		run := p.Run([]byte(doc))
		status := models.StatusSuccess
		if run.State == pipeline.StateFailed {
			status = models.StatusError
		}
		return respond(logger, ToolDuplicata, run, status)
	}
}

// decodeExtraction accepts either a tagged extractor output or a bare
// payload. A tagged failure is passed through so the engine reports it.
func decodeExtraction(raw []byte) models.Result[models.Extraction] {
	var tag struct {
		Status models.Status `json:"status"`
	}
	if err := json.Unmarshal(raw, &tag); err == nil && tag.Status == models.StatusError {
		return decodeResult[models.Extraction](raw)
	}
	return models.From(ratios.DecodeExtraction(raw))
}

// decodeResult reads a tagged stage output. Untagged objects are taken as a
// success payload; anything unreadable becomes a failed result.
func decodeResult[T any](raw []byte) models.Result[T] {
	var tag struct {
		Status models.Status `json:"status"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return models.Failure[T](e.New(e.KindInvalidJSON, "invalid JSON: %v", err))
	}
	if tag.Status == "" {
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return models.Failure[T](e.New(e.KindInvalidDataType, "%v", err))
		}
		return models.Success(v)
	}
	var out models.Result[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.Failure[T](e.New(e.KindInvalidDataType, "%v", err))
	}
	return out
}

func respond(logger *zap.Logger, tool string, v any, status models.Status) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("Failed to encode tool output", zap.String("tool", tool), zap.Error(err))
		return nil, fmt.Errorf("failed to encode %s output: %w", tool, err)
	}
	logger.Debug("tool finished", zap.String("tool", tool), zap.String("status", string(status)))
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(body)),
		},
		IsError: status == models.StatusError,
	}, nil
}

func missing(param string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Error: %s parameter is required", param)),
		},
		IsError: true,
	}
}
