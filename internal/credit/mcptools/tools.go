// Package mcptools exposes the analysis stages as MCP tools so an agent can
// drive them one at a time or all at once.
package mcptools

import (
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Tool names.
const (
	ToolExtract   = "extract_financial_data"
	ToolRatios    = "calculate_financial_ratios"
	ToolReport    = "generate_credit_report"
	ToolDuplicata = "analyze_duplicata"
)

// NewServer returns an MCP server with every tool registered.
func NewServer(name, version string, p *pipeline.Pipeline, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	Register(s, p, logger)
	return s
}

// Register adds the analysis tools to s.
func Register(s *server.MCPServer, p *pipeline.Pipeline, logger *zap.Logger) {
	logger = logger.Named("mcp")
	s.AddTool(createExtractTool(), handleExtract(p, logger))
	s.AddTool(createRatiosTool(), handleRatios(p, logger))
	s.AddTool(createReportTool(), handleReport(p, logger))
	s.AddTool(createDuplicataTool(), handleDuplicata(p, logger))
}

func createExtractTool() mcp.Tool {
	return mcp.NewTool(ToolExtract,
		mcp.WithDescription("Validate a receivable analysis request and extract company, receivable, "+
			"balance sheet, income statement and payment history data, with derived metrics and a preliminary risk score"),
		mcp.WithString("duplicata_json",
			mcp.Required(),
			mcp.Description("Request document as JSON: empresa, duplicata and financeiro sections"),
		),
	)
}

func createRatiosTool() mcp.Tool {
	return mcp.NewTool(ToolRatios,
		mcp.WithDescription("Compute liquidity, profitability and debt ratios, compare them with the sector "+
			"benchmarks and score the financial health (0-10)"),
		mcp.WithString("extracted_data",
			mcp.Required(),
			mcp.Description("Output of extract_financial_data, as JSON"),
		),
	)
}

func createReportTool() mcp.Tool {
	return mcp.NewTool(ToolReport,
		mcp.WithDescription("Decide on the receivable (APROVAR, APROVAR_COM_RESSALVAS, REVISAR, NEGAR) "+
			"and render the markdown credit report"),
		mcp.WithString("extracted_data",
			mcp.Required(),
			mcp.Description("Output of extract_financial_data, as JSON"),
		),
		mcp.WithString("financial_ratios",
			mcp.Required(),
			mcp.Description("Output of calculate_financial_ratios, as JSON"),
		),
	)
}

func createDuplicataTool() mcp.Tool {
	return mcp.NewTool(ToolDuplicata,
		mcp.WithDescription("Run the full analysis of a receivable request: extraction, ratios and decision"),
		mcp.WithString("duplicata_json",
			mcp.Required(),
			mcp.Description("Request document as JSON: empresa, duplicata and financeiro sections"),
		),
	)
}
