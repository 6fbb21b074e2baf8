package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gartstein/kyp/internal/config"
	"github.com/gartstein/kyp/internal/credit/mcptools"
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/mark3labs/mcp-go/server"
)

const version = "1.0.0"

func main() {
	// stdout carries the protocol; logs stay at warn on stderr
	logger, err := (&config.Config{LogLevel: "warn"}).NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	benchmarks := ratios.DefaultBenchmarks()
	if path := os.Getenv("BENCHMARKS_FILE"); path != "" {
		if benchmarks, err = config.LoadBenchmarks(path); err != nil {
			logger.Sugar().Fatalf("failed to load benchmarks: %v", err)
		}
	}

	p := pipeline.New(logger, benchmarks, time.Now)
	mcpServer := mcptools.NewServer("kyp", version, p, logger)

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Sugar().Fatalf("MCP server failed: %v", err)
	}
}
