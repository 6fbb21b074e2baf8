package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gartstein/kyp/internal/cli"
	"github.com/gartstein/kyp/internal/config"
)

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger, err := (&config.Config{LogLevel: level}).NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cli.NewRootCmd(logger).Execute(); err != nil {
		// the tagged error is already on stdout
		if !errors.Is(err, cli.ErrStageFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
}
