// Package cli implements the kyp command line: one-shot analyses of request
// documents, the individual stages, and the benchmark table.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gartstein/kyp/internal/config"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrStageFailed is returned when the analysis stopped at a stage. The
// tagged error has already been written to the output.
var ErrStageFailed = errors.New("analysis failed")

type options struct {
	benchmarksFile string
	logger         *zap.Logger
	now            func() time.Time
}

// NewRootCmd builds the kyp command tree.
func NewRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &options{logger: logger, now: time.Now}
	root := &cobra.Command{
		Use:           "kyp",
		Short:         "Credit analysis of receivables (duplicatas)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.benchmarksFile, "benchmarks", os.Getenv("BENCHMARKS_FILE"),
		"YAML file with sector benchmark thresholds")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newExtractCmd(opts),
		newRatiosCmd(opts),
		newBenchmarksCmd(opts),
	)
	return root
}

func (o *options) benchmarks() (ratios.Benchmarks, error) {
	if o.benchmarksFile == "" {
		return ratios.DefaultBenchmarks(), nil
	}
	b, err := config.LoadBenchmarks(o.benchmarksFile)
	if err != nil {
		return ratios.Benchmarks{}, fmt.Errorf("failed to load benchmarks: %w", err)
	}
	return b, nil
}

func (o *options) pipeline() (*pipeline.Pipeline, error) {
	b, err := o.benchmarks()
	if err != nil {
		return nil, err
	}
	return pipeline.New(o.logger, b, o.now), nil
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// stageFailure wraps a stage error so the exit status reflects it.
func stageFailure(se *e.Error) error {
	return fmt.Errorf("%w: %w", ErrStageFailed, se)
}
