package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gartstein/kyp/internal/credit/controller"
	"github.com/gartstein/kyp/internal/credit/db"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/report"
	"github.com/spf13/cobra"
)

type analyzeCmd struct {
	*options
	format string
	out    string
	store  string
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	ac := &analyzeCmd{options: opts}
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Run the full analysis of a request document",
		Long: "Extracts and validates the document, computes the financial ratios and decides on the receivable.\n" +
			"With --format json the whole pipeline run is printed; other formats render the credit report.",
		Args: cobra.MaximumNArgs(1),
		RunE: ac.run,
	}

	cmd.Flags().StringVarP(&ac.format, "format", "f", "json", "Output format: json, markdown, html or pdf")
	cmd.Flags().StringVarP(&ac.out, "out", "o", "", "Write the output to this file instead of stdout")
	cmd.Flags().StringVar(&ac.store, "store", "", "Archive decided analyses in this SQLite database")

	return cmd
}

func (ac *analyzeCmd) run(cmd *cobra.Command, args []string) error {
	var format report.Format
	if ac.format != "json" {
		f, err := report.ParseFormat(ac.format)
		if err != nil {
			return err
		}
		format = f
	}

	raw, err := readInput(cmd, args)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	p, err := ac.pipeline()
	if err != nil {
		return err
	}

	var (
		body    any
		decided *models.Report
		failure *e.Error
	)
	if ac.store != "" {
		analysis, err := ac.analyzeAndStore(cmd.Context(), p, raw)
		if se, ok := e.As(err); ok {
			failure = se
		} else if err != nil {
			return err
		} else {
			body, decided = analysis, analysis.Report
		}
	} else {
		run := p.Run(raw)
		body = run
		if rep, ok := run.Decided(); ok {
			decided = rep
		} else {
			failure = run.Err
		}
	}

	w, closeOut, err := ac.output(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	if failure != nil {
		if format != "" || body == nil {
			body = models.Failure[models.Report](failure)
		}
		if err := writeJSON(w, body); err != nil {
			return err
		}
		return stageFailure(failure)
	}

	if format == "" {
		return writeJSON(w, body)
	}
	title := "Análise de Crédito - " + decided.Company.LegalName
	rendered, err := report.Render(decided.Markdown, title, format)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = w.Write(rendered)
	return err
}

func (ac *analyzeCmd) analyzeAndStore(ctx context.Context, runner controller.Runner, raw []byte) (*models.Analysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	repo, err := db.NewSQLiteRepository(ac.store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	return controller.NewAnalysisService(runner, repo, nil, ac.logger).Analyze(ctx, raw)
}

func (ac *analyzeCmd) output(cmd *cobra.Command) (io.Writer, func(), error) {
	if ac.out == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(ac.out)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", ac.out, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
