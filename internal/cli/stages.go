package cli

import (
	"fmt"
	"sort"

	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Validate a request document and print the extracted data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			p, err := opts.pipeline()
			if err != nil {
				return err
			}
			out := models.From(p.Extractor().Extract(raw))
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if se := out.Err(); se != nil {
				return stageFailure(se)
			}
			return nil
		},
	}
}

func newRatiosCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ratios [file|-]",
		Short: "Compute the financial ratios of an extracted document",
		Long:  "Reads the output of `kyp extract` and prints the ratio analysis and financial health score.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			p, err := opts.pipeline()
			if err != nil {
				return err
			}
			out := p.Engine().CalculateResult(models.From(ratios.DecodeExtraction(raw)))
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if se := out.Err(); se != nil {
				return stageFailure(se)
			}
			return nil
		},
	}
}

type benchmarkDoc struct {
	Default map[string]ratios.Threshold            `yaml:"default"`
	Sectors map[string]map[string]ratios.Threshold `yaml:"sectors,omitempty"`
}

func newBenchmarksCmd(opts *options) *cobra.Command {
	var sector string
	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "Print the sector benchmark thresholds in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := opts.benchmarks()
			if err != nil {
				return err
			}
			doc := benchmarkDoc{Default: thresholds(b.For(""))}
			sectors := b.Sectors()
			if sector != "" {
				sectors = []string{sector}
			}
			sort.Strings(sectors)
			for _, s := range sectors {
				if doc.Sectors == nil {
					doc.Sectors = map[string]map[string]ratios.Threshold{}
				}
				doc.Sectors[s] = thresholds(b.For(s))
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVar(&sector, "sector", "", "Only print the table that applies to this sector")
	return cmd
}

func thresholds(t ratios.Table) map[string]ratios.Threshold {
	out := make(map[string]ratios.Threshold, len(t.Metrics()))
	for _, m := range t.Metrics() {
		out[m] = t.Threshold(m)
	}
	return out
}
