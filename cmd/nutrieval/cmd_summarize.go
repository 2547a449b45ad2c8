package main

import (
	"encoding/json"
	"fmt"

	"github.com/openfoodfacts/nutrieval/internal/metrics"
	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/openfoodfacts/nutrieval/internal/reporting"
	"github.com/spf13/cobra"
)

var summarizeFormat string

func newSummarizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <result.csv>",
		Short: "Summarize a report written by run",
		Long: `Summarize a report written by 'nutrieval run'.

Recomputes the mean scores with bootstrap confidence intervals over the
scored rows. Reports written with --detail also get the per-nutrient verdict
distribution.`,
		Args: cobra.ExactArgs(1),
		RunE: summarizeCommandE,
	}

	cmd.Flags().StringVarP(&summarizeFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func summarizeCommandE(cmd *cobra.Command, args []string) error {
	if summarizeFormat != "text" && summarizeFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be text or json", summarizeFormat)
	}

	products, err := reporting.ReadCSVFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	outcome := &models.EvaluationOutcome{
		Products: products,
		Digest:   metrics.Digest(products),
	}

	out := cmd.OutOrStdout()
	if summarizeFormat == "json" {
		data, err := json.MarshalIndent(outcome.Digest, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	d := outcome.Digest
	fmt.Fprintf(out, "Report:   %s\n", args[0])
	fmt.Fprintf(out, "Rows:     %d (%d scored, %d unscored)\n\n", d.TotalProducts, d.Scored, d.TotalProducts-d.Scored)
	fmt.Fprint(out, reporting.FormatSummaryReport(outcome))
	return nil
}
