package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/openfoodfacts/nutrieval/internal/statistics"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// InterpretScore returns a plain-language label for a numeric score (0–1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretCoverage explains which share of the products could be scored.
func InterpretCoverage(scored, total int) string {
	if total == 0 {
		return "No products were evaluated."
	}
	pct := float64(scored) / float64(total) * 100
	switch {
	case scored == total:
		return fmt.Sprintf("Every product was scored (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most products were scored (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the products were scored (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few products were scored (%.0f%%)", pct)
	}
}

// FormatInterval renders a confidence interval, or "n/a" without one.
func FormatInterval(ci *statistics.ConfidenceInterval) string {
	if ci == nil || ci.NumBootstraps == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%% CI [%.2f, %.2f]", ci.ConfidenceLevel*100, ci.Lower, ci.Upper)
}

// FormatSummaryReport produces a full plain-language report from an EvaluationOutcome.
func FormatSummaryReport(outcome *models.EvaluationOutcome) string {
	var b strings.Builder

	d := outcome.Digest
	duration := time.Duration(d.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	fmt.Fprintf(&b, "Mean Score1:   %.2f - %s (%s)\n", d.MeanScore1, InterpretScore(d.MeanScore1), FormatInterval(d.Score1CI))
	fmt.Fprintf(&b, "Mean Score2:   %.2f - %s (%s)\n", d.MeanScore2, InterpretScore(d.MeanScore2), FormatInterval(d.Score2CI))
	fmt.Fprintf(&b, "Coverage:      %s\n", InterpretCoverage(d.Scored, d.TotalProducts))
	if d.DurationMs > 0 {
		fmt.Fprintf(&b, "Duration:      %v\n", duration)
	}

	if d.TotalProducts > 0 {
		b.WriteString(printer.Sprintf("Products:      %d scored, %d without prediction, %d fetch failed, %d invalid ground truth out of %d total\n",
			d.Scored, d.NoPrediction, d.FetchFailed, d.InvalidGroundTruth, d.TotalProducts))
	}

	if len(d.Nutrients) > 0 {
		b.WriteString("\nPer-Nutrient Verdicts:\n")
		b.WriteString(FormatNutrientTable(d.Nutrients))
	}

	return b.String()
}

// FormatNutrientTable renders a breakdown as an aligned table.
func FormatNutrientTable(rows []models.NutrientBreakdown) string {
	header := []string{"Nutrient", "Match", "Mismatch", "Indeterminate", "Accuracy", "Coverage"}
	cells := [][]string{header}
	for _, r := range rows {
		cells = append(cells, []string{
			r.Nutrient.String(),
			printer.Sprintf("%d", r.Match),
			printer.Sprintf("%d", r.Mismatch),
			printer.Sprintf("%d", r.Indeterminate),
			fmt.Sprintf("%.0f%%", r.Accuracy*100),
			fmt.Sprintf("%.0f%%", r.Coverage*100),
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var b strings.Builder
	for _, row := range cells {
		b.WriteString("  ")
		for i, c := range row {
			if i == len(row)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(padRight(c, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
