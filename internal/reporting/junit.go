package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluation run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one product.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a product with at least one mismatched nutrient.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a product whose prediction could not be fetched.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a product that had nothing to compare.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

const junitClassname = "nutrieval.products"

// ConvertToJUnit converts an EvaluationOutcome to JUnit XML format.
func ConvertToJUnit(outcome *models.EvaluationOutcome) *JUnitTestSuites {
	durationSec := float64(outcome.Digest.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      "nutrieval",
		Tests:     len(outcome.Products),
		Time:      durationSec,
		Timestamp: outcome.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "run_id", Value: outcome.RunID},
			{Name: "tolerance", Value: fmt.Sprintf("%g", outcome.Setup.Tolerance)},
			{Name: "mean_score1", Value: fmt.Sprintf("%.4f", outcome.Digest.MeanScore1)},
			{Name: "mean_score2", Value: fmt.Sprintf("%.4f", outcome.Digest.MeanScore2)},
		},
	}

	for _, p := range outcome.Products {
		tc := convertProduct(&p)
		switch {
		case tc.Failure != nil:
			suite.Failures++
		case tc.Error != nil:
			suite.Errors++
		case tc.Skipped != nil:
			suite.Skipped++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertProduct(p *models.ProductOutcome) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      p.Code,
		Classname: junitClassname,
		Time:      float64(p.DurationMs) / 1000.0,
	}

	switch p.Status {
	case models.StatusScored:
		if p.Verdicts.Count(models.Mismatch) > 0 {
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%s: score1=%.2f score2=%.2f", p.Code, p.Score1, p.Score2),
				Type:    "NutrientMismatch",
				Body:    formatMismatches(p),
			}
		}
	case models.StatusFetchFailed:
		tc.Error = &JUnitError{
			Message: p.Reason,
			Type:    "FetchError",
		}
	default:
		tc.Skipped = &JUnitSkipped{Message: fmt.Sprintf("%s: %s", p.Status, p.Reason)}
	}

	return tc
}

func formatMismatches(p *models.ProductOutcome) string {
	var b strings.Builder
	for _, n := range models.AllNutrients {
		if p.Verdicts[n] != models.Mismatch {
			continue
		}
		fmt.Fprintf(&b, "[MISMATCH] %s: truth=%s predicted=%s\n", n, formatValue(p.GroundTruth, n), formatValue(p.Prediction, n))
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.EvaluationOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
