package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Run completed and every quality gate held
	ExitGateFailed = 1 // A --min-score* quality gate failed
	ExitError      = 2 // Configuration or runtime error
)

// ThresholdError indicates that the evaluation ran successfully, but a mean
// score fell below its configured minimum.
type ThresholdError struct {
	Message string
}

func (e *ThresholdError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var thresholdErr *ThresholdError
		if errors.As(err, &thresholdErr) {
			os.Exit(ExitGateFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
