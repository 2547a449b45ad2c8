package prediction

import (
	"errors"
	"fmt"
)

// ErrNoNutritionImage is wrapped by a RetrievalError when the product has no
// nutrition image to run OCR on.
var ErrNoNutritionImage = errors.New("no nutrition image")

// errUnexpectedStatus is returned for non-2xx responses that are not a known
// retrieval failure.
var errUnexpectedStatus = errors.New("unexpected status")

// RetrievalError reports that the prediction service produced nothing for a
// product. It is recoverable: the product gets a placeholder row.
type RetrievalError struct {
	Code   string
	Reason string
	Err    error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("no prediction for %s", e.Code)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
