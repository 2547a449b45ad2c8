package groundtruth

import "fmt"

// ParseError reports a ground-truth record that could not be read or
// decoded.
type ParseError struct {
	Code string
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("groundtruth: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("groundtruth: %s (%s): %v", e.Code, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
