package comparator

import "fmt"

// Input names which side of a comparison an error refers to.
type Input string

const (
	InputReference Input = "reference"
	InputCandidate Input = "candidate"
)

// InvalidImageError reports an image that is missing, undecodable or too
// small to be compared.
type InvalidImageError struct {
	Input  Input
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InvalidImageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid %s image: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s image: %s", e.Input, e.Reason)
}

// Summary describes the failure without the wrapped cause.
func (e *InvalidImageError) Summary() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s image: %s", e.Input, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *InvalidImageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewInvalidImageError builds an InvalidImageError for input.
func NewInvalidImageError(input Input, reason string, err error) error {
	return &InvalidImageError{Input: input, Reason: reason, Err: err}
}
