package inference

import (
	"errors"
	"strings"
)

// ErrModelNotLoaded is returned when Predict runs before any model is available.
var ErrModelNotLoaded = errors.New("no model loaded")

// FieldProblem describes why one request field was rejected.
type FieldProblem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every invalid field of a request, in field order.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + " " + p.Reason
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// Fields lists the rejected field names.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		fields[i] = p.Field
	}
	return fields
}

// ModelError wraps a failure that happened after the request was accepted:
// bucketing, encoding, prediction or output checks.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string {
	return "prediction failed: " + e.Err.Error()
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
