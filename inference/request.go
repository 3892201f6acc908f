package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// PredictionRequest is the raw /predict body. Fields stay undecoded until
// Validate so that numbers and numeric strings are both accepted and every
// problem can be reported at once.
type PredictionRequest struct {
	Destination    json.RawMessage `json:"destination"`
	Duration       json.RawMessage `json:"duration"`
	Age            json.RawMessage `json:"age"`
	Gender         json.RawMessage `json:"gender"`
	Nationality    json.RawMessage `json:"nationality"`
	Accommodation  json.RawMessage `json:"accommodation"`
	Transportation json.RawMessage `json:"transportation"`
}

// Itinerary is a validated request with numbers coerced.
type Itinerary struct {
	Destination    string
	DurationDays   float64
	TravelerAge    float64
	Gender         string
	Nationality    string
	Accommodation  string
	Transportation string
}

// DecodeRequest reads a single JSON object body. Keys match exactly and
// unknown keys are ignored.
func DecodeRequest(r io.Reader) (PredictionRequest, error) {
	dec := json.NewDecoder(r)

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		reason := "must be a JSON object"
		if errors.Is(err, io.EOF) {
			reason = "is required"
		}
		return PredictionRequest{}, bodyError(reason)
	}
	if fields == nil {
		return PredictionRequest{}, bodyError("must be a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return PredictionRequest{}, bodyError("must contain a single JSON object")
	}

	return PredictionRequest{
		Destination:    fields["destination"],
		Duration:       fields["duration"],
		Age:            fields["age"],
		Gender:         fields["gender"],
		Nationality:    fields["nationality"],
		Accommodation:  fields["accommodation"],
		Transportation: fields["transportation"],
	}, nil
}

func bodyError(reason string) *ValidationError {
	return &ValidationError{Problems: []FieldProblem{{Field: "body", Reason: reason}}}
}

// Validate checks presence and type of every field and coerces duration and
// age to float64. Category membership is left to the model.
func (r PredictionRequest) Validate() (Itinerary, error) {
	var it Itinerary
	var problems []FieldProblem

	text := func(field string, raw json.RawMessage, dst *string) {
		v, reason := parseText(raw)
		if reason != "" {
			problems = append(problems, FieldProblem{Field: field, Reason: reason})
			return
		}
		*dst = v
	}
	number := func(field string, raw json.RawMessage, dst *float64) {
		v, reason := parseNumber(raw)
		if reason != "" {
			problems = append(problems, FieldProblem{Field: field, Reason: reason})
			return
		}
		*dst = v
	}

	text("destination", r.Destination, &it.Destination)
	number("duration", r.Duration, &it.DurationDays)
	number("age", r.Age, &it.TravelerAge)
	text("gender", r.Gender, &it.Gender)
	text("nationality", r.Nationality, &it.Nationality)
	text("accommodation", r.Accommodation, &it.Accommodation)
	text("transportation", r.Transportation, &it.Transportation)

	if len(problems) > 0 {
		return Itinerary{}, &ValidationError{Problems: problems}
	}
	return it, nil
}

func missing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseText returns the string value unchanged; blank strings are rejected.
func parseText(raw json.RawMessage) (string, string) {
	if missing(raw) {
		return "", "is required"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", "must be a string"
	}
	if strings.TrimSpace(s) == "" {
		return "", "must not be empty"
	}
	return s, ""
}

// parseNumber accepts a JSON number or a string holding one. Booleans and
// non-finite values are rejected.
func parseNumber(raw json.RawMessage) (float64, string) {
	if missing(raw) {
		return 0, "is required"
	}

	trimmed := bytes.TrimSpace(raw)
	var v float64
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, "must be a number"
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		// Out-of-range values parse to ±Inf and are rejected below.
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Sprintf("must be a number, got %q", s)
		}
		v = parsed
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return 0, "must be a finite number"
		}
	default:
		return 0, "must be a number"
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "must be a finite number"
	}
	return v, ""
}
