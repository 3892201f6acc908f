package inference

import (
	"errors"
	"strings"
	"testing"
)

const validBody = `{
	"destination": "Paris",
	"duration": 5,
	"age": 30,
	"gender": "Female",
	"nationality": "American",
	"accommodation": "Hotel",
	"transportation": "Flight"
}`

func decode(t *testing.T, body string) PredictionRequest {
	t.Helper()
	req, err := DecodeRequest(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeRequest() failed: %v", err)
	}
	return req
}

func TestValidateValid(t *testing.T) {
	it, err := decode(t, validBody).Validate()
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	want := Itinerary{
		Destination:    "Paris",
		DurationDays:   5,
		TravelerAge:    30,
		Gender:         "Female",
		Nationality:    "American",
		Accommodation:  "Hotel",
		Transportation: "Flight",
	}
	if it != want {
		t.Errorf("Validate() = %+v, want %+v", it, want)
	}
}

// TestValidateNumericStrings verifies form-style string numbers are coerced
func TestValidateNumericStrings(t *testing.T) {
	body := `{"destination": "Paris", "duration": " 5.5 ", "age": "30", "gender": "Female",
		"nationality": "American", "accommodation": "Hotel", "transportation": "Flight", "notes": "ignored"}`

	it, err := decode(t, body).Validate()
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if it.DurationDays != 5.5 || it.TravelerAge != 30 {
		t.Errorf("coerced duration=%v age=%v, want 5.5 and 30", it.DurationDays, it.TravelerAge)
	}
}

// TestValidateCategoricalUntouched verifies strings reach the model exactly as sent
func TestValidateCategoricalUntouched(t *testing.T) {
	body := strings.Replace(validBody, `"Paris"`, `" Paris"`, 1)

	it, err := decode(t, body).Validate()
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if it.Destination != " Paris" {
		t.Errorf("Destination = %q, want it untrimmed", it.Destination)
	}
}

func TestValidateInvalid(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantFields []string
		wantReason string
	}{
		{
			name:       "empty object",
			body:       `{}`,
			wantFields: []string{"destination", "duration", "age", "gender", "nationality", "accommodation", "transportation"},
			wantReason: "is required",
		},
		{
			name:       "non-numeric duration",
			body:       strings.Replace(validBody, `"duration": 5`, `"duration": "abc"`, 1),
			wantFields: []string{"duration"},
			wantReason: `must be a number, got "abc"`,
		},
		{
			name:       "non-numeric age",
			body:       strings.Replace(validBody, `"age": 30`, `"age": "thirty"`, 1),
			wantFields: []string{"age"},
			wantReason: "must be a number",
		},
		{
			name:       "null counts as missing",
			body:       strings.Replace(validBody, `"gender": "Female"`, `"gender": null`, 1),
			wantFields: []string{"gender"},
			wantReason: "is required",
		},
		{
			name:       "boolean is not a number",
			body:       strings.Replace(validBody, `"age": 30`, `"age": true`, 1),
			wantFields: []string{"age"},
			wantReason: "must be a number",
		},
		{
			name:       "nan string",
			body:       strings.Replace(validBody, `"duration": 5`, `"duration": "nan"`, 1),
			wantFields: []string{"duration"},
			wantReason: "must be a finite number",
		},
		{
			name:       "overflowing string",
			body:       strings.Replace(validBody, `"duration": 5`, `"duration": "1e999"`, 1),
			wantFields: []string{"duration"},
			wantReason: "must be a finite number",
		},
		{
			name:       "overflowing number",
			body:       strings.Replace(validBody, `"age": 30`, `"age": 1e999`, 1),
			wantFields: []string{"age"},
			wantReason: "must be a finite number",
		},
		{
			name:       "blank destination",
			body:       strings.Replace(validBody, `"Paris"`, `"   "`, 1),
			wantFields: []string{"destination"},
			wantReason: "must not be empty",
		},
		{
			name:       "numeric destination",
			body:       strings.Replace(validBody, `"Paris"`, `42`, 1),
			wantFields: []string{"destination"},
			wantReason: "must be a string",
		},
		{
			name:       "several problems in field order",
			body:       `{"destination": "Paris", "duration": "x", "gender": "Female", "nationality": "American", "accommodation": "Hotel"}`,
			wantFields: []string{"duration", "age", "transportation"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decode(t, tc.body).Validate()

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if strings.Join(verr.Fields(), ",") != strings.Join(tc.wantFields, ",") {
				t.Errorf("Fields() = %v, want %v", verr.Fields(), tc.wantFields)
			}
			if tc.wantReason != "" && !strings.Contains(err.Error(), tc.wantReason) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tc.wantReason)
			}
		})
	}
}

// TestDecodeRequestMalformed verifies unreadable bodies are validation errors
func TestDecodeRequestMalformed(t *testing.T) {
	for _, body := range []string{
		"",
		"not json",
		"null",
		`["Paris"]`,
		`{"destination": `,
		validBody + " garbage",
		validBody + `{"x":`,
		validBody + "]",
		validBody + validBody,
	} {
		_, err := DecodeRequest(strings.NewReader(body))

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("DecodeRequest(%q) error = %v, want *ValidationError", body, err)
			continue
		}
		if verr.Fields()[0] != "body" {
			t.Errorf("DecodeRequest(%q) fields = %v, want [body]", body, verr.Fields())
		}
	}
}

// TestDecodeRequestTrailingWhitespace verifies a newline after the object is accepted
func TestDecodeRequestTrailingWhitespace(t *testing.T) {
	if _, err := decode(t, validBody+"\n\t ").Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

// TestDecodeRequestKeysAreCaseSensitive verifies differently cased keys do not
// stand in for the required ones
func TestDecodeRequestKeysAreCaseSensitive(t *testing.T) {
	body := `{"DESTINATION": "Paris", "Duration": 5, "AGE": 30, "Gender": "Female",
		"NATIONALITY": "American", "Accommodation": "Hotel", "TRANSPORTATION": "Flight"}`

	_, err := decode(t, body).Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	want := "destination,duration,age,gender,nationality,accommodation,transportation"
	if got := strings.Join(verr.Fields(), ","); got != want {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
}
