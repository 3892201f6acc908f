package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/liamcoop/costpredictor/inference"
)

const (
	fixturePath         = "../../model/testdata/travel_cost_model.json"
	bucketedFixturePath = "../../model/testdata/travel_cost_model_bucketed.json"
)

// runApp runs modelctl with args and returns its stdout
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"modelctl", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := runApp(t, "", "--model", fixturePath, "validate")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "OK: travel-cost-fixture") {
		t.Errorf("output = %q", out)
	}
}

// TestValidateRejectsIncompatible verifies a schema-drifted artifact fails validation
func TestValidateRejectsIncompatible(t *testing.T) {
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	broken := strings.Replace(string(data), `"transportation_cost"`, `"total_cost"`, 1)
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runApp(t, "", "--model", path, "validate"); err == nil {
		t.Error("validate should fail for mismatched targets")
	}
}

func TestInspect(t *testing.T) {
	out, err := runApp(t, "", "--model", bucketedFixturePath, "inspect")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"travel-cost-fixture-bucketed", "Duration (days)", "accommodation_cost", "Derived Duration_Group:"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectJSON(t *testing.T) {
	out, err := runApp(t, "", "--model", fixturePath, "inspect", "--format", "json")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var body struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if body.Name != "travel-cost-fixture" || len(body.Columns) != 9 {
		t.Errorf("unexpected inspect output: %+v", body)
	}
}

// TestPredictFromStdin verifies a request body can be piped in
func TestPredictFromStdin(t *testing.T) {
	req := `{"destination": "Paris", "duration": "5", "age": 30, "gender": "Female",
		"nationality": "American", "accommodation": "Hotel", "transportation": "Flight"}`

	out, err := runApp(t, req, "--model", fixturePath, "predict", "--request", "-")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	var got inference.PredictionResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if got.AccommodationCost != 815.01 || got.TransportationCost != 275.13 {
		t.Errorf("predict = %+v", got)
	}
}

func TestPredictInvalidRequest(t *testing.T) {
	if _, err := runApp(t, `{"destination": "Paris"}`, "--model", fixturePath, "predict", "--request", "-"); err == nil {
		t.Error("predict should fail for an incomplete request")
	}
}

func TestBucket(t *testing.T) {
	testCases := []struct {
		name    string
		fixture string
		want    string
	}{
		{"fixed", fixturePath, "Duration_Group=medium\nAge_Group=adult\n"},
		{"rules", bucketedFixturePath, "Duration_Group=long\nAge_Group=young\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runApp(t, "", "--model", tc.fixture, "bucket", "--duration", "30", "--age", "19")
			if err != nil {
				t.Fatalf("bucket failed: %v", err)
			}
			if out != tc.want {
				t.Errorf("bucket output = %q, want %q", out, tc.want)
			}
		})
	}
}
