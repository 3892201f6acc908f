package rules

import (
	"math"
	"strings"
	"sync"
	"testing"
)

func durationDefinition() Definition {
	return Definition{
		Column: "Duration_Group",
		Input:  InputDuration,
		Rules: []Rule{
			{When: "value <= 3.0", Value: "short"},
			{When: "value <= 14.0", Value: "medium"},
		},
		Default: "long",
	}
}

// TestCompile verifies a well-formed definition compiles
func TestCompile(t *testing.T) {
	b, err := Compile(durationDefinition())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if b.Column() != "Duration_Group" {
		t.Errorf("Column() = %q, want Duration_Group", b.Column())
	}
	if b.Input() != InputDuration {
		t.Errorf("Input() = %q, want %q", b.Input(), InputDuration)
	}
	if b.IsFixed() {
		t.Error("compiled bucketer should not report IsFixed")
	}
}

// TestBucketFirstMatchWins verifies rules are tried in order and the default applies last
func TestBucketFirstMatchWins(t *testing.T) {
	b, err := Compile(durationDefinition())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	testCases := []struct {
		name  string
		value float64
		want  string
	}{
		{"well below first threshold", 1, "short"},
		{"on first threshold", 3, "short"},
		{"just above first threshold", 3.01, "medium"},
		{"on second threshold", 14, "medium"},
		{"above all thresholds", 200, "long"},
		{"negative", -5, "short"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := b.Bucket(tc.value)
			if err != nil {
				t.Fatalf("Bucket(%v) failed: %v", tc.value, err)
			}
			if got != tc.want {
				t.Errorf("Bucket(%v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

// TestBucketIntegerLiterals verifies conditions may compare against int literals
func TestBucketIntegerLiterals(t *testing.T) {
	b, err := Compile(Definition{
		Column:  "Age_Group",
		Input:   InputAge,
		Rules:   []Rule{{When: "value < 25", Value: "young"}, {When: "value < 60", Value: "adult"}},
		Default: "senior",
	})
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	for value, want := range map[float64]string{18: "young", 30: "adult", 60: "senior"} {
		got, err := b.Bucket(value)
		if err != nil {
			t.Fatalf("Bucket(%v) failed: %v", value, err)
		}
		if got != want {
			t.Errorf("Bucket(%v) = %q, want %q", value, got, want)
		}
	}
}

// TestBucketRejectsNonFinite verifies NaN and Inf never reach CEL
func TestBucketRejectsNonFinite(t *testing.T) {
	b, err := Compile(durationDefinition())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := b.Bucket(v); err == nil {
			t.Errorf("Bucket(%v) should fail", v)
		}
	}
}

// TestFixed verifies a fixed bucketer ignores its input
func TestFixed(t *testing.T) {
	b := Fixed("Duration_Group", InputDuration, "medium")
	if !b.IsFixed() {
		t.Error("Fixed() should report IsFixed")
	}
	for _, v := range []float64{2, 200, math.NaN()} {
		got, err := b.Bucket(v)
		if err != nil {
			t.Fatalf("Bucket(%v) failed: %v", v, err)
		}
		if got != "medium" {
			t.Errorf("Bucket(%v) = %q, want medium", v, got)
		}
	}
}

// TestCompileErrors verifies broken conditions are rejected at compile time
func TestCompileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		when    string
		wantErr string
	}{
		{"syntax error", "value <=", "compile error"},
		{"unknown variable", "days <= 3.0", "compile error"},
		{"non-boolean result", "value + 1.0", "must evaluate to bool"},
		{"string operand", `value < "short"`, "compile error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := durationDefinition()
			def.Rules = []Rule{{When: tc.when, Value: "short"}}

			_, err := Compile(def)
			if err == nil {
				t.Fatalf("Compile() with %q should fail", tc.when)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

// TestBucketConcurrent verifies a compiled bucketer is safe to share
func TestBucketConcurrent(t *testing.T) {
	b, err := Compile(durationDefinition())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			if _, err := b.Bucket(v); err != nil {
				errs <- err
			}
		}(float64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Bucket() failed: %v", err)
	}
}

func TestDefinitionValues(t *testing.T) {
	got := durationDefinition().Values()
	want := []string{"short", "medium", "long"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}
