package rules

import (
	"fmt"
	"math"

	"github.com/google/cel-go/cel"
)

// costLimit bounds a single condition evaluation. Bucketing conditions are
// comparisons, so anything near this limit is a broken artifact.
const costLimit = 10000

// Bucketer computes one derived categorical column from a continuous input.
// A Bucketer is immutable after construction and safe for concurrent use.
type Bucketer struct {
	column   string
	input    Input
	rules    []compiledRule
	fallback string
	fixed    bool
}

type compiledRule struct {
	when  string
	value string
	prog  cel.Program
}

// newEnv declares the single `value` variable every condition reads.
func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DoubleType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// Compile validates a definition and compiles each of its conditions.
// Conditions must type-check to bool.
func Compile(def Definition) (*Bucketer, error) {
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}

	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledRule, 0, len(def.Rules))
	for i, r := range def.Rules {
		ast, issues := env.Compile(r.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("column %s rule %d: compile error: %w", def.Column, i, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("column %s rule %d: condition %q must evaluate to bool, got %s",
				def.Column, i, r.When, ast.OutputType())
		}

		prog, err := env.Program(ast, cel.CostLimit(costLimit))
		if err != nil {
			return nil, fmt.Errorf("column %s rule %d: program creation error: %w", def.Column, i, err)
		}
		compiled = append(compiled, compiledRule{when: r.When, value: r.Value, prog: prog})
	}

	return &Bucketer{
		column:   def.Column,
		input:    def.Input,
		rules:    compiled,
		fallback: def.Default,
	}, nil
}

// Fixed returns a Bucketer that ignores its input and always yields value.
func Fixed(column string, input Input, value string) *Bucketer {
	return &Bucketer{
		column:   column,
		input:    input,
		fallback: value,
		fixed:    true,
	}
}

// Column is the derived column this bucketer fills.
func (b *Bucketer) Column() string { return b.column }

// Input is the request value the bucketer reads.
func (b *Bucketer) Input() Input { return b.input }

// IsFixed reports whether the bucketer ignores its input.
func (b *Bucketer) IsFixed() bool { return b.fixed }

// Bucket maps value to a category.
func (b *Bucketer) Bucket(value float64) (string, error) {
	if b.fixed {
		return b.fallback, nil
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", fmt.Errorf("column %s: cannot bucket non-finite value %v", b.column, value)
	}

	vars := map[string]any{"value": value}
	for i, r := range b.rules {
		out, _, err := r.prog.Eval(vars)
		if err != nil {
			return "", fmt.Errorf("column %s rule %d (%s): evaluation failed: %w", b.column, i, r.when, err)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return "", fmt.Errorf("column %s rule %d (%s): non-boolean result %v", b.column, i, r.when, out.Value())
		}
		if matched {
			return r.value, nil
		}
	}
	return b.fallback, nil
}
