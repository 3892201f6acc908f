package model

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/costpredictor/rules"
)

// Model is a loaded, validated artifact ready for inference. It is never
// mutated after construction, so concurrent PredictBatch calls need no locking.
type Model struct {
	name       string
	format     string
	trainedAt  time.Time
	columns    []string
	targets    []string
	encoder    *encoder
	regressors []regressor
	bucketers  map[string]*rules.Bucketer
	derived    []DerivedColumn
	instance   uuid.UUID
	loadedAt   time.Time
	path       string
}

// Load reads the artifact at path and checks it against schema.
func Load(path string, schema Schema) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat model artifact %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidArtifact, path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidArtifact, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	m, err := Parse(data, schema)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// Parse decodes an artifact document and checks it against schema.
func Parse(data []byte, schema Schema) (*Model, error) {
	a, err := ParseArtifact(data)
	if err != nil {
		return nil, err
	}
	return FromArtifact(a, schema)
}

// FromArtifact builds a Model from a decoded artifact.
func FromArtifact(a Artifact, schema Schema) (*Model, error) {
	if err := checkColumns(a.Features, schema.Columns); err != nil {
		return nil, err
	}
	if !slices.Equal(a.Targets, schema.Targets) {
		return nil, fmt.Errorf("%w: artifact targets %v, expected %v", ErrSchemaMismatch, a.Targets, schema.Targets)
	}
	if len(a.Regressors) != len(a.Targets) {
		return nil, fmt.Errorf("%w: %d regressors for %d targets", ErrSchemaMismatch, len(a.Regressors), len(a.Targets))
	}

	enc, err := newEncoder(a.Features)
	if err != nil {
		return nil, err
	}

	regs := make([]regressor, 0, len(a.Regressors))
	for i, spec := range a.Regressors {
		r, err := newRegressor(spec, enc.width)
		if err != nil {
			return nil, fmt.Errorf("regressor for %s: %w", a.Targets[i], err)
		}
		regs = append(regs, r)
	}

	bucketers, err := buildBucketers(a.Derived, schema.Derived, enc)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(a.Features))
	for i, f := range a.Features {
		columns[i] = f.Name
	}

	return &Model{
		name:       a.Name,
		format:     a.Format,
		trainedAt:  a.TrainedAt,
		columns:    columns,
		targets:    slices.Clone(a.Targets),
		encoder:    enc,
		regressors: regs,
		bucketers:  bucketers,
		derived:    slices.Clone(schema.Derived),
		instance:   uuid.New(),
		loadedAt:   time.Now(),
	}, nil
}

func checkColumns(features []Feature, expected []Column) error {
	if len(features) != len(expected) {
		return fmt.Errorf("%w: artifact has %d features, expected %d", ErrSchemaMismatch, len(features), len(expected))
	}
	for i, want := range expected {
		got := features[i]
		if got.Name != want.Name {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrSchemaMismatch, i, got.Name, want.Name)
		}
		if got.Kind != want.Kind {
			return fmt.Errorf("%w: feature %q is %s, expected %s", ErrSchemaMismatch, got.Name, got.Kind, want.Kind)
		}
	}
	return nil
}

// buildBucketers compiles the artifact's derived rules and falls back to a
// fixed value for every derived column the artifact does not define.
func buildBucketers(defs []rules.Definition, expected []DerivedColumn, enc *encoder) (map[string]*rules.Bucketer, error) {
	byColumn := make(map[string]DerivedColumn, len(expected))
	for _, d := range expected {
		byColumn[d.Column] = d
	}

	out := make(map[string]*rules.Bucketer, len(expected))
	for _, def := range defs {
		want, ok := byColumn[def.Column]
		if !ok {
			return nil, fmt.Errorf("%w: derived rules for unexpected column %q", ErrSchemaMismatch, def.Column)
		}
		if _, dup := out[def.Column]; dup {
			return nil, fmt.Errorf("%w: derived column %q defined twice", ErrInvalidArtifact, def.Column)
		}
		if def.Input != want.Input {
			return nil, fmt.Errorf("%w: derived column %q reads %q, expected %q", ErrSchemaMismatch, def.Column, def.Input, want.Input)
		}
		for _, v := range def.Values() {
			if !enc.knows(def.Column, v) {
				return nil, fmt.Errorf("%w: derived column %q can produce %q, which the encoder does not know",
					ErrSchemaMismatch, def.Column, v)
			}
		}

		b, err := rules.Compile(def)
		if err != nil {
			return nil, fmt.Errorf("%w: derived column %q: %v", ErrInvalidArtifact, def.Column, err)
		}
		out[def.Column] = b
	}

	for _, d := range expected {
		if _, ok := out[d.Column]; ok {
			continue
		}
		if !enc.knows(d.Column, d.Fallback) {
			return nil, fmt.Errorf("%w: derived column %q has no rules and its fallback %q is not a known category",
				ErrSchemaMismatch, d.Column, d.Fallback)
		}
		out[d.Column] = rules.Fixed(d.Column, d.Input, d.Fallback)
	}

	return out, nil
}

// PredictBatch returns one output row per input row, one column per target.
func (m *Model) PredictBatch(rows []Row) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for r, row := range rows {
		x := make([]float64, m.encoder.width)
		if err := m.encoder.encode(row, x); err != nil {
			return nil, err
		}

		preds := make([]float64, len(m.regressors))
		for t, reg := range m.regressors {
			v := reg.predict(x)
			if !finite(v) {
				return nil, fmt.Errorf("%w: row %d target %s is %v", ErrOutputShape, r, m.targets[t], v)
			}
			preds[t] = v
		}
		out[r] = preds
	}
	return out, nil
}

// Bucketer returns the bucketer for a derived column, or nil if the column
// is not derived.
func (m *Model) Bucketer(column string) *rules.Bucketer {
	return m.bucketers[column]
}

func (m *Model) Name() string         { return m.name }
func (m *Model) Format() string       { return m.format }
func (m *Model) TrainedAt() time.Time { return m.trainedAt }
func (m *Model) Columns() []string    { return slices.Clone(m.columns) }
func (m *Model) Targets() []string    { return slices.Clone(m.targets) }
func (m *Model) Instance() uuid.UUID  { return m.instance }
func (m *Model) LoadedAt() time.Time  { return m.loadedAt }
func (m *Model) Path() string         { return m.path }

// DerivedSource describes where a derived column's value comes from.
type DerivedSource struct {
	Column string      `json:"column"`
	Input  rules.Input `json:"input"`
	Source string      `json:"source"`
	Value  string      `json:"value,omitempty"`
}

// DerivedSources lists the derived columns in schema order.
func (m *Model) DerivedSources() []DerivedSource {
	out := make([]DerivedSource, 0, len(m.derived))
	for _, d := range m.derived {
		src := DerivedSource{Column: d.Column, Input: d.Input, Source: "rules"}
		if m.bucketers[d.Column].IsFixed() {
			src.Source = "fixed"
			src.Value = d.Fallback
		}
		out = append(out, src)
	}
	return out
}
