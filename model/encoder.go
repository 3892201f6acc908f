package model

import (
	"fmt"
	"math"
)

// Row is one input record in schema column order. Numeric columns hold
// float64 and categorical columns hold string.
type Row []any

type columnEncoder struct {
	name          string
	kind          Kind
	offset        int
	mean          float64
	scale         float64
	index         map[string]int
	ignoreUnknown bool
}

// encoder turns a Row into the dense vector the regressors were fitted on.
type encoder struct {
	columns []columnEncoder
	width   int
}

func newEncoder(features []Feature) (*encoder, error) {
	e := &encoder{columns: make([]columnEncoder, 0, len(features))}

	for _, f := range features {
		c := columnEncoder{name: f.Name, kind: f.Kind, offset: e.width}

		switch f.Kind {
		case KindNumeric:
			if !finite(f.Mean) || !finite(f.Scale) {
				return nil, fmt.Errorf("%w: feature %q has non-finite scaling parameters", ErrInvalidArtifact, f.Name)
			}
			c.mean = f.Mean
			c.scale = f.Scale
			if c.scale == 0 {
				c.scale = 1
			}
			e.width++

		case KindCategorical:
			if len(f.Categories) == 0 {
				return nil, fmt.Errorf("%w: categorical feature %q has no categories", ErrInvalidArtifact, f.Name)
			}
			switch f.HandleUnknown {
			case "", UnknownError:
			case UnknownIgnore:
				c.ignoreUnknown = true
			default:
				return nil, fmt.Errorf("%w: feature %q has unsupported handle_unknown %q", ErrInvalidArtifact, f.Name, f.HandleUnknown)
			}
			c.index = make(map[string]int, len(f.Categories))
			for i, cat := range f.Categories {
				if _, dup := c.index[cat]; dup {
					return nil, fmt.Errorf("%w: feature %q lists category %q twice", ErrInvalidArtifact, f.Name, cat)
				}
				c.index[cat] = i
			}
			e.width += len(f.Categories)

		default:
			return nil, fmt.Errorf("%w: feature %q has unsupported kind %q", ErrInvalidArtifact, f.Name, f.Kind)
		}

		e.columns = append(e.columns, c)
	}

	return e, nil
}

// knows reports whether value can be encoded for column without error.
func (e *encoder) knows(column, value string) bool {
	for _, c := range e.columns {
		if c.name != column {
			continue
		}
		if c.ignoreUnknown {
			return true
		}
		_, ok := c.index[value]
		return ok
	}
	return false
}

// encode writes row into dst, which must be zeroed and e.width long.
func (e *encoder) encode(row Row, dst []float64) error {
	if len(row) != len(e.columns) {
		return fmt.Errorf("%w: row has %d values, expected %d", ErrSchemaMismatch, len(row), len(e.columns))
	}

	for i, c := range e.columns {
		switch c.kind {
		case KindNumeric:
			v, ok := row[i].(float64)
			if !ok {
				return fmt.Errorf("%w: column %q expects a number, got %T", ErrSchemaMismatch, c.name, row[i])
			}
			if !finite(v) {
				return fmt.Errorf("%w: column %q got non-finite value %v", ErrSchemaMismatch, c.name, v)
			}
			dst[c.offset] = (v - c.mean) / c.scale

		case KindCategorical:
			v, ok := row[i].(string)
			if !ok {
				return fmt.Errorf("%w: column %q expects a string, got %T", ErrSchemaMismatch, c.name, row[i])
			}
			pos, known := c.index[v]
			if !known {
				if c.ignoreUnknown {
					continue
				}
				return fmt.Errorf("%w: found unknown category %q in column %q during transform", ErrUnknownCategory, v, c.name)
			}
			dst[c.offset+pos] = 1
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
