package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/liamcoop/costpredictor/rules"
)

// FormatV1 is the only artifact format this runtime understands.
const FormatV1 = "travelcost.model/v1"

// Kind is the encoding family of a feature column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

const (
	UnknownError  = "error"
	UnknownIgnore = "ignore"
)

const (
	RegressorLinear = "linear"
	RegressorForest = "forest"
)

// Artifact is the on-disk model document produced by the training pipeline.
type Artifact struct {
	Format     string             `json:"format"`
	Name       string             `json:"name"`
	TrainedAt  time.Time          `json:"trained_at"`
	Features   []Feature          `json:"features"`
	Targets    []string           `json:"targets"`
	Regressors []RegressorSpec    `json:"regressors"`
	Derived    []rules.Definition `json:"derived,omitempty"`
}

// Feature describes how one input column is encoded.
type Feature struct {
	Name          string   `json:"name"`
	Kind          Kind     `json:"kind"`
	Categories    []string `json:"categories,omitempty"`
	HandleUnknown string   `json:"handle_unknown,omitempty"`
	Mean          float64  `json:"mean,omitempty"`
	Scale         float64  `json:"scale,omitempty"`
}

// RegressorSpec is one fitted per-target estimator.
type RegressorSpec struct {
	Kind         string       `json:"kind"`
	Intercept    float64      `json:"intercept,omitempty"`
	Coefficients []float64    `json:"coefficients,omitempty"`
	Trees        [][]TreeNode `json:"trees,omitempty"`
}

// TreeNode is a flattened decision tree node. Children always have a higher
// index than their parent.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Column is an expected feature column.
type Column struct {
	Name string
	Kind Kind
}

// DerivedColumn is a categorical column computed from a request value rather
// than supplied by the caller. Fallback is used when the artifact carries no
// bucketing rules for it.
type DerivedColumn struct {
	Column   string
	Input    rules.Input
	Fallback string
}

// Schema is what the serving code expects an artifact to look like.
type Schema struct {
	Columns []Column
	Targets []string
	Derived []DerivedColumn
}

// ParseArtifact decodes an artifact document without checking it against a schema.
func ParseArtifact(data []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if a.Format != FormatV1 {
		return Artifact{}, fmt.Errorf("%w: unsupported format %q (expected %q)", ErrInvalidArtifact, a.Format, FormatV1)
	}
	return a, nil
}
