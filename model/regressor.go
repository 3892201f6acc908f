package model

import "fmt"

type regressor interface {
	predict(x []float64) float64
}

type linear struct {
	intercept    float64
	coefficients []float64
}

func (l linear) predict(x []float64) float64 {
	sum := l.intercept
	for i, c := range l.coefficients {
		sum += c * x[i]
	}
	return sum
}

// forest averages its trees, as a random forest regressor does.
type forest struct {
	trees [][]TreeNode
}

func (f forest) predict(x []float64) float64 {
	var sum float64
	for _, tree := range f.trees {
		sum += walk(tree, x)
	}
	return sum / float64(len(f.trees))
}

// walk follows a validated tree from the root; <= goes left.
func walk(tree []TreeNode, x []float64) float64 {
	i := 0
	for {
		n := tree[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func newRegressor(spec RegressorSpec, width int) (regressor, error) {
	switch spec.Kind {
	case RegressorLinear:
		if len(spec.Coefficients) != width {
			return nil, fmt.Errorf("%w: linear regressor has %d coefficients, encoded width is %d",
				ErrSchemaMismatch, len(spec.Coefficients), width)
		}
		if !finite(spec.Intercept) {
			return nil, fmt.Errorf("%w: linear regressor has non-finite intercept", ErrInvalidArtifact)
		}
		for i, c := range spec.Coefficients {
			if !finite(c) {
				return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrInvalidArtifact, i)
			}
		}
		return linear{intercept: spec.Intercept, coefficients: spec.Coefficients}, nil

	case RegressorForest:
		if len(spec.Trees) == 0 {
			return nil, fmt.Errorf("%w: forest regressor has no trees", ErrInvalidArtifact)
		}
		for t, tree := range spec.Trees {
			if err := validateTree(tree, width); err != nil {
				return nil, fmt.Errorf("tree %d: %w", t, err)
			}
		}
		return forest{trees: spec.Trees}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported regressor kind %q", ErrInvalidArtifact, spec.Kind)
	}
}

// validateTree guarantees walk terminates and never indexes out of range.
func validateTree(tree []TreeNode, width int) error {
	if len(tree) == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidArtifact)
	}
	for i, n := range tree {
		if n.Leaf {
			if !finite(n.Value) {
				return fmt.Errorf("%w: node %d has non-finite value", ErrInvalidArtifact, i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("%w: node %d splits on feature %d, encoded width is %d", ErrSchemaMismatch, i, n.Feature, width)
		}
		if !finite(n.Threshold) {
			return fmt.Errorf("%w: node %d has non-finite threshold", ErrInvalidArtifact, i)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(tree) {
				return fmt.Errorf("%w: node %d has child %d outside (%d, %d)", ErrInvalidArtifact, i, child, i, len(tree))
			}
		}
	}
	return nil
}
