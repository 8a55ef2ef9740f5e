package model

import (
	"fmt"
	"math"
)

// ForestParams is an ensemble of binary decision trees whose prediction is
// the average of the per-class leaf distributions.
type ForestParams struct {
	Trees []Tree `json:"trees"`
}

// Tree is a flat node table rooted at index 0. Children always follow their parent.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split (Feature >= 0) or a leaf (Feature == -1).
// Value is the class distribution of training samples reaching the node;
// it is normalised to sum to 1 when the artifact is built.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type forest struct {
	trees    []Tree
	nFeature int
	nClass   int
}

func newForest(p ForestParams, nFeature, nClass int) (*forest, error) {
	if len(p.Trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrInvalidArtifact)
	}
	if nFeature <= 0 {
		return nil, fmt.Errorf("%w: forest artifact must declare n_features or feature_names", ErrInvalidArtifact)
	}

	trees := make([]Tree, len(p.Trees))
	for t, tree := range p.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("%w: tree %d has no nodes", ErrInvalidArtifact, t)
		}
		nodes := make([]Node, len(tree.Nodes))
		for i, n := range tree.Nodes {
			if err := validateNode(n, i, len(tree.Nodes), nFeature, nClass); err != nil {
				return nil, fmt.Errorf("%w: tree %d node %d: %v", ErrInvalidArtifact, t, i, err)
			}
			n.Value = normalizeDistribution(n.Value)
			nodes[i] = n
		}
		trees[t] = Tree{Nodes: nodes}
	}

	return &forest{trees: trees, nFeature: nFeature, nClass: nClass}, nil
}

func validateNode(n Node, idx, count, nFeature, nClass int) error {
	if len(n.Value) != nClass {
		return fmt.Errorf("value has %d entries, want %d", len(n.Value), nClass)
	}
	total := 0.0
	for _, v := range n.Value {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value entries must be finite and non-negative")
		}
		total += v
	}
	if total == 0 {
		return fmt.Errorf("value sums to zero")
	}
	if n.Feature == -1 {
		return nil
	}
	if n.Feature < 0 || n.Feature >= nFeature {
		return fmt.Errorf("split feature %d out of range", n.Feature)
	}
	if math.IsNaN(n.Threshold) {
		return fmt.Errorf("threshold is NaN")
	}
	for _, child := range []int{n.Left, n.Right} {
		if child <= idx || child >= count {
			return fmt.Errorf("child index %d invalid", child)
		}
	}
	return nil
}

func normalizeDistribution(v []float64) []float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / total
	}
	return out
}

func (f *forest) width() int { return f.nFeature }

// path returns the node indices visited from the root to the leaf for x
func (t Tree) path(x []float64) []int {
	visited := []int{0}
	idx := 0
	for t.Nodes[idx].Feature != -1 {
		n := t.Nodes[idx]
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
		visited = append(visited, idx)
	}
	return visited
}

func (f *forest) proba(x []float64) []float64 {
	out := make([]float64, f.nClass)
	for _, t := range f.trees {
		p := t.path(x)
		leaf := t.Nodes[p[len(p)-1]]
		for c := range out {
			out[c] += leaf.Value[c]
		}
	}
	for c := range out {
		out[c] /= float64(len(f.trees))
	}
	return out
}

// attribute decomposes each tree's prediction along its decision path:
// the root distribution is the baseline and every split credits its feature
// with the change in class probability it causes. Averaged over trees the
// result is exactly additive in probability space.
func (f *forest) attribute(x []float64) Attribution {
	values := make([][]float64, f.nClass)
	for c := range values {
		values[c] = make([]float64, f.nFeature)
	}
	baselines := make([]float64, f.nClass)
	scale := 1 / float64(len(f.trees))

	for _, t := range f.trees {
		p := t.path(x)
		root := t.Nodes[0]
		for c := 0; c < f.nClass; c++ {
			baselines[c] += root.Value[c] * scale
		}
		for i := 1; i < len(p); i++ {
			parent := t.Nodes[p[i-1]]
			child := t.Nodes[p[i]]
			for c := 0; c < f.nClass; c++ {
				values[c][parent.Feature] += (child.Value[c] - parent.Value[c]) * scale
			}
		}
	}

	return Attribution{
		Baselines: baselines,
		Values:    values,
		Scores:    f.proba(x),
	}
}
