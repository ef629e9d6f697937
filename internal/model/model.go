// Package model holds the device-independent form of a decision forest:
// parsed trees with absolute child indices, plus the structural
// statistics the specialization selector consumes. Conversion from
// training-library formats happens upstream; this package is the
// ingestion boundary.
package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidModel is returned when a parsed model violates structural
// constraints (bad child indices, out-of-range features, malformed
// leaf values).
var ErrInvalidModel = errors.New("invalid model")

// Aggregation is the rule combining per-tree leaf outputs into the
// final prediction.
type Aggregation uint8

const (
	// AggSum adds leaf values, the boosting margin rule.
	AggSum Aggregation = iota
	// AggAverage divides the per-group sum by the number of
	// contributing trees, the random-forest regression rule.
	AggAverage
	// AggVote treats each leaf value as a class index and counts one
	// vote per tree.
	AggVote
)

func (a Aggregation) String() string {
	switch a {
	case AggSum:
		return "sum"
	case AggAverage:
		return "average"
	case AggVote:
		return "vote"
	default:
		return fmt.Sprintf("aggregation(%d)", uint8(a))
	}
}

// ParseAggregation converts the serialized name back to an Aggregation.
func ParseAggregation(s string) (Aggregation, error) {
	switch s {
	case "sum":
		return AggSum, nil
	case "average":
		return AggAverage, nil
	case "vote":
		return AggVote, nil
	default:
		return 0, fmt.Errorf("%w: unknown aggregation %q", ErrInvalidModel, s)
	}
}

// Node is one tree node in device-independent form. Internal nodes carry
// a split; leaves carry an output value. Child indices are absolute
// within the owning tree's node slice.
type Node struct {
	// Split fields, valid when Leaf is false.
	Feature     int
	Threshold   float64
	Left        int
	Right       int
	DefaultLeft bool

	Leaf  bool
	Value float64
}

// Tree is one decision tree. The root is Nodes[0].
type Tree struct {
	Nodes []Node
}

// Model is a parsed, device-independent forest.
type Model struct {
	Trees       []Tree
	NumFeatures int
	NumGroups   int
	Agg         Aggregation
}

// Validate checks the structural invariants the packing transform
// relies on: every child index stays inside the owning tree, every
// reachable node is reached exactly once (no sharing, no cycles),
// features are in range and vote leaves name a valid class.
func (m *Model) Validate() error {
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	if m.NumFeatures <= 0 {
		return fmt.Errorf("%w: num_features must be positive", ErrInvalidModel)
	}
	if m.NumGroups <= 0 {
		return fmt.Errorf("%w: num_groups must be positive", ErrInvalidModel)
	}
	if m.Agg != AggVote && m.NumGroups > 1 && len(m.Trees)%m.NumGroups != 0 {
		return fmt.Errorf("%w: %d trees not divisible into %d output groups", ErrInvalidModel, len(m.Trees), m.NumGroups)
	}
	for t := range m.Trees {
		if err := m.validateTree(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) validateTree(t int) error {
	tree := &m.Trees[t]
	n := len(tree.Nodes)
	if n == 0 {
		return fmt.Errorf("%w: tree %d is empty", ErrInvalidModel, t)
	}
	seen := make([]bool, n)
	// Iterative reachability walk from the root.
	stack := []int{0}
	reached := 0
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if i < 0 || i >= n {
			return fmt.Errorf("%w: tree %d references node %d outside [0,%d)", ErrInvalidModel, t, i, n)
		}
		if seen[i] {
			return fmt.Errorf("%w: tree %d node %d reached twice", ErrInvalidModel, t, i)
		}
		seen[i] = true
		reached++
		node := &tree.Nodes[i]
		if node.Leaf {
			if m.Agg == AggVote {
				cls := node.Value
				if cls != math.Trunc(cls) || cls < 0 || int(cls) >= m.NumGroups {
					return fmt.Errorf("%w: tree %d leaf %d votes for invalid class %v", ErrInvalidModel, t, i, cls)
				}
			}
			continue
		}
		if node.Feature < 0 || node.Feature >= m.NumFeatures {
			return fmt.Errorf("%w: tree %d node %d splits on feature %d of %d", ErrInvalidModel, t, i, node.Feature, m.NumFeatures)
		}
		if math.IsNaN(node.Threshold) {
			return fmt.Errorf("%w: tree %d node %d has NaN threshold", ErrInvalidModel, t, i)
		}
		stack = append(stack, node.Left, node.Right)
	}
	if reached != n {
		return fmt.Errorf("%w: tree %d has %d unreachable nodes", ErrInvalidModel, t, n-reached)
	}
	return nil
}
