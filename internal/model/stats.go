package model

import "math"

// Stats summarizes the structural properties the specialization
// selector needs. Offsets depend on the packed layout and are computed
// by the packer, not here.
type Stats struct {
	// MaxTreeNodes is the node count of the largest single tree.
	MaxTreeNodes int
	// MaxFeature is the largest feature index used by any split.
	MaxFeature int
	// NumGroups is the number of output groups.
	NumGroups int
	// RequiresF64 reports whether any threshold or leaf value loses
	// more than tolerance when narrowed to float32.
	RequiresF64 bool
}

// ComputeStats walks the model once. tolerance bounds the acceptable
// relative error when narrowing a value to float32; zero demands exact
// representation.
func (m *Model) ComputeStats(tolerance float64) Stats {
	s := Stats{NumGroups: m.NumGroups}
	for t := range m.Trees {
		tree := &m.Trees[t]
		if len(tree.Nodes) > s.MaxTreeNodes {
			s.MaxTreeNodes = len(tree.Nodes)
		}
		for i := range tree.Nodes {
			n := &tree.Nodes[i]
			if n.Leaf {
				if narrowingLossy(n.Value, tolerance) {
					s.RequiresF64 = true
				}
				continue
			}
			if n.Feature > s.MaxFeature {
				s.MaxFeature = n.Feature
			}
			if narrowingLossy(n.Threshold, tolerance) {
				s.RequiresF64 = true
			}
		}
	}
	return s
}

func narrowingLossy(v, tolerance float64) bool {
	if math.IsInf(v, 0) {
		return false
	}
	narrowed := float64(float32(v))
	if math.IsInf(narrowed, 0) {
		// Out of float32 range entirely.
		return true
	}
	diff := math.Abs(v - narrowed)
	if diff == 0 {
		return false
	}
	scale := math.Max(1, math.Abs(v))
	return diff > tolerance*scale
}
