package forest

import (
	"fmt"
	"math"

	"github.com/csadorf/herring/internal/model"
)

// Options configures selection and construction.
type Options struct {
	// Tolerance is the acceptable relative error when narrowing split
	// thresholds and leaf values to float32. Zero demands exact
	// representation.
	Tolerance float64
	// Workers bounds host-side evaluation parallelism; zero means one
	// worker per available CPU.
	Workers int
}

// Per-dimension capacity limits. The index dimension reserves its top
// bit as the leaf/internal tag in derived encodings, so a width of b
// bits admits at most 2^(b-1) nodes per tree. The metadata dimension
// reserves two flag bits ahead of the feature index.
const (
	maxNodesI16 = 1 << 15
	maxNodesI32 = 1 << 31

	maxFeatureM16 = 1<<14 - 1
	maxFeatureM32 = 1<<30 - 1
)

// Select inspects the model's structural statistics and returns the
// narrowest catalog entry that can represent it. Selection happens once
// per model, before any evaluation; if no entry fits, the model cannot
// be served by this engine and ErrUnsupportedModelShape is returned.
func Select(m *model.Model, opts Options) (Key, error) {
	k, _, err := selectPlans(m, opts)
	return k, err
}

// selectPlans is Select plus the per-tree packing plans it computed
// along the way, so construction does not have to re-walk every tree.
func selectPlans(m *model.Model, opts Options) (Key, []treePlan, error) {
	stats := m.ComputeStats(opts.Tolerance)
	plans := planForest(m)
	maxOffset := 0
	for _, p := range plans {
		if p.maxOffset > maxOffset {
			maxOffset = p.maxOffset
		}
	}

	var k Key

	if stats.RequiresF64 {
		k.Threshold = W64
	} else {
		k.Threshold = W32
	}

	switch {
	case stats.MaxTreeNodes <= maxNodesI16:
		k.Index = W16
	case stats.MaxTreeNodes <= maxNodesI32:
		k.Index = W32
	default:
		return Key{}, nil, fmt.Errorf("%w: tree with %d nodes exceeds the widest index type (max %d)", ErrUnsupportedModelShape, stats.MaxTreeNodes, maxNodesI32)
	}

	meta := stats.MaxFeature
	if stats.NumGroups > meta {
		meta = stats.NumGroups
	}
	switch {
	case meta <= maxFeatureM16:
		k.Metadata = W16
	case meta <= maxFeatureM32:
		k.Metadata = W32
	default:
		return Key{}, nil, fmt.Errorf("%w: feature index or group count %d exceeds the widest metadata type (max %d)", ErrUnsupportedModelShape, meta, maxFeatureM32)
	}

	switch {
	case maxOffset <= math.MaxUint16:
		k.Offset = W16
	case maxOffset <= math.MaxUint32:
		k.Offset = W32
	default:
		return Key{}, nil, fmt.Errorf("%w: child offset %d exceeds the widest offset type", ErrUnsupportedModelShape, maxOffset)
	}

	// Per-dimension minima always compose into a catalog entry; the
	// catalog is the full cross product.
	if !k.InCatalog() {
		return Key{}, nil, fmt.Errorf("%w: selected %s is not a compiled specialization", ErrUnsupportedModelShape, k)
	}
	return k, plans, nil
}
