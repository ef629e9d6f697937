package forest

import (
	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
)

// Handle is the uniform runtime view of one specialized, device-bound
// forest. Construction goes through New (or ReadFile); the concrete
// type behind the interface is fixed by the chosen Key. The interface
// is crossed once per batch, never per row.
type Handle interface {
	Key() Key
	Device() device.ID
	Trees() int
	Features() int
	Groups() int
	Aggregation() model.Aggregation

	// Infer evaluates rows feature vectors laid out row-major in in
	// (rows*Features values) and writes rows*Groups outputs to out.
	// The batch completes fully or fails before any row is evaluated;
	// on error the contents of out are unspecified.
	Infer(in []float32, out []float32, rows int) error

	// Close releases device-resident state. Host handles hold no such
	// state and return nil.
	Close() error

	// pack exposes the serialized byte form; keeping it unexported
	// closes the interface to this package.
	pack() *packed
}

// packed is the layout-stable byte form of a forest, shared by the
// container serializer and the GPU uploader. All arrays are
// little-endian with element widths given by the key.
type packed struct {
	key      Key
	roots    []uint64 // trees+1 prefix positions into the node arrays
	values   []byte   // thresholds / leaf values
	metas    []byte   // metadata words
	offs     []byte   // distant-child offsets
	trees    int
	features int
	groups   int
	agg      model.Aggregation
}
