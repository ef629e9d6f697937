// Package forest holds the packed, device-resident representation of a
// decision forest and the specialized traversal kernel that evaluates
// it. Each specialization in the catalog is a distinct generic
// instantiation; the dispatcher picks one per model at load time so the
// per-row loop runs without any dynamic dispatch.
package forest

import (
	"errors"
	"fmt"
)

// ErrUnsupportedModelShape is returned when no catalog entry can
// represent a model. This is terminal for that model; there is no
// degraded fallback.
var ErrUnsupportedModelShape = errors.New("unsupported model shape")

// Width is a numeric storage width in bits.
type Width uint8

const (
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Key names one specialization: the storage widths for split
// thresholds (and leaf values), per-tree node indices, per-node
// metadata words, and distant-child offsets. Exactly one Key is chosen
// per loaded model and never changes for the model's lifetime.
type Key struct {
	Threshold Width // W32 or W64, floating
	Index     Width // W16 or W32
	Metadata  Width // W16 or W32
	Offset    Width // W16 or W32
}

// String renders the key in its canonical compact form, e.g.
// "f32/i16/m16/o16". This string versions the serialized container
// format and keys device initialization.
func (k Key) String() string {
	return fmt.Sprintf("f%d/i%d/m%d/o%d", k.Threshold, k.Index, k.Metadata, k.Offset)
}

// Catalog is the closed set of compiled specializations, narrowest
// first. Every entry corresponds to one instantiation of the forest and
// kernel code; the set is fixed at build time and not extensible at
// runtime.
var Catalog = []Key{
	{W32, W16, W16, W16},
	{W32, W16, W16, W32},
	{W32, W16, W32, W16},
	{W32, W16, W32, W32},
	{W32, W32, W16, W16},
	{W32, W32, W16, W32},
	{W32, W32, W32, W16},
	{W32, W32, W32, W32},
	{W64, W16, W16, W16},
	{W64, W16, W16, W32},
	{W64, W16, W32, W16},
	{W64, W16, W32, W32},
	{W64, W32, W16, W16},
	{W64, W32, W16, W32},
	{W64, W32, W32, W16},
	{W64, W32, W32, W32},
}

// InCatalog reports whether k names a compiled specialization.
func (k Key) InCatalog() bool {
	for _, c := range Catalog {
		if c == k {
			return true
		}
	}
	return false
}
