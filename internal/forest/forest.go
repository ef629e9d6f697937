package forest

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
	"github.com/csadorf/herring/pkg/fcf"
)

// forest is one host-resident specialization instance. Nodes are packed
// tree-major: all nodes of tree t occupy nodes[roots[t]:roots[t+1]]
// with the root first. Immutable after construction.
type forest[T thresholdType, I indexType, M metadataType, O offsetType] struct {
	nodes []node[T, M, O]
	roots []int // len trees+1

	key      Key
	dev      device.ID
	trees    int
	features int
	groups   int
	agg      model.Aggregation
	workers  int
}

func (f *forest[T, I, M, O]) Key() Key                       { return f.key }
func (f *forest[T, I, M, O]) Device() device.ID              { return f.dev }
func (f *forest[T, I, M, O]) Trees() int                     { return f.trees }
func (f *forest[T, I, M, O]) Features() int                  { return f.features }
func (f *forest[T, I, M, O]) Groups() int                    { return f.groups }
func (f *forest[T, I, M, O]) Aggregation() model.Aggregation { return f.agg }

func (f *forest[T, I, M, O]) Close() error { return nil }

func (f *forest[T, I, M, O]) validateBatch(in []float32, out []float32, rows int) error {
	if rows < 0 {
		return fmt.Errorf("negative row count %d", rows)
	}
	if len(in) != rows*f.features {
		return fmt.Errorf("input length %d, want rows*features = %d*%d", len(in), rows, f.features)
	}
	if len(out) != rows*f.groups {
		return fmt.Errorf("output length %d, want rows*groups = %d*%d", len(out), rows, f.groups)
	}
	return nil
}

// pack converts the in-memory node array to the layout-stable byte
// form used by the serializer and the GPU uploader.
func (f *forest[T, I, M, O]) pack() *packed {
	p := &packed{
		key:      f.key,
		roots:    make([]uint64, len(f.roots)),
		trees:    f.trees,
		features: f.features,
		groups:   f.groups,
		agg:      f.agg,
	}
	for i, r := range f.roots {
		p.roots[i] = uint64(r)
	}
	tw := int(unsafe.Sizeof(T(0)))
	mw := int(unsafe.Sizeof(M(0)))
	ow := int(unsafe.Sizeof(O(0)))
	p.values = make([]byte, len(f.nodes)*tw)
	p.metas = make([]byte, len(f.nodes)*mw)
	p.offs = make([]byte, len(f.nodes)*ow)
	for i, n := range f.nodes {
		putValue(p.values[i*tw:], n.value)
		putUint(p.metas[i*mw:], uint64(n.meta), mw)
		putUint(p.offs[i*ow:], uint64(n.off), ow)
	}
	return p
}

// unpack rebuilds the node array from the byte form. The key encoded in
// p must match this instantiation.
func unpack[T thresholdType, I indexType, M metadataType, O offsetType](p *packed, dev device.ID, workers int) (*forest[T, I, M, O], error) {
	tw := int(unsafe.Sizeof(T(0)))
	mw := int(unsafe.Sizeof(M(0)))
	ow := int(unsafe.Sizeof(O(0)))
	count := len(p.metas) / mw
	if len(p.metas)%mw != 0 || len(p.values) != count*tw || len(p.offs) != count*ow {
		return nil, fmt.Errorf("%w: inconsistent packed array lengths: values=%d metas=%d offsets=%d", fcf.ErrCorruptFile, len(p.values), len(p.metas), len(p.offs))
	}
	if p.trees < 1 || len(p.roots) != p.trees+1 {
		return nil, fmt.Errorf("%w: root table has %d entries for %d trees", fcf.ErrCorruptFile, len(p.roots), p.trees)
	}
	if p.roots[p.trees] != uint64(count) {
		return nil, fmt.Errorf("%w: root table covers %d nodes, arrays hold %d", fcf.ErrCorruptFile, p.roots[p.trees], count)
	}
	f := &forest[T, I, M, O]{
		nodes:    make([]node[T, M, O], count),
		roots:    make([]int, len(p.roots)),
		key:      p.key,
		dev:      dev,
		trees:    p.trees,
		features: p.features,
		groups:   p.groups,
		agg:      p.agg,
		workers:  workers,
	}
	for i := range p.roots {
		f.roots[i] = int(p.roots[i])
	}
	for i := range f.nodes {
		f.nodes[i] = node[T, M, O]{
			value: getValue[T](p.values[i*tw:]),
			meta:  M(getUint(p.metas[i*mw:], mw)),
			off:   O(getUint(p.offs[i*ow:], ow)),
		}
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// validate walks an unpacked forest and rejects anything the kernel
// relies on the builder to guarantee. The kernel itself never checks
// these, so a container that skips this walk can send traversal out of
// bounds or into another tree's nodes.
func (f *forest[T, I, M, O]) validate() error {
	if f.features < 1 {
		return fmt.Errorf("%w: feature count %d", fcf.ErrCorruptFile, f.features)
	}
	if f.groups < 1 {
		return fmt.Errorf("%w: group count %d", fcf.ErrCorruptFile, f.groups)
	}
	if f.agg != model.AggVote && f.trees%f.groups != 0 {
		return fmt.Errorf("%w: %d trees cannot split into %d groups", fcf.ErrCorruptFile, f.trees, f.groups)
	}
	if f.roots[0] != 0 {
		return fmt.Errorf("%w: root table starts at %d", fcf.ErrCorruptFile, f.roots[0])
	}
	for t := 0; t < f.trees; t++ {
		start, end := f.roots[t], f.roots[t+1]
		if end <= start || end > len(f.nodes) {
			return fmt.Errorf("%w: tree %d spans [%d, %d) of %d nodes", fcf.ErrCorruptFile, t, start, end, len(f.nodes))
		}
		for i := start; i < end; i++ {
			n := f.nodes[i]
			if n.isLeaf() {
				if f.agg == model.AggVote {
					if c := int(n.value); c < 0 || c >= f.groups || n.value != T(c) {
						return fmt.Errorf("%w: leaf %d votes for class %v of %d", fcf.ErrCorruptFile, i, n.value, f.groups)
					}
				}
				continue
			}
			if n.feature() >= f.features {
				return fmt.Errorf("%w: node %d splits on feature %d of %d", fcf.ErrCorruptFile, i, n.feature(), f.features)
			}
			// Near child sits at i+1, distant at i+off; both must stay
			// inside the owning tree's range.
			if off := int(n.off); off < 2 || i+off >= end {
				return fmt.Errorf("%w: node %d child offset %d escapes tree %d", fcf.ErrCorruptFile, i, int(n.off), t)
			}
		}
	}
	return nil
}

func putValue[T thresholdType](b []byte, v T) {
	switch unsafe.Sizeof(v) {
	case 4:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	default:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	}
}

func getValue[T thresholdType](b []byte) T {
	switch unsafe.Sizeof(T(0)) {
	case 4:
		return T(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return T(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
}

func putUint(b []byte, v uint64, width int) {
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	default:
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func getUint(b []byte, width int) uint64 {
	switch width {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	default:
		return uint64(binary.LittleEndian.Uint32(b))
	}
}
