package forest

import (
	"errors"
	"testing"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
)

// leftComb builds a tree of 2k+1 nodes whose internal nodes chain down
// the left spine. Packing places each near (left) subtree adjacently, so
// the root's distant-child offset grows with k.
func leftComb(k int) model.Tree {
	nodes := make([]model.Node, 0, 2*k+1)
	for i := 0; i < k; i++ {
		nodes = append(nodes, model.Node{
			Feature:   0,
			Threshold: 0.5,
			Left:      len(nodes) + 1,
			Right:     2*k - i,
		})
	}
	nodes = append(nodes, model.Node{Leaf: true, Value: 1})
	for i := 0; i < k; i++ {
		nodes = append(nodes, model.Node{Leaf: true, Value: 2})
	}
	return model.Tree{Nodes: nodes}
}

func singleTree(tr model.Tree, features int) *model.Model {
	return &model.Model{
		Trees:       []model.Tree{tr},
		NumFeatures: features,
		NumGroups:   1,
		Agg:         model.AggSum,
	}
}

func TestSelectNarrowestKey(t *testing.T) {
	t.Parallel()
	k, err := Select(sumModel(), Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := Key{Threshold: W32, Index: W16, Metadata: W16, Offset: W16}
	if k != want {
		t.Fatalf("got %s, want %s", k, want)
	}
}

func TestSelectThresholdWidth(t *testing.T) {
	t.Parallel()
	m := singleTree(stump(1.0/3.0, -1, 1), 1)

	k, err := Select(m, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if k.Threshold != W64 {
		t.Fatalf("1/3 with zero tolerance: threshold width %d, want %d", k.Threshold, W64)
	}

	k, err = Select(m, Options{Tolerance: 1e-6})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if k.Threshold != W32 {
		t.Fatalf("1/3 with 1e-6 tolerance: threshold width %d, want %d", k.Threshold, W32)
	}
}

func TestSelectIndexWidth(t *testing.T) {
	t.Parallel()
	// 2*16400+1 = 32801 nodes, just over the 16-bit limit.
	m := singleTree(leftComb(16400), 1)
	k, err := Select(m, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if k.Index != W32 {
		t.Fatalf("32801-node tree: index width %d, want %d", k.Index, W32)
	}
	if k.Offset != W16 {
		t.Fatalf("max offset 32800: offset width %d, want %d", k.Offset, W16)
	}
}

func TestSelectOffsetWidth(t *testing.T) {
	t.Parallel()
	// The root's distant-child offset is 2k = 80000, beyond uint16.
	m := singleTree(leftComb(40000), 1)
	k, err := Select(m, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if k.Offset != W32 {
		t.Fatalf("offset 80000: offset width %d, want %d", k.Offset, W32)
	}
}

func TestSelectMetadataWidth(t *testing.T) {
	t.Parallel()
	tr := stump(0.5, -1, 1)
	tr.Nodes[0].Feature = 20000
	m := singleTree(tr, 20001)
	k, err := Select(m, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if k.Metadata != W32 {
		t.Fatalf("feature 20000: metadata width %d, want %d", k.Metadata, W32)
	}
}

func TestSelectRejectsOverwideFeature(t *testing.T) {
	t.Parallel()
	tr := stump(0.5, -1, 1)
	tr.Nodes[0].Feature = 1 << 30
	m := singleTree(tr, 1<<30+1)
	_, err := Select(m, Options{})
	if !errors.Is(err, ErrUnsupportedModelShape) {
		t.Fatalf("expected ErrUnsupportedModelShape, got %v", err)
	}
}

func TestNewRejectsUnsupportedShape(t *testing.T) {
	t.Parallel()
	tr := stump(0.5, -1, 1)
	tr.Nodes[0].Feature = 1 << 30
	m := singleTree(tr, 1<<30+1)
	_, err := New(m, device.CPU(), Options{})
	if !errors.Is(err, ErrUnsupportedModelShape) {
		t.Fatalf("expected ErrUnsupportedModelShape, got %v", err)
	}
}

func TestWideSpecializationsEvaluate(t *testing.T) {
	t.Parallel()
	// An f64 threshold plus a wide feature index exercises the non-default
	// catalog entries end to end.
	tr := model.Tree{Nodes: []model.Node{
		{Feature: 20000, Threshold: 1.0 / 3.0, Left: 1, Right: 2, DefaultLeft: true},
		{Leaf: true, Value: -1},
		{Leaf: true, Value: 1},
	}}
	m := singleTree(tr, 20001)
	h := hostHandle(t, m, Options{})

	want := Key{Threshold: W64, Index: W16, Metadata: W32, Offset: W16}
	if h.Key() != want {
		t.Fatalf("handle key %s, want %s", h.Key(), want)
	}

	in := make([]float32, 20001)
	out := make([]float32, 1)
	in[20000] = 0.25
	if err := h.Infer(in, out, 1); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if out[0] != -1 {
		t.Fatalf("0.25 < 1/3: got %v, want -1", out[0])
	}
	in[20000] = 0.5
	if err := h.Infer(in, out, 1); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if out[0] != 1 {
		t.Fatalf("0.5 >= 1/3: got %v, want 1", out[0])
	}
}

func TestCatalogCoversCrossProduct(t *testing.T) {
	t.Parallel()
	if len(Catalog) != 16 {
		t.Fatalf("catalog has %d entries, want 16", len(Catalog))
	}
	seen := make(map[Key]bool, len(Catalog))
	for _, k := range Catalog {
		if seen[k] {
			t.Fatalf("duplicate catalog entry %s", k)
		}
		seen[k] = true
		if !k.InCatalog() {
			t.Fatalf("%s.InCatalog() = false for catalog entry", k)
		}
	}
	if (Key{Threshold: W16, Index: W16, Metadata: W16, Offset: W16}).InCatalog() {
		t.Fatal("16-bit threshold must not be a catalog entry")
	}
}
