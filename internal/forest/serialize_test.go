package forest

import (
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
	"github.com/csadorf/herring/pkg/fcf"
)

func TestWriteReadRoundtrip(t *testing.T) {
	t.Parallel()
	m := &model.Model{
		NumFeatures: 2,
		NumGroups:   1,
		Agg:         model.AggAverage,
		Trees: []model.Tree{
			{Nodes: []model.Node{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, DefaultLeft: true},
				{Feature: 1, Threshold: -2, Left: 3, Right: 4},
				{Leaf: true, Value: 9},
				{Leaf: true, Value: -3},
				{Leaf: true, Value: 0.25},
			}},
			stump(0.75, 4, -4),
		},
	}
	orig := hostHandle(t, m, Options{})

	path := filepath.Join(t.TempDir(), "forest.fcf")
	if err := WriteFile(orig, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := ReadFile(path, device.CPU(), Options{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer loaded.Close()

	if loaded.Key() != orig.Key() {
		t.Fatalf("key changed across roundtrip: %s vs %s", loaded.Key(), orig.Key())
	}
	if loaded.Trees() != orig.Trees() || loaded.Features() != orig.Features() || loaded.Groups() != orig.Groups() {
		t.Fatal("forest shape changed across roundtrip")
	}
	if loaded.Aggregation() != orig.Aggregation() {
		t.Fatal("aggregation changed across roundtrip")
	}

	in := []float32{
		0.3, -5,
		0.3, 1,
		0.9, 0,
	}
	a := make([]float32, 3)
	b := make([]float32, 3)
	if err := orig.Infer(in, a, 3); err != nil {
		t.Fatalf("Infer original: %v", err)
	}
	if err := loaded.Infer(in, b, 3); err != nil {
		t.Fatalf("Infer loaded: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d: original %v, loaded %v", i, a[i], b[i])
		}
	}
}

func TestRoundtripWideKey(t *testing.T) {
	t.Parallel()
	m := singleTree(stump(1.0/3.0, -1, 1), 1)
	orig := hostHandle(t, m, Options{})
	if orig.Key().Threshold != W64 {
		t.Fatalf("precondition: expected f64 threshold, got %s", orig.Key())
	}

	path := filepath.Join(t.TempDir(), "wide.fcf")
	if err := WriteFile(orig, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := ReadFile(path, device.CPU(), Options{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer loaded.Close()

	out := make([]float32, 1)
	if err := loaded.Infer([]float32{0.25}, out, 1); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if out[0] != -1 {
		t.Fatalf("got %v, want -1", out[0])
	}
}

func TestReadRejectsUnknownSpecialization(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad-spec.fcf")
	// A 16-bit threshold width is never compiled.
	spec := fcf.SpecCode{16, 16, 16, 16}
	sections := []fcf.SectionData{{Kind: fcf.SectionInfo, Data: []byte("{}")}}
	if err := fcf.Write(path, spec, sections); err != nil {
		t.Fatalf("fcf.Write: %v", err)
	}
	_, err := ReadFile(path, device.CPU(), Options{})
	if !errors.Is(err, fcf.ErrUnsupportedSpecialization) {
		t.Fatalf("expected ErrUnsupportedSpecialization, got %v", err)
	}
}

func TestReadRejectsTruncatedSections(t *testing.T) {
	t.Parallel()
	m := sumModel()
	h := hostHandle(t, m, Options{})
	path := filepath.Join(t.TempDir(), "trunc.fcf")
	if err := WriteFile(h, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Rewrite with the root table dropped.
	f, err := fcf.Open(path)
	if err != nil {
		t.Fatalf("fcf.Open: %v", err)
	}
	var kept []fcf.SectionData
	for _, s := range f.Sections {
		if s.Kind == fcf.SectionRoots {
			continue
		}
		payload, err := f.Section(s.Kind)
		if err != nil {
			t.Fatalf("Section(%d): %v", s.Kind, err)
		}
		data := make([]byte, len(payload))
		copy(data, payload)
		kept = append(kept, fcf.SectionData{Kind: s.Kind, Data: data})
	}
	spec := f.Spec()
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stripped := filepath.Join(t.TempDir(), "stripped.fcf")
	if err := fcf.Write(stripped, spec, kept); err != nil {
		t.Fatalf("fcf.Write: %v", err)
	}

	if _, err := ReadFile(stripped, device.CPU(), Options{}); err == nil {
		t.Fatal("expected error for missing root table")
	}
}

// rewriteContainer copies the container at src to a fresh path with one
// section's payload replaced by mutate's result.
func rewriteContainer(t *testing.T, src string, kind uint32, mutate func([]byte) []byte) string {
	t.Helper()
	f, err := fcf.Open(src)
	if err != nil {
		t.Fatalf("fcf.Open: %v", err)
	}
	var sections []fcf.SectionData
	for _, s := range f.Sections {
		payload, err := f.Section(s.Kind)
		if err != nil {
			t.Fatalf("Section(%d): %v", s.Kind, err)
		}
		data := make([]byte, len(payload))
		copy(data, payload)
		if s.Kind == kind {
			data = mutate(data)
		}
		sections = append(sections, fcf.SectionData{Kind: s.Kind, Data: data})
	}
	spec := f.Spec()
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "tampered.fcf")
	if err := fcf.Write(dst, spec, sections); err != nil {
		t.Fatalf("fcf.Write: %v", err)
	}
	return dst
}

// A container whose sections decode cleanly can still describe a forest
// the kernel would walk out of bounds. Each case damages one structural
// invariant of a valid two-stump container; all must fail at load time,
// before any row is evaluated.
func TestReadRejectsTamperedStructure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		kind   uint32
		mutate func([]byte) []byte
	}{
		{
			// Feature 16383 against a 1-feature model would index past
			// the end of every input row.
			name: "feature out of range",
			kind: fcf.SectionMeta,
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b, 0x3fff)
				return b
			},
		},
		{
			name: "offset escapes tree",
			kind: fcf.SectionOffsets,
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b, 100)
				return b
			},
		},
		{
			// Moving tree 1's start sends tree 0's traversal into its
			// neighbor's nodes.
			name: "root crosses into neighbor",
			kind: fcf.SectionRoots,
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint64(b[8:], 5)
				return b
			},
		},
		{
			name: "root table not starting at zero",
			kind: fcf.SectionRoots,
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint64(b, 1)
				return b
			},
		},
		{
			name: "groups not dividing trees",
			kind: fcf.SectionInfo,
			mutate: func([]byte) []byte {
				return []byte(`{"trees":2,"features":1,"groups":3,"aggregation":"sum"}`)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := hostHandle(t, sumModel(), Options{})
			path := filepath.Join(t.TempDir(), "good.fcf")
			if err := WriteFile(h, path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			tampered := rewriteContainer(t, path, tc.kind, tc.mutate)
			if _, err := ReadFile(tampered, device.CPU(), Options{}); !errors.Is(err, fcf.ErrCorruptFile) {
				t.Fatalf("expected ErrCorruptFile, got %v", err)
			}
		})
	}
}

func TestReadRejectsVoteClassOutOfRange(t *testing.T) {
	t.Parallel()
	m := &model.Model{
		Trees:       []model.Tree{stump(0.5, 0, 1), stump(0.5, 0, 1), stump(0.5, 1, 0)},
		NumFeatures: 1,
		NumGroups:   2,
		Agg:         model.AggVote,
	}
	h := hostHandle(t, m, Options{})
	path := filepath.Join(t.TempDir(), "vote.fcf")
	if err := WriteFile(h, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Leaf votes index the accumulator directly; class 9 of 2 would
	// write past it.
	tampered := rewriteContainer(t, path, fcf.SectionValues, func(b []byte) []byte {
		binary.LittleEndian.PutUint32(b[4:], math.Float32bits(9))
		return b
	})
	if _, err := ReadFile(tampered, device.CPU(), Options{}); !errors.Is(err, fcf.ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}
