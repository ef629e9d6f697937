package inference

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/forest"
	"github.com/csadorf/herring/internal/model"
)

func writeModelFile(t *testing.T) string {
	t.Helper()
	m := &model.Model{
		NumFeatures: 1,
		NumGroups:   1,
		Agg:         model.AggSum,
		Trees: []model.Tree{
			{Nodes: []model.Node{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, DefaultLeft: true},
				{Leaf: true, Value: -1},
				{Leaf: true, Value: 1},
			}},
			{Nodes: []model.Node{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, DefaultLeft: true},
				{Leaf: true, Value: -1},
				{Leaf: true, Value: 1},
			}},
		},
	}
	data, err := model.MarshalModel(m)
	if err != nil {
		t.Fatalf("MarshalModel: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadEngine(t *testing.T, path string) Engine {
	t.Helper()
	eng, err := Loader{}.Load(path, device.CPU())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestLoadJSONModelAndPredict(t *testing.T) {
	t.Parallel()
	eng := loadEngine(t, writeModelFile(t))

	res, err := eng.Predict(context.Background(), &Request{
		Rows:    []float32{0.3, 0.7},
		NumRows: 2,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Groups != 1 || len(res.Predictions) != 2 {
		t.Fatalf("unexpected result shape: groups=%d len=%d", res.Groups, len(res.Predictions))
	}
	if res.Predictions[0] != -2 || res.Predictions[1] != 2 {
		t.Fatalf("predictions = %v, want [-2 2]", res.Predictions)
	}
	if res.Stats.Rows != 2 {
		t.Fatalf("stats rows = %d, want 2", res.Stats.Rows)
	}
}

func TestLoadPackedContainer(t *testing.T) {
	t.Parallel()
	m, err := model.LoadFile(writeModelFile(t))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	h, err := forest.New(m, device.CPU(), forest.Options{})
	if err != nil {
		t.Fatalf("forest.New: %v", err)
	}
	defer h.Close()

	path := filepath.Join(t.TempDir(), "model.fcf")
	if err := forest.WriteFile(h, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	eng := loadEngine(t, path)
	res, err := eng.Predict(context.Background(), &Request{Rows: []float32{0.9}, NumRows: 1})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Predictions[0] != 2 {
		t.Fatalf("prediction = %v, want 2", res.Predictions[0])
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	eng := loadEngine(t, writeModelFile(t))
	info := eng.Describe()
	if info.Trees != 2 || info.Features != 1 || info.Groups != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Aggregation != "sum" {
		t.Fatalf("aggregation = %q, want sum", info.Aggregation)
	}
	if info.Specialization != "f32/i16/m16/o16" {
		t.Fatalf("specialization = %q", info.Specialization)
	}
	if info.Device != "host" {
		t.Fatalf("device = %q, want host", info.Device)
	}
}

func TestPredictRejectsBadBatch(t *testing.T) {
	t.Parallel()
	eng := loadEngine(t, writeModelFile(t))
	ctx := context.Background()

	if _, err := eng.Predict(ctx, nil); err == nil {
		t.Fatal("expected error for nil request")
	}
	if _, err := eng.Predict(ctx, &Request{Rows: []float32{1}, NumRows: 2}); err == nil {
		t.Fatal("expected error for short batch")
	}
	if _, err := eng.Predict(ctx, &Request{NumRows: -1}); err == nil {
		t.Fatal("expected error for negative rows")
	}

	res, err := eng.Predict(ctx, &Request{})
	if err != nil {
		t.Fatalf("empty batch must succeed: %v", err)
	}
	if len(res.Predictions) != 0 {
		t.Fatalf("empty batch produced %d predictions", len(res.Predictions))
	}
}

func TestPredictHonorsCanceledContext(t *testing.T) {
	t.Parallel()
	eng := loadEngine(t, writeModelFile(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Predict(ctx, &Request{Rows: []float32{0.5}, NumRows: 1}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := (Loader{}).Load(filepath.Join(t.TempDir(), "absent.json"), device.CPU()); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := (Loader{}).Load("  ", device.CPU()); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	eng := loadEngine(t, writeModelFile(t))
	if err := eng.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
