package inference

import "context"

type Engine interface {
	Predict(ctx context.Context, req *Request) (*Result, error)
	Describe() Info
	Close() error
}

// Request carries one batch in row-major order: NumRows rows of
// Features values each.
type Request struct {
	Rows    []float32
	NumRows int
}

type Result struct {
	// Predictions is row-major, one value per output group per row.
	Predictions []float32
	Groups      int
	Stats       Stats
}

// Info describes a loaded forest.
type Info struct {
	Trees          int
	Features       int
	Groups         int
	Aggregation    string
	Specialization string
	Device         string
}
