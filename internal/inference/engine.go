package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/csadorf/herring/internal/forest"
	"github.com/csadorf/herring/internal/logger"
)

type Stats struct {
	Rows       int
	Duration   time.Duration
	RowsPerSec float64
}

type engineImpl struct {
	handle forest.Handle
	log    logger.Logger
}

func (e *engineImpl) Describe() Info {
	h := e.handle
	return Info{
		Trees:          h.Trees(),
		Features:       h.Features(),
		Groups:         h.Groups(),
		Aggregation:    h.Aggregation().String(),
		Specialization: h.Key().String(),
		Device:         h.Device().String(),
	}
}

// Predict evaluates one batch. The batch either completes in full or
// fails before any prediction is produced.
func (e *engineImpl) Predict(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.NumRows < 0 {
		return nil, fmt.Errorf("negative row count %d", req.NumRows)
	}
	if want := req.NumRows * e.handle.Features(); len(req.Rows) != want {
		return nil, fmt.Errorf("batch has %d values, want %d (%d rows of %d features)",
			len(req.Rows), want, req.NumRows, e.handle.Features())
	}

	groups := e.handle.Groups()
	out := make([]float32, req.NumRows*groups)

	start := time.Now()
	if err := e.handle.Infer(req.Rows, out, req.NumRows); err != nil {
		return nil, err
	}

	stats := Stats{Rows: req.NumRows, Duration: time.Since(start)}
	if stats.Duration.Seconds() > 0 {
		stats.RowsPerSec = float64(stats.Rows) / stats.Duration.Seconds()
	}
	e.log.Debug("batch evaluated", "rows", stats.Rows, "duration", stats.Duration)

	return &Result{Predictions: out, Groups: groups, Stats: stats}, nil
}

func (e *engineImpl) Close() error {
	if e == nil || e.handle == nil {
		return nil
	}
	err := e.handle.Close()
	e.handle = nil
	return err
}
