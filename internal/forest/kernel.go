package forest

import (
	"runtime"
	"sync"

	"github.com/csadorf/herring/internal/model"
)

// Traversal policy: a row's feature value strictly below the node
// threshold goes to the near child at +1; greater-or-equal goes to the
// distant child at +offset. Missing values (NaN) go to the near child
// when the node's default-near flag is set, to the distant child
// otherwise. Rows never fail mid-batch.

// evalTree walks one tree from its root to a leaf and returns the leaf
// value. tree is the root-first node slice of a single tree.
func evalTree[T thresholdType, I indexType, M metadataType, O offsetType](tree []node[T, M, O], row []float32) T {
	i := I(0)
	n := tree[i]
	for !n.isLeaf() {
		v := row[n.feature()]
		if v != v { // NaN
			if n.defaultNear() {
				i++
			} else {
				i += I(n.off)
			}
		} else if T(v) < n.value {
			i++
		} else {
			i += I(n.off)
		}
		n = tree[i]
	}
	return n.value
}

// evalRow evaluates every tree for one row, accumulating into acc
// (length groups), then writes each group output exactly once.
func (f *forest[T, I, M, O]) evalRow(row []float32, out []float32, acc []T) {
	for g := range acc {
		acc[g] = 0
	}
	if f.agg == model.AggVote {
		for t := 0; t < f.trees; t++ {
			tree := f.nodes[f.roots[t]:f.roots[t+1]]
			acc[int(evalTree[T, I](tree, row))]++
		}
	} else {
		for t := 0; t < f.trees; t++ {
			tree := f.nodes[f.roots[t]:f.roots[t+1]]
			acc[t%f.groups] += evalTree[T, I](tree, row)
		}
	}
	if f.agg == model.AggAverage {
		norm := T(f.trees / f.groups)
		for g := range acc {
			out[g] = float32(acc[g] / norm)
		}
		return
	}
	for g := range acc {
		out[g] = float32(acc[g])
	}
}

// Infer evaluates the batch on the host, partitioning rows across a
// bounded worker pool. Each worker owns its rows' output slices
// exclusively, so the hot path takes no locks.
func (f *forest[T, I, M, O]) Infer(in []float32, out []float32, rows int) error {
	if err := f.validateBatch(in, out, rows); err != nil {
		return err
	}
	if rows == 0 {
		return nil
	}
	workers := f.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > rows {
		workers = rows
	}
	if workers == 1 {
		f.inferRange(in, out, 0, rows)
		return nil
	}
	chunk := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < rows; start += chunk {
		end := start + chunk
		if end > rows {
			end = rows
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			f.inferRange(in, out, start, end)
		}(start, end)
	}
	wg.Wait()
	return nil
}

func (f *forest[T, I, M, O]) inferRange(in []float32, out []float32, start, end int) {
	acc := make([]T, f.groups)
	for r := start; r < end; r++ {
		row := in[r*f.features : (r+1)*f.features]
		dst := out[r*f.groups : (r+1)*f.groups]
		f.evalRow(row, dst, acc)
	}
}
