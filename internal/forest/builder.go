package forest

import (
	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
)

// treePlan is the packed ordering of one tree: a hot-child-first
// preorder walk, so every near (left) child lands adjacent to its
// parent and only the distant child needs a stored offset.
type treePlan struct {
	order     []int // packed position -> model node index
	offsets   []int // per packed position, distance to the distant child (0 for leaves)
	maxOffset int
}

func planTree(t *model.Tree) treePlan {
	n := len(t.Nodes)
	p := treePlan{
		order:   make([]int, 0, n),
		offsets: make([]int, n),
	}
	pos := make([]int, n)

	var walk func(i int)
	walk = func(i int) {
		pos[i] = len(p.order)
		p.order = append(p.order, i)
		node := &t.Nodes[i]
		if node.Leaf {
			return
		}
		walk(node.Left)
		walk(node.Right)
	}
	walk(0)

	for packedPos, i := range p.order {
		node := &t.Nodes[i]
		if node.Leaf {
			continue
		}
		off := pos[node.Right] - packedPos
		p.offsets[packedPos] = off
		if off > p.maxOffset {
			p.maxOffset = off
		}
	}
	return p
}

func planForest(m *model.Model) []treePlan {
	plans := make([]treePlan, len(m.Trees))
	for t := range m.Trees {
		plans[t] = planTree(&m.Trees[t])
	}
	return plans
}

// build materializes one specialization instance from the parsed model.
// plans must come from planForest on the same model; selection already
// computed them. The whole forest is packed before the handle is
// returned; there is no streamed construction.
func build[T thresholdType, I indexType, M metadataType, O offsetType](m *model.Model, key Key, plans []treePlan, dev device.ID, workers int) *forest[T, I, M, O] {
	total := 0
	for t := range m.Trees {
		total += len(m.Trees[t].Nodes)
	}
	f := &forest[T, I, M, O]{
		nodes:    make([]node[T, M, O], 0, total),
		roots:    make([]int, 0, len(m.Trees)+1),
		key:      key,
		dev:      dev,
		trees:    len(m.Trees),
		features: m.NumFeatures,
		groups:   m.NumGroups,
		agg:      m.Agg,
		workers:  workers,
	}
	for t := range m.Trees {
		f.roots = append(f.roots, len(f.nodes))
		tree := &m.Trees[t]
		plan := plans[t]
		for packedPos, i := range plan.order {
			src := &tree.Nodes[i]
			if src.Leaf {
				f.nodes = append(f.nodes, node[T, M, O]{
					value: T(src.Value),
					meta:  packMeta[M](true, false, 0),
				})
				continue
			}
			f.nodes = append(f.nodes, node[T, M, O]{
				value: T(src.Threshold),
				meta:  packMeta[M](false, src.DefaultLeft, src.Feature),
				off:   O(plan.offsets[packedPos]),
			})
		}
	}
	f.roots = append(f.roots, len(f.nodes))
	return f
}
