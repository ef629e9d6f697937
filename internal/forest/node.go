package forest

import "unsafe"

// Type sets for the specialization dimensions. The catalog in key.go
// enumerates every combination that gets instantiated.
type thresholdType interface{ ~float32 | ~float64 }
type indexType interface{ ~uint16 | ~uint32 }
type metadataType interface{ ~uint16 | ~uint32 }
type offsetType interface{ ~uint16 | ~uint32 }

// node is one packed tree node. Internal nodes store the split
// threshold in value and the distant-child distance in off; the near
// child is always adjacent at +1. Leaves store their output in value
// with off unused.
//
// The metadata word packs, from the top bit down: the leaf flag, the
// default-near flag (missing values go to the near child when set), and
// the feature index in the remaining bits.
type node[T thresholdType, M metadataType, O offsetType] struct {
	value T
	meta  M
	off   O
}

func metaBits[M metadataType]() uint {
	return uint(unsafe.Sizeof(M(0))) * 8
}

func leafFlag[M metadataType]() M {
	return M(1) << (metaBits[M]() - 1)
}

func defaultNearFlag[M metadataType]() M {
	return M(1) << (metaBits[M]() - 2)
}

// featureMaskBits is the number of metadata bits available for the
// feature index (and, by extension, the output group count) after the
// two flag bits.
func featureMask[M metadataType]() M {
	return defaultNearFlag[M]() - 1
}

func packMeta[M metadataType](leaf, defaultNear bool, feature int) M {
	var m M
	if leaf {
		m |= leafFlag[M]()
	}
	if defaultNear {
		m |= defaultNearFlag[M]()
	}
	return m | (M(feature) & featureMask[M]())
}

func (n node[T, M, O]) isLeaf() bool {
	return n.meta&leafFlag[M]() != 0
}

func (n node[T, M, O]) defaultNear() bool {
	return n.meta&defaultNearFlag[M]() != 0
}

func (n node[T, M, O]) feature() int {
	return int(n.meta & featureMask[M]())
}
