//go:build cuda

package native

/*
typedef int cudaError_t;
extern const char* cudaGetErrorString(cudaError_t err);

// Launcher implemented in libherringfil (scripts/cuda). The width codes
// select one of the precompiled kernel instantiations before launch, so
// the per-row traversal itself carries no dispatch.
typedef struct {
	const void*        values;     // packed node values, threshold-typed
	const void*        metas;      // packed node metadata words
	const void*        offsets;    // packed distant-child offsets
	const unsigned long long* roots; // per-tree start positions, trees+1 entries
	unsigned long long trees;
	unsigned int       features;
	unsigned int       groups;
	unsigned char      aggregation;     // 0 sum, 1 average, 2 vote
	unsigned char      threshold_width; // bits: 32 or 64
	unsigned char      index_width;     // bits: 16 or 32
	unsigned char      metadata_width;  // bits: 16 or 32
	unsigned char      offset_width;    // bits: 16 or 32
} herring_forest_desc;

extern int herring_forest_eval(
	const herring_forest_desc* desc,
	const float* in,
	float* out,
	unsigned long long rows);
*/
import "C"

import "fmt"

// ForestDesc describes a device-resident forest for kernel launch.
type ForestDesc struct {
	Values   Buffer
	Metas    Buffer
	Offsets  Buffer
	Roots    Buffer
	Trees    uint64
	Features uint32
	Groups   uint32

	Aggregation    uint8
	ThresholdWidth uint8
	IndexWidth     uint8
	MetadataWidth  uint8
	OffsetWidth    uint8
}

// ForestEval evaluates rows feature vectors against the device forest,
// writing rows*groups outputs. in and out are device buffers.
func ForestEval(desc ForestDesc, in, out Buffer, rows uint64) error {
	cdesc := C.herring_forest_desc{
		values:          desc.Values.ptr,
		metas:           desc.Metas.ptr,
		offsets:         desc.Offsets.ptr,
		roots:           (*C.ulonglong)(desc.Roots.ptr),
		trees:           C.ulonglong(desc.Trees),
		features:        C.uint(desc.Features),
		groups:          C.uint(desc.Groups),
		aggregation:     C.uchar(desc.Aggregation),
		threshold_width: C.uchar(desc.ThresholdWidth),
		index_width:     C.uchar(desc.IndexWidth),
		metadata_width:  C.uchar(desc.MetadataWidth),
		offset_width:    C.uchar(desc.OffsetWidth),
	}
	rc := C.herring_forest_eval(&cdesc, (*C.float)(in.ptr), (*C.float)(out.ptr), C.ulonglong(rows))
	if rc != 0 {
		return fmt.Errorf("forest eval kernel failed: cuda error %d: %s", int(rc), C.GoString(C.cudaGetErrorString(C.cudaError_t(rc))))
	}
	return Synchronize()
}
