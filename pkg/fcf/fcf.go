// Package fcf implements the Forest Container Format, the on-disk form
// of a packed forest. A container is versioned by both a format major
// version and the specialization code of the packed arrays it holds;
// loaders must reject codes outside their compiled catalog.
//
// Layout: fixed header, section payloads, section directory at the
// tail. All integers are little-endian.
package fcf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid FCF magic")
	ErrUnsupportedMajor = errors.New("unsupported FCF major version")
	ErrCorruptFile      = errors.New("corrupt FCF file")
	// ErrUnsupportedSpecialization is returned by loaders when the
	// container's specialization code is not in the compiled catalog.
	ErrUnsupportedSpecialization = errors.New("unsupported forest specialization")
	ErrMissingSection            = errors.New("missing FCF section")
)

// Section kinds.
const (
	SectionInfo    uint32 = 1 // forest metadata, JSON
	SectionRoots   uint32 = 2 // per-tree start positions, uint64
	SectionValues  uint32 = 3 // node thresholds / leaf values
	SectionMeta    uint32 = 4 // node metadata words
	SectionOffsets uint32 = 5 // distant-child offsets
)

// SpecCode encodes the specialization key as storage widths in bits:
// threshold, index, metadata, offset.
type SpecCode [4]uint8
