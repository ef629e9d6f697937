package fcf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is an open, validated container.
type File struct {
	Data     []byte
	Header   Header
	Sections []Section
	mmapped  bool
}

// Open maps an FCF file read-only and validates its structure, falling
// back to a full read when mmap is unavailable. The returned file must
// be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// Cannot index this file safely as []byte on this architecture.
		return nil, ErrCorruptFile
	}
	size := int(size64)

	// Prefer mmap for zero-copy section slices.
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		ff, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return ff, nil
	}

	data = make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	h := decodeHeader(data[:headerSize])
	if !h.Valid() {
		if string(h.Magic[:]) != MagicFCF {
			return nil, ErrInvalidMagic
		}
		return nil, ErrCorruptFile
	}
	if !h.Compatible() {
		return nil, fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedMajor, h.Major, CurrentMajor)
	}
	if h.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	// Bounds checks subtract from the known-good end instead of adding
	// to untrusted offsets, so crafted values cannot wrap uint64.
	if h.SectionDirOffset < uint64(h.HeaderSize) || h.SectionDirOffset > uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if uint64(sectionSize)*uint64(h.SectionCount) > uint64(len(data))-h.SectionDirOffset {
		return nil, ErrCorruptFile
	}

	sections := make([]Section, h.SectionCount)
	for i := range sections {
		off := h.SectionDirOffset + uint64(i*sectionSize)
		s := decodeSection(data[off : off+sectionSize])
		if s.Offset < uint64(h.HeaderSize) || s.Offset > h.SectionDirOffset || s.Size > h.SectionDirOffset-s.Offset {
			return nil, ErrCorruptFile
		}
		sections[i] = s
	}
	return &File{
		Data:     data,
		Header:   h,
		Sections: sections,
		mmapped:  mmapped,
	}, nil
}

// Section returns the payload bytes for kind. The slice aliases the
// underlying mapping and is only valid until Close.
func (f *File) Section(kind uint32) ([]byte, error) {
	for _, s := range f.Sections {
		if s.Kind == kind {
			return f.Data[s.Offset : s.Offset+s.Size], nil
		}
	}
	return nil, fmt.Errorf("%w: kind %d", ErrMissingSection, kind)
}

// Spec returns the container's specialization code.
func (f *File) Spec() SpecCode {
	return f.Header.Spec
}

// Close releases the mapping, if any.
func (f *File) Close() error {
	if f.mmapped && f.Data != nil {
		err := unix.Munmap(f.Data)
		f.Data = nil
		return err
	}
	f.Data = nil
	return nil
}
