package fcf

import "encoding/binary"

const (
	MagicFCF = "FCF\x00"

	// CurrentMajor changes only on breaking layout changes.
	CurrentMajor uint16 = 1
	// CurrentMinor tracks additive changes.
	CurrentMinor uint16 = 0

	headerSize  = 40
	sectionSize = 24
)

// Header is the fixed-size container header.
type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Spec             SpecCode
	// 4 reserved bytes pad the header to headerSize.
}

// Section locates one payload inside the container.
type Section struct {
	Kind   uint32
	Offset uint64
	Size   uint64
}

func (h *Header) Valid() bool {
	if string(h.Magic[:]) != MagicFCF {
		return false
	}
	if h.HeaderSize < headerSize {
		return false
	}
	if h.SectionCount == 0 {
		return false
	}
	return true
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

func (h *Header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:], h.Major)
	binary.LittleEndian.PutUint16(buf[6:], h.Minor)
	binary.LittleEndian.PutUint32(buf[8:], h.HeaderSize)
	binary.LittleEndian.PutUint32(buf[12:], h.SectionCount)
	binary.LittleEndian.PutUint64(buf[16:], h.SectionDirOffset)
	binary.LittleEndian.PutUint64(buf[24:], h.FileSize)
	copy(buf[32:36], h.Spec[:])
	return buf
}

func decodeHeader(buf []byte) Header {
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.Major = binary.LittleEndian.Uint16(buf[4:])
	h.Minor = binary.LittleEndian.Uint16(buf[6:])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[8:])
	h.SectionCount = binary.LittleEndian.Uint32(buf[12:])
	h.SectionDirOffset = binary.LittleEndian.Uint64(buf[16:])
	h.FileSize = binary.LittleEndian.Uint64(buf[24:])
	copy(h.Spec[:], buf[32:36])
	return h
}

func (s Section) encode() []byte {
	buf := make([]byte, sectionSize)
	binary.LittleEndian.PutUint32(buf[0:], s.Kind)
	binary.LittleEndian.PutUint64(buf[8:], s.Offset)
	binary.LittleEndian.PutUint64(buf[16:], s.Size)
	return buf
}

func decodeSection(buf []byte) Section {
	return Section{
		Kind:   binary.LittleEndian.Uint32(buf[0:]),
		Offset: binary.LittleEndian.Uint64(buf[8:]),
		Size:   binary.LittleEndian.Uint64(buf[16:]),
	}
}
