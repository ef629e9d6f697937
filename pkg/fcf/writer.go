package fcf

import (
	"fmt"
	"os"
)

// SectionData is one payload to be written.
type SectionData struct {
	Kind uint32
	Data []byte
}

// Write creates an FCF container at path. Sections are written in the
// given order; the directory goes at the tail so the writer streams.
func Write(path string, spec SpecCode, sections []SectionData) (err error) {
	if len(sections) == 0 {
		return fmt.Errorf("fcf: no sections to write")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	dir := make([]Section, len(sections))
	off := uint64(headerSize)
	for i, s := range sections {
		dir[i] = Section{Kind: s.Kind, Offset: off, Size: uint64(len(s.Data))}
		off += uint64(len(s.Data))
	}
	dirOffset := off
	fileSize := dirOffset + uint64(sectionSize*len(sections))

	h := Header{
		Major:            CurrentMajor,
		Minor:            CurrentMinor,
		HeaderSize:       headerSize,
		SectionCount:     uint32(len(sections)),
		SectionDirOffset: dirOffset,
		FileSize:         fileSize,
		Spec:             spec,
	}
	copy(h.Magic[:], MagicFCF)

	if _, err = f.Write(h.encode()); err != nil {
		return err
	}
	for _, s := range sections {
		if _, err = f.Write(s.Data); err != nil {
			return err
		}
	}
	for _, s := range dir {
		if _, err = f.Write(s.encode()); err != nil {
			return err
		}
	}
	return nil
}
