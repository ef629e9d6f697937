package forest

import (
	"encoding/binary"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
	"github.com/csadorf/herring/pkg/fcf"
)

// forestInfo is the JSON metadata section of a container.
type forestInfo struct {
	Trees       int    `json:"trees"`
	Features    int    `json:"features"`
	Groups      int    `json:"groups"`
	Aggregation string `json:"aggregation"`
}

func (k Key) specCode() fcf.SpecCode {
	return fcf.SpecCode{uint8(k.Threshold), uint8(k.Index), uint8(k.Metadata), uint8(k.Offset)}
}

// keyFromSpec maps a container specialization code back into the
// catalog. Codes outside the compiled catalog are rejected; there is no
// fallback interpretation.
func keyFromSpec(c fcf.SpecCode) (Key, error) {
	k := Key{
		Threshold: Width(c[0]),
		Index:     Width(c[1]),
		Metadata:  Width(c[2]),
		Offset:    Width(c[3]),
	}
	if !k.InCatalog() {
		return Key{}, fmt.Errorf("%w: code %v", fcf.ErrUnsupportedSpecialization, [4]uint8(c))
	}
	return k, nil
}

// WriteFile serializes the forest behind h into an FCF container.
func WriteFile(h Handle, path string) error {
	p := h.pack()
	info, err := json.Marshal(forestInfo{
		Trees:       p.trees,
		Features:    p.features,
		Groups:      p.groups,
		Aggregation: p.agg.String(),
	})
	if err != nil {
		return fmt.Errorf("encode forest info: %w", err)
	}
	roots := make([]byte, 8*len(p.roots))
	for i, r := range p.roots {
		binary.LittleEndian.PutUint64(roots[i*8:], r)
	}
	return fcf.Write(path, p.key.specCode(), []fcf.SectionData{
		{Kind: fcf.SectionInfo, Data: info},
		{Kind: fcf.SectionRoots, Data: roots},
		{Kind: fcf.SectionValues, Data: p.values},
		{Kind: fcf.SectionMeta, Data: p.metas},
		{Kind: fcf.SectionOffsets, Data: p.offs},
	})
}

// ReadFile loads a container and rebuilds the forest on dev under the
// same specialization it was written with.
func ReadFile(path string, dev device.ID, opts Options) (Handle, error) {
	f, err := fcf.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	key, err := keyFromSpec(f.Spec())
	if err != nil {
		return nil, err
	}
	infoData, err := f.Section(fcf.SectionInfo)
	if err != nil {
		return nil, err
	}
	var info forestInfo
	if err := json.Unmarshal(infoData, &info); err != nil {
		return nil, fmt.Errorf("%w: bad info section: %v", fcf.ErrCorruptFile, err)
	}
	agg, err := model.ParseAggregation(info.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fcf.ErrCorruptFile, err)
	}
	rootData, err := f.Section(fcf.SectionRoots)
	if err != nil {
		return nil, err
	}
	if len(rootData)%8 != 0 || len(rootData)/8 != info.Trees+1 {
		return nil, fmt.Errorf("%w: root table size %d for %d trees", fcf.ErrCorruptFile, len(rootData), info.Trees)
	}
	values, err := f.Section(fcf.SectionValues)
	if err != nil {
		return nil, err
	}
	metas, err := f.Section(fcf.SectionMeta)
	if err != nil {
		return nil, err
	}
	offs, err := f.Section(fcf.SectionOffsets)
	if err != nil {
		return nil, err
	}

	p := &packed{
		key:      key,
		roots:    make([]uint64, len(rootData)/8),
		values:   append([]byte(nil), values...),
		metas:    append([]byte(nil), metas...),
		offs:     append([]byte(nil), offs...),
		trees:    info.Trees,
		features: info.Features,
		groups:   info.Groups,
		agg:      agg,
	}
	for i := range p.roots {
		p.roots[i] = binary.LittleEndian.Uint64(rootData[i*8:])
	}
	return unpackForKey(p, dev, opts)
}
