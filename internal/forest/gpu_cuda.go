//go:build cuda

package forest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/device/native"
	"github.com/csadorf/herring/internal/model"
)

// deviceForest is the GPU-resident counterpart of forest: the packed
// arrays live in device memory and evaluation runs as one kernel launch
// per batch. The host byte form is retained for serialization.
type deviceForest struct {
	host *packed
	dev  device.ID

	values  native.Buffer
	metas   native.Buffer
	offs    native.Buffer
	roots   native.Buffer
	widths  [4]uint8
	aggCode uint8
}

// newDeviceHandle performs one-time device initialization for this
// specialization, then uploads the packed forest. Moving a forest to
// another device goes through this rebuild; host structures are never
// reinterpreted in place.
func newDeviceHandle(p *packed, dev device.ID) (Handle, error) {
	if err := device.Initialize(p.key.String(), dev); err != nil {
		return nil, err
	}
	df := &deviceForest{
		host: p,
		dev:  dev,
		widths: [4]uint8{
			uint8(p.key.Threshold),
			uint8(p.key.Index),
			uint8(p.key.Metadata),
			uint8(p.key.Offset),
		},
		aggCode: uint8(p.agg),
	}
	rootBytes := make([]byte, 8*len(p.roots))
	for i, r := range p.roots {
		binary.LittleEndian.PutUint64(rootBytes[i*8:], r)
	}
	err := device.With(dev, func() error {
		var err error
		if df.values, err = native.Alloc(uint64(len(p.values))); err != nil {
			return err
		}
		if df.metas, err = native.Alloc(uint64(len(p.metas))); err != nil {
			return err
		}
		if df.offs, err = native.Alloc(uint64(len(p.offs))); err != nil {
			return err
		}
		if df.roots, err = native.Alloc(uint64(len(rootBytes))); err != nil {
			return err
		}
		if err = df.values.Upload(p.values); err != nil {
			return err
		}
		if err = df.metas.Upload(p.metas); err != nil {
			return err
		}
		if err = df.offs.Upload(p.offs); err != nil {
			return err
		}
		return df.roots.Upload(rootBytes)
	})
	if err != nil {
		_ = df.Close()
		return nil, fmt.Errorf("build device forest on %s: %w", dev, err)
	}
	return df, nil
}

func (df *deviceForest) Key() Key                       { return df.host.key }
func (df *deviceForest) Device() device.ID              { return df.dev }
func (df *deviceForest) Trees() int                     { return df.host.trees }
func (df *deviceForest) Features() int                  { return df.host.features }
func (df *deviceForest) Groups() int                    { return df.host.groups }
func (df *deviceForest) Aggregation() model.Aggregation { return df.host.agg }

func (df *deviceForest) pack() *packed { return df.host }

func (df *deviceForest) Infer(in []float32, out []float32, rows int) error {
	if len(in) != rows*df.host.features {
		return fmt.Errorf("input length %d, want rows*features = %d*%d", len(in), rows, df.host.features)
	}
	if len(out) != rows*df.host.groups {
		return fmt.Errorf("output length %d, want rows*groups = %d*%d", len(out), rows, df.host.groups)
	}
	if rows == 0 {
		return nil
	}
	return device.With(df.dev, func() error {
		inBuf, err := native.Alloc(uint64(4 * len(in)))
		if err != nil {
			return err
		}
		defer func() { _ = inBuf.Free() }()
		outBuf, err := native.Alloc(uint64(4 * len(out)))
		if err != nil {
			return err
		}
		defer func() { _ = outBuf.Free() }()

		if err := inBuf.Upload(f32Bytes(in)); err != nil {
			return err
		}
		desc := native.ForestDesc{
			Values:         df.values,
			Metas:          df.metas,
			Offsets:        df.offs,
			Roots:          df.roots,
			Trees:          uint64(df.host.trees),
			Features:       uint32(df.host.features),
			Groups:         uint32(df.host.groups),
			Aggregation:    df.aggCode,
			ThresholdWidth: df.widths[0],
			IndexWidth:     df.widths[1],
			MetadataWidth:  df.widths[2],
			OffsetWidth:    df.widths[3],
		}
		if err := native.ForestEval(desc, inBuf, outBuf, uint64(rows)); err != nil {
			return err
		}
		got := make([]byte, 4*len(out))
		if err := outBuf.Download(got); err != nil {
			return err
		}
		copyF32(out, got)
		return nil
	})
}

func (df *deviceForest) Close() error {
	var err error
	for _, b := range []native.Buffer{df.values, df.metas, df.offs, df.roots} {
		if e := b.Free(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func f32Bytes(src []float32) []byte {
	out := make([]byte, 4*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func copyF32(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
