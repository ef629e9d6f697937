package forest

import (
	"fmt"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/model"
)

// New validates the model, selects its specialization, and builds the
// forest on the requested device. All failure modes surface here,
// before the first row is evaluated.
func New(m *model.Model, dev device.ID, opts Options) (Handle, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	key, plans, err := selectPlans(m, opts)
	if err != nil {
		return nil, err
	}
	return newForKey(m, key, plans, dev, opts)
}

// newForKey dispatches over the closed catalog: one case per compiled
// specialization. This switch is the only point where the runtime key
// meets the compile-time instantiations.
func newForKey(m *model.Model, key Key, plans []treePlan, dev device.ID, opts Options) (Handle, error) {
	var h Handle
	switch key {
	case Key{W32, W16, W16, W16}:
		h = build[float32, uint16, uint16, uint16](m, key, plans, dev, opts.Workers)
	case Key{W32, W16, W16, W32}:
		h = build[float32, uint16, uint16, uint32](m, key, plans, dev, opts.Workers)
	case Key{W32, W16, W32, W16}:
		h = build[float32, uint16, uint32, uint16](m, key, plans, dev, opts.Workers)
	case Key{W32, W16, W32, W32}:
		h = build[float32, uint16, uint32, uint32](m, key, plans, dev, opts.Workers)
	case Key{W32, W32, W16, W16}:
		h = build[float32, uint32, uint16, uint16](m, key, plans, dev, opts.Workers)
	case Key{W32, W32, W16, W32}:
		h = build[float32, uint32, uint16, uint32](m, key, plans, dev, opts.Workers)
	case Key{W32, W32, W32, W16}:
		h = build[float32, uint32, uint32, uint16](m, key, plans, dev, opts.Workers)
	case Key{W32, W32, W32, W32}:
		h = build[float32, uint32, uint32, uint32](m, key, plans, dev, opts.Workers)
	case Key{W64, W16, W16, W16}:
		h = build[float64, uint16, uint16, uint16](m, key, plans, dev, opts.Workers)
	case Key{W64, W16, W16, W32}:
		h = build[float64, uint16, uint16, uint32](m, key, plans, dev, opts.Workers)
	case Key{W64, W16, W32, W16}:
		h = build[float64, uint16, uint32, uint16](m, key, plans, dev, opts.Workers)
	case Key{W64, W16, W32, W32}:
		h = build[float64, uint16, uint32, uint32](m, key, plans, dev, opts.Workers)
	case Key{W64, W32, W16, W16}:
		h = build[float64, uint32, uint16, uint16](m, key, plans, dev, opts.Workers)
	case Key{W64, W32, W16, W32}:
		h = build[float64, uint32, uint16, uint32](m, key, plans, dev, opts.Workers)
	case Key{W64, W32, W32, W16}:
		h = build[float64, uint32, uint32, uint16](m, key, plans, dev, opts.Workers)
	case Key{W64, W32, W32, W32}:
		h = build[float64, uint32, uint32, uint32](m, key, plans, dev, opts.Workers)
	default:
		return nil, fmt.Errorf("%w: %s is not a compiled specialization", ErrUnsupportedModelShape, key)
	}
	if dev.Type == device.GPU {
		return newDeviceHandle(h.pack(), dev)
	}
	return h, nil
}

// unpackForKey rebuilds a handle from its packed byte form, used by the
// container loader. Same closed dispatch as newForKey.
func unpackForKey(p *packed, dev device.ID, opts Options) (Handle, error) {
	var (
		h   Handle
		err error
	)
	switch p.key {
	case Key{W32, W16, W16, W16}:
		h, err = unpack[float32, uint16, uint16, uint16](p, dev, opts.Workers)
	case Key{W32, W16, W16, W32}:
		h, err = unpack[float32, uint16, uint16, uint32](p, dev, opts.Workers)
	case Key{W32, W16, W32, W16}:
		h, err = unpack[float32, uint16, uint32, uint16](p, dev, opts.Workers)
	case Key{W32, W16, W32, W32}:
		h, err = unpack[float32, uint16, uint32, uint32](p, dev, opts.Workers)
	case Key{W32, W32, W16, W16}:
		h, err = unpack[float32, uint32, uint16, uint16](p, dev, opts.Workers)
	case Key{W32, W32, W16, W32}:
		h, err = unpack[float32, uint32, uint16, uint32](p, dev, opts.Workers)
	case Key{W32, W32, W32, W16}:
		h, err = unpack[float32, uint32, uint32, uint16](p, dev, opts.Workers)
	case Key{W32, W32, W32, W32}:
		h, err = unpack[float32, uint32, uint32, uint32](p, dev, opts.Workers)
	case Key{W64, W16, W16, W16}:
		h, err = unpack[float64, uint16, uint16, uint16](p, dev, opts.Workers)
	case Key{W64, W16, W16, W32}:
		h, err = unpack[float64, uint16, uint16, uint32](p, dev, opts.Workers)
	case Key{W64, W16, W32, W16}:
		h, err = unpack[float64, uint16, uint32, uint16](p, dev, opts.Workers)
	case Key{W64, W16, W32, W32}:
		h, err = unpack[float64, uint16, uint32, uint32](p, dev, opts.Workers)
	case Key{W64, W32, W16, W16}:
		h, err = unpack[float64, uint32, uint16, uint16](p, dev, opts.Workers)
	case Key{W64, W32, W16, W32}:
		h, err = unpack[float64, uint32, uint16, uint32](p, dev, opts.Workers)
	case Key{W64, W32, W32, W16}:
		h, err = unpack[float64, uint32, uint32, uint16](p, dev, opts.Workers)
	case Key{W64, W32, W32, W32}:
		h, err = unpack[float64, uint32, uint32, uint32](p, dev, opts.Workers)
	default:
		return nil, fmt.Errorf("%w: %s is not a compiled specialization", ErrUnsupportedModelShape, p.key)
	}
	if err != nil {
		return nil, err
	}
	if dev.Type == device.GPU {
		// Structural validation already ran during unpack; upload the
		// original byte form as-is.
		return newDeviceHandle(p, dev)
	}
	return h, nil
}
