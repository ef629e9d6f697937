//go:build !cuda

package forest

import (
	"fmt"

	"github.com/csadorf/herring/internal/device"
)

// Without GPU support compiled in, GPU device IDs cannot be constructed,
// so this path is only reachable through a hand-built ID.
func newDeviceHandle(p *packed, dev device.ID) (Handle, error) {
	return nil, fmt.Errorf("%w: %s (gpu support not compiled in)", device.ErrUnavailable, dev)
}
