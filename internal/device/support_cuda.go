//go:build cuda

package device

import "github.com/csadorf/herring/internal/device/native"

const gpuEnabled = true

func gpuCount() int {
	n, err := native.DeviceCount()
	if err != nil {
		return 0
	}
	return n
}

type platformRuntime struct{}

func (platformRuntime) current() (int, error) {
	return native.GetDevice()
}

func (platformRuntime) activate(ordinal int) error {
	return native.SetDevice(ordinal)
}
