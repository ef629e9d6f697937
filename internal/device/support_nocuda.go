//go:build !cuda

package device

import "errors"

const gpuEnabled = false

func gpuCount() int { return 0 }

type platformRuntime struct{}

func (platformRuntime) current() (int, error) {
	return 0, errors.New("gpu support not compiled in")
}

func (platformRuntime) activate(int) error {
	return errors.New("gpu support not compiled in")
}
