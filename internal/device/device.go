// Package device identifies and manages host and GPU execution contexts.
//
// GPU devices exist only in builds with the cuda tag; without it the
// visible GPU count is zero and GPU IDs cannot be constructed.
package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnavailable is returned when a requested GPU ordinal is not
	// backed by a visible device.
	ErrUnavailable = errors.New("device unavailable")
	// ErrInit is returned when one-time device setup is rejected by the
	// GPU runtime. The caller may retry after corrective action.
	ErrInit = errors.New("device initialization failed")
)

// Type distinguishes host and GPU execution contexts.
type Type uint8

const (
	Host Type = iota
	GPU
)

func (t Type) String() string {
	switch t {
	case Host:
		return "host"
	case GPU:
		return "gpu"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ID identifies one execution context. The zero value is the host.
type ID struct {
	Type    Type
	Ordinal int
}

// CPU returns the host device ID.
func CPU() ID {
	return ID{Type: Host}
}

// New constructs a device ID. Host construction never fails; GPU
// construction fails with ErrUnavailable when the ordinal is not backed
// by a visible device (including every ordinal in builds without GPU
// support).
func New(t Type, ordinal int) (ID, error) {
	switch t {
	case Host:
		return ID{Type: Host}, nil
	case GPU:
		n := Count()
		if ordinal < 0 || ordinal >= n {
			return ID{}, fmt.Errorf("%w: gpu:%d (visible devices: %d)", ErrUnavailable, ordinal, n)
		}
		return ID{Type: GPU, Ordinal: ordinal}, nil
	default:
		return ID{}, fmt.Errorf("%w: unknown device type %d", ErrUnavailable, t)
	}
}

// Parse converts a device flag value ("host", "gpu", "gpu:N") to an ID.
func Parse(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "host" || s == "cpu":
		return CPU(), nil
	case s == "gpu" || s == "cuda":
		return New(GPU, 0)
	case strings.HasPrefix(s, "gpu:") || strings.HasPrefix(s, "cuda:"):
		_, ord, _ := strings.Cut(s, ":")
		n, err := strconv.Atoi(ord)
		if err != nil {
			return ID{}, fmt.Errorf("invalid device %q", s)
		}
		return New(GPU, n)
	default:
		return ID{}, fmt.Errorf("invalid device %q (expected host, gpu, or gpu:N)", s)
	}
}

func (id ID) String() string {
	if id.Type == Host {
		return "host"
	}
	return fmt.Sprintf("gpu:%d", id.Ordinal)
}

// Count returns the number of visible GPU devices.
func Count() int {
	return gpuCount()
}

// Enabled reports whether GPU support is compiled into this binary.
func Enabled() bool {
	return gpuEnabled
}
