package device

import "fmt"

// gpuRuntime is the slice of the GPU runtime the scoped setter needs.
// The production implementation is selected by build tag; tests swap in
// a fake to observe switch/restore ordering.
type gpuRuntime interface {
	current() (int, error)
	activate(ordinal int) error
}

var rt gpuRuntime = platformRuntime{}

// With runs fn with id as the current device and restores the previously
// current device on every exit path, including when fn returns an error.
// Host IDs carry no ambient runtime state, so the switch is a no-op.
//
// Callers sharing a thread of control must nest With scopes; interleaved
// switches from the same goroutine are not supported.
func With(id ID, fn func() error) error {
	if id.Type == Host {
		return fn()
	}
	prev, err := rt.current()
	if err != nil {
		return fmt.Errorf("query current device: %w", err)
	}
	if err := rt.activate(id.Ordinal); err != nil {
		return fmt.Errorf("activate %s: %w", id, err)
	}
	defer func() {
		// Restore failures must not mask fn's result; the prior ordinal
		// was valid moments ago, so this only fires on runtime faults.
		_ = rt.activate(prev)
	}()
	return fn()
}
