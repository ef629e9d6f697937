package device

import (
	"fmt"
	"sync"
)

// One-time setup is tracked process-wide, keyed by specialization tag and
// device ordinal. State resets only at process exit.
type initKey struct {
	spec    string
	ordinal int
}

type initEntry struct {
	mu   sync.Mutex
	done bool
}

var (
	initMu      sync.Mutex
	initEntries = map[initKey]*initEntry{}
)

// ensureInit runs setup exactly once per (spec, id.Ordinal) pair.
// Concurrent callers for the same key serialize on the entry lock: one
// performs the setup while the rest wait and then observe it completed.
// A failed attempt leaves the pair uninitialized so a later call can
// retry after corrective action.
func ensureInit(spec string, id ID, setup func(ID) error) error {
	k := initKey{spec: spec, ordinal: id.Ordinal}

	initMu.Lock()
	e := initEntries[k]
	if e == nil {
		e = &initEntry{}
		initEntries[k] = e
	}
	initMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return nil
	}
	if err := setup(id); err != nil {
		return fmt.Errorf("%w: %s on %s: %v", ErrInit, spec, id, err)
	}
	e.done = true
	return nil
}

// resetInit clears the process-wide initialization state. Test hook.
func resetInit() {
	initMu.Lock()
	defer initMu.Unlock()
	initEntries = map[initKey]*initEntry{}
}
