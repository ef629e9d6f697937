package device

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestEnsureInitRunsOnce(t *testing.T) {
	resetInit()
	t.Cleanup(resetInit)

	var calls atomic.Int32
	setup := func(ID) error {
		calls.Add(1)
		return nil
	}
	id := ID{Type: GPU, Ordinal: 0}
	for i := 0; i < 5; i++ {
		if err := ensureInit("f32/i16/m16/o16", id, setup); err != nil {
			t.Fatalf("ensureInit: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("setup ran %d times, want 1", n)
	}
}

func TestEnsureInitKeyedPerSpecAndDevice(t *testing.T) {
	resetInit()
	t.Cleanup(resetInit)

	var calls atomic.Int32
	setup := func(ID) error {
		calls.Add(1)
		return nil
	}
	pairs := []struct {
		spec string
		ord  int
	}{
		{"f32/i16/m16/o16", 0},
		{"f32/i16/m16/o16", 1},
		{"f64/i32/m32/o32", 0},
	}
	for _, p := range pairs {
		for i := 0; i < 3; i++ {
			if err := ensureInit(p.spec, ID{Type: GPU, Ordinal: p.ord}, setup); err != nil {
				t.Fatalf("ensureInit(%s, %d): %v", p.spec, p.ord, err)
			}
		}
	}
	if n := calls.Load(); n != int32(len(pairs)) {
		t.Fatalf("setup ran %d times, want %d", n, len(pairs))
	}
}

func TestEnsureInitRetriesAfterFailure(t *testing.T) {
	resetInit()
	t.Cleanup(resetInit)

	var calls int
	setup := func(ID) error {
		calls++
		if calls == 1 {
			return errors.New("driver rejected configuration")
		}
		return nil
	}
	id := ID{Type: GPU, Ordinal: 0}

	err := ensureInit("f32/i16/m16/o16", id, setup)
	if !errors.Is(err, ErrInit) {
		t.Fatalf("expected ErrInit, got %v", err)
	}
	// The failed pair stays uninitialized; a later attempt runs setup again.
	if err := ensureInit("f32/i16/m16/o16", id, setup); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("setup ran %d times, want 2", calls)
	}
	// And a third call observes the success without re-running setup.
	if err := ensureInit("f32/i16/m16/o16", id, setup); err != nil {
		t.Fatalf("post-success: %v", err)
	}
	if calls != 2 {
		t.Fatalf("setup re-ran after success: %d calls", calls)
	}
}

func TestEnsureInitConcurrent(t *testing.T) {
	resetInit()
	t.Cleanup(resetInit)

	var calls atomic.Int32
	setup := func(ID) error {
		calls.Add(1)
		return nil
	}
	id := ID{Type: GPU, Ordinal: 0}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ensureInit("f32/i16/m16/o16", id, setup); err != nil {
				t.Errorf("ensureInit: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("setup ran %d times under contention, want 1", n)
	}
}
