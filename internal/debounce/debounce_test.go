package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCallCoalescesBurst(t *testing.T) {
	d := New(50 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	var got []string

	d.Call("notes", func() {
		mu.Lock()
		got = append(got, "first")
		mu.Unlock()
	})
	d.Call("notes", func() {
		mu.Lock()
		got = append(got, "second")
		mu.Unlock()
	})
	d.Call("notes", func() {
		mu.Lock()
		got = append(got, "final")
		mu.Unlock()
	})

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected exactly one action, got %d: %v", len(got), got)
	}
	if got[0] != "final" {
		t.Errorf("expected final action to run, got %q", got[0])
	}
}

func TestKeysAreIndependent(t *testing.T) {
	d := New(20 * time.Millisecond)
	defer d.Stop()

	var count int64
	d.Call("a", func() { atomic.AddInt64(&count, 1) })
	d.Call("b", func() { atomic.AddInt64(&count, 1) })

	time.Sleep(100 * time.Millisecond)

	if n := atomic.LoadInt64(&count); n != 2 {
		t.Errorf("expected both keys to fire, got %d", n)
	}
}

func TestCancelDropsPending(t *testing.T) {
	d := New(20 * time.Millisecond)
	defer d.Stop()

	var fired int64
	d.Call("a", func() { atomic.AddInt64(&fired, 1) })
	d.Cancel("a")

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt64(&fired) != 0 {
		t.Error("cancelled action still fired")
	}
}

func TestStopDropsEverything(t *testing.T) {
	d := New(20 * time.Millisecond)

	var fired int64
	d.Call("a", func() { atomic.AddInt64(&fired, 1) })
	d.Call("b", func() { atomic.AddInt64(&fired, 1) })
	d.Stop()

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt64(&fired) != 0 {
		t.Error("stopped actions still fired")
	}
}
