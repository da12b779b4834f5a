package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDebouncer_Coalesces(t *testing.T) {
	clock := NewFakeClock(epoch)
	d := New(clock, 300*time.Millisecond)

	var calls int
	for i := 0; i < 5; i++ {
		d.Trigger("a.ci", func() { calls++ })
		clock.Advance(100 * time.Millisecond)
	}
	if calls != 0 {
		t.Fatalf("calls = %d before quiet period, want 0", calls)
	}
	if d.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", d.Pending())
	}

	clock.Advance(200 * time.Millisecond)
	if calls != 1 {
		t.Errorf("calls = %d after quiet period, want 1", calls)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
	if clock.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0", clock.Waiting())
	}
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	clock := NewFakeClock(epoch)
	d := New(clock, time.Second)

	var order []string
	d.Trigger("a", func() { order = append(order, "a") })
	clock.Advance(500 * time.Millisecond)
	d.Trigger("b", func() { order = append(order, "b") })
	clock.Advance(500 * time.Millisecond)
	clock.Advance(500 * time.Millisecond)

	if diff := cmp.Diff([]string{"a", "b"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDebouncer_LastTriggerWins(t *testing.T) {
	clock := NewFakeClock(epoch)
	d := New(clock, time.Second)

	got := ""
	d.Trigger("k", func() { got = "first" })
	d.Trigger("k", func() { got = "second" })
	clock.Advance(time.Second)
	if got != "second" {
		t.Errorf("got %q, want second", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	clock := NewFakeClock(epoch)
	d := New(clock, time.Second)

	fired := false
	d.Trigger("k", func() { fired = true })
	if !d.Cancel("k") {
		t.Error("Cancel() = false, want true")
	}
	if d.Cancel("k") {
		t.Error("second Cancel() = true, want false")
	}
	clock.Advance(2 * time.Second)
	if fired {
		t.Error("cancelled call fired")
	}
}

func TestDebouncer_Stop(t *testing.T) {
	clock := NewFakeClock(epoch)
	d := New(clock, time.Second)

	var fired atomic.Int32
	d.Trigger("a", func() { fired.Add(1) })
	d.Stop()
	d.Trigger("b", func() { fired.Add(1) })
	clock.Advance(time.Minute)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired = %d after Stop, want 0", n)
	}
}

func TestDebouncer_RealClock(t *testing.T) {
	d := New(nil, 10*time.Millisecond)
	done := make(chan struct{})
	d.Trigger("k", func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("debounced call did not run")
	}
}

func TestFakeClock_Order(t *testing.T) {
	clock := NewFakeClock(epoch)
	var order []int
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clock.AfterFunc(time.Second, func() { order = append(order, 1) })
	stopped := clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	if !stopped.Stop() {
		t.Error("Stop() = false on pending timer")
	}
	clock.Advance(5 * time.Second)
	if diff := cmp.Diff([]int{1, 3}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got := clock.Now(); !got.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("Now() = %v", got)
	}
}
