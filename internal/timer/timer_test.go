package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

const testInterval = 5 * time.Millisecond

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCountUp(t *testing.T) {
	ticks := make(chan int, 100)
	tm := New(Config{
		Interval: testInterval,
		OnTick:   func(v int) { ticks <- v },
	})
	defer tm.Stop()

	if tm.Running() {
		t.Fatal("timer should not run without AutoStart")
	}
	tm.Start()

	for want := 1; want <= 3; want++ {
		select {
		case got := <-ticks:
			if got != want {
				t.Fatalf("tick = %d, want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}
}

func TestCountDownExpiresOnce(t *testing.T) {
	var expiries atomic.Int32
	tm := New(Config{
		Initial:   3,
		Direction: CountDown,
		AutoStart: true,
		Interval:  testInterval,
		OnExpire:  func() { expiries.Add(1) },
	})
	defer tm.Stop()

	waitFor(t, tm.Expired)
	time.Sleep(10 * testInterval)

	if got := expiries.Load(); got != 1 {
		t.Errorf("OnExpire called %d times, want 1", got)
	}
	if tm.Value() != 0 {
		t.Errorf("Value() = %d, want 0", tm.Value())
	}
	if tm.Running() {
		t.Error("expired timer should stop itself")
	}

	// Start after expiry is a no-op.
	tm.Start()
	if tm.Running() {
		t.Error("Start after expiry should be a no-op")
	}
}

func TestCountUpNeverExpires(t *testing.T) {
	var expiries atomic.Int32
	tm := New(Config{
		AutoStart: true,
		Interval:  testInterval,
		OnExpire:  func() { expiries.Add(1) },
	})
	defer tm.Stop()

	waitFor(t, func() bool { return tm.Value() >= 3 })
	if expiries.Load() != 0 {
		t.Error("count-up timer must not fire OnExpire")
	}
}

func TestPauseKeepsValue(t *testing.T) {
	tm := New(Config{AutoStart: true, Interval: testInterval})
	defer tm.Stop()

	waitFor(t, func() bool { return tm.Value() >= 2 })
	tm.Pause()
	paused := tm.Value()

	time.Sleep(10 * testInterval)
	if got := tm.Value(); got != paused {
		t.Errorf("value moved while paused: %d -> %d", paused, got)
	}

	tm.Start()
	waitFor(t, func() bool { return tm.Value() > paused })
}

func TestReset(t *testing.T) {
	tm := New(Config{Initial: 5, Direction: CountDown, AutoStart: true, Interval: testInterval})
	defer tm.Stop()

	waitFor(t, func() bool { return tm.Value() <= 3 })
	tm.Reset()

	if tm.Running() {
		t.Error("Reset should halt the timer")
	}
	if tm.Value() != 5 {
		t.Errorf("Value() after Reset = %d, want 5", tm.Value())
	}
}

func TestStopIsFinalUntilReset(t *testing.T) {
	tm := New(Config{AutoStart: true, Interval: testInterval})
	waitFor(t, func() bool { return tm.Value() >= 1 })
	tm.Stop()
	stopped := tm.Value()

	tm.Start()
	time.Sleep(10 * testInterval)
	if tm.Running() || tm.Value() != stopped {
		t.Error("Start after Stop should be a no-op")
	}

	tm.Reset()
	tm.Start()
	defer tm.Stop()
	if !tm.Running() {
		t.Error("Start after Reset should run again")
	}
}

func TestSingleTickSource(t *testing.T) {
	tm := New(Config{Interval: time.Hour})
	defer tm.Stop()

	tm.Start()
	first := tm.stopTick
	tm.Start()
	if tm.stopTick != first {
		t.Error("second Start created another tick source")
	}
}

func TestZeroCountDownDoesNotStart(t *testing.T) {
	tm := New(Config{Direction: CountDown, AutoStart: true, Interval: testInterval})
	defer tm.Stop()
	if tm.Running() {
		t.Error("count-down from zero should not start")
	}
}
