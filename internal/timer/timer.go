package timer

import (
	"sync"
	"time"
)

// Direction selects whether the timer counts up or down.
type Direction int

const (
	CountUp Direction = iota
	CountDown
)

// DefaultInterval is the wall-clock duration of one tick.
const DefaultInterval = time.Second

// Config configures a Timer.
type Config struct {
	// Initial is the starting value in ticks (seconds by default).
	Initial int

	Direction Direction

	// AutoStart starts ticking from New.
	AutoStart bool

	// Interval overrides the tick length. Zero means DefaultInterval.
	Interval time.Duration

	// OnTick receives the value after every tick.
	OnTick func(value int)

	// OnExpire fires once when a count-down timer reaches zero.
	// Ignored for count-up timers.
	OnExpire func()
}

// Timer is a second-resolution counter driven by a single ticker goroutine.
// Callbacks run on the ticker goroutine, outside the timer's lock.
type Timer struct {
	mu       sync.Mutex
	cfg      Config
	value    int
	running  bool
	expired  bool
	stopped  bool
	gen      uint64
	stopTick chan struct{}
}

// New creates a timer. When cfg.AutoStart is set the timer is already running.
func New(cfg Config) *Timer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Initial < 0 {
		cfg.Initial = 0
	}
	t := &Timer{cfg: cfg, value: cfg.Initial}
	if cfg.AutoStart {
		t.Start()
	}
	return t
}

// Start begins ticking. It is a no-op while already running, after expiry,
// or after Stop (until Reset).
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || t.expired || t.stopped {
		return
	}
	if t.cfg.Direction == CountDown && t.value <= 0 {
		return
	}
	t.running = true
	t.gen++
	t.stopTick = make(chan struct{})
	go t.loop(t.gen, t.stopTick)
}

// Pause suspends ticking and keeps the accumulated value.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
}

// Reset halts the timer and restores the initial value. A stopped or expired
// timer can be started again after Reset.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
	t.value = t.cfg.Initial
	t.expired = false
	t.stopped = false
}

// Stop halts the timer for good. Owners call Stop on teardown; no tick or
// expiry callback starts after Stop returns.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
	t.stopped = true
}

// Value returns the current counter value.
func (t *Timer) Value() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Running reports whether the timer is ticking.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Expired reports whether a count-down timer has reached zero.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// halt must be called with t.mu held.
func (t *Timer) halt() {
	if !t.running {
		return
	}
	t.running = false
	t.gen++
	close(t.stopTick)
	t.stopTick = nil
}

func (t *Timer) loop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.tick(gen) {
				return
			}
		}
	}
}

// tick advances the counter once. It returns false when the loop should exit.
func (t *Timer) tick(gen uint64) bool {
	t.mu.Lock()
	if !t.running || t.gen != gen {
		t.mu.Unlock()
		return false
	}

	if t.cfg.Direction == CountDown {
		t.value--
	} else {
		t.value++
	}
	value := t.value

	expired := false
	if t.cfg.Direction == CountDown && t.value <= 0 {
		t.value = 0
		value = 0
		t.expired = true
		t.halt()
		expired = true
	}
	onTick, onExpire := t.cfg.OnTick, t.cfg.OnExpire
	t.mu.Unlock()

	if onTick != nil {
		onTick(value)
	}
	if expired {
		if onExpire != nil {
			onExpire()
		}
		return false
	}
	return true
}
