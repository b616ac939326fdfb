// Package typing implements the ephemeral "peer is typing" indicator and the
// outbound signal throttle.
package typing

import (
	"sync"
	"time"
)

// DefaultTTL is how long an indicator stays set without a fresh signal.
const DefaultTTL = 2 * time.Second

// DefaultThrottle caps outbound typing emissions to one per interval.
const DefaultThrottle = 500 * time.Millisecond

// Indicator tracks which peer is currently composing a message. A new signal
// restarts the expiry window (debounce by replacement); signals matching the
// local display name are ignored.
type Indicator struct {
	mu       sync.Mutex
	self     string
	active   string
	ttl      time.Duration
	timer    *time.Timer
	onChange func(string)
}

// NewIndicator creates an indicator for the local display name. onChange may
// be nil; when set it fires with the active name after every change.
func NewIndicator(self string, ttl time.Duration, onChange func(string)) *Indicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Indicator{self: self, ttl: ttl, onChange: onChange}
}

// Notify records a typing signal from the named participant and restarts the
// expiry timer. Signals from the local user are dropped.
func (i *Indicator) Notify(name string) {
	if name == "" || name == i.self {
		return
	}
	i.mu.Lock()
	i.active = name
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(i.ttl, i.expire)
	fn := i.onChange
	i.mu.Unlock()
	if fn != nil {
		fn(name)
	}
}

func (i *Indicator) expire() {
	i.mu.Lock()
	i.active = ""
	i.timer = nil
	fn := i.onChange
	i.mu.Unlock()
	if fn != nil {
		fn("")
	}
}

// Active returns the display name of the typing peer, or "" when nobody is.
func (i *Indicator) Active() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// Stop cancels any pending expiry and clears the indicator. Called on session
// teardown so no timer outlives the room subscription.
func (i *Indicator) Stop() {
	i.mu.Lock()
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.active = ""
	i.mu.Unlock()
}

// Throttler rate-limits outbound typing emissions. The source emitted one
// event per keystroke; sessions emit at most one per interval instead.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewThrottler creates a throttler with the given minimum interval.
func NewThrottler(interval time.Duration) *Throttler {
	if interval <= 0 {
		interval = DefaultThrottle
	}
	return &Throttler{interval: interval}
}

// Allow reports whether an emission may go out now, consuming the window when
// it does.
func (t *Throttler) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
