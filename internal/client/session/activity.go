package session

import (
	"log/slog"
	"sync"
	"time"
)

// ActivityKind labels a user-interaction event. All kinds are treated
// uniformly as activity.
type ActivityKind string

const (
	ActivityPress  ActivityKind = "press"
	ActivityMove   ActivityKind = "move"
	ActivityScroll ActivityKind = "scroll"
	ActivityTouch  ActivityKind = "touch"
	ActivityClick  ActivityKind = "click"
)

// ActivityTracker watches user interaction and drives a strict
// two-phase countdown: after inactivityTimeout - warningTime of
// silence the warning callback fires, and warningTime later the
// expiry callback fires. Any activity fully resets both phases.
// Only an authenticated identity is tracked; Start and Stop follow
// login and logout.
type ActivityTracker struct {
	now          func() time.Time
	onWarning    func()
	onExpire     func()
	logger       *slog.Logger
	warnTimer    *time.Timer
	expireTimer  *time.Timer
	lastActivity time.Time

	inactivityTimeout time.Duration
	warningTime       time.Duration

	mu sync.Mutex
	// gen invalidates callbacks from timers that fired concurrently
	// with a reset or stop
	gen    uint64
	active bool
}

// NewActivityTracker creates a stopped tracker. warningTime must be
// shorter than inactivityTimeout.
func NewActivityTracker(inactivityTimeout, warningTime time.Duration, onWarning, onExpire func(), logger *slog.Logger) *ActivityTracker {
	return &ActivityTracker{
		inactivityTimeout: inactivityTimeout,
		warningTime:       warningTime,
		onWarning:         onWarning,
		onExpire:          onExpire,
		logger:            logger,
		now:               time.Now,
	}
}

// Start begins tracking, arming the warning phase from now.
func (t *ActivityTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = true
	t.lastActivity = t.now()
	t.rearmLocked()
}

// Stop cancels both timers synchronously. Neither callback fires
// after Stop returns.
func (t *ActivityTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = false
	t.cancelLocked()
}

// Record notes a user interaction. Canceling the stale timers
// strictly precedes arming the new ones; activity during the warning
// phase resets both phases, not just the second.
func (t *ActivityTracker) Record(kind ActivityKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}

	t.lastActivity = t.now()
	t.logger.Debug("activity recorded", slog.String("kind", string(kind)))
	t.rearmLocked()
}

// LastActivity returns the time of the most recent interaction.
func (t *ActivityTracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// Active reports whether tracking is running.
func (t *ActivityTracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *ActivityTracker) rearmLocked() {
	t.cancelLocked()
	gen := t.gen
	t.warnTimer = time.AfterFunc(t.inactivityTimeout-t.warningTime, func() { t.fireWarning(gen) })
}

func (t *ActivityTracker) cancelLocked() {
	t.gen++
	if t.warnTimer != nil {
		t.warnTimer.Stop()
		t.warnTimer = nil
	}
	if t.expireTimer != nil {
		t.expireTimer.Stop()
		t.expireTimer = nil
	}
}

func (t *ActivityTracker) fireWarning(gen uint64) {
	t.mu.Lock()
	if !t.active || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.warnTimer = nil
	t.expireTimer = time.AfterFunc(t.warningTime, func() { t.fireExpiry(gen) })
	t.mu.Unlock()

	if t.onWarning != nil {
		t.onWarning()
	}
}

func (t *ActivityTracker) fireExpiry(gen uint64) {
	t.mu.Lock()
	if !t.active || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.expireTimer = nil
	t.active = false
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire()
	}
}
