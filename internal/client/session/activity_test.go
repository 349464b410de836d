package session

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Timer tests run with short durations and generous margins.
const (
	testInactivityTimeout = 120 * time.Millisecond
	testWarningTime       = 60 * time.Millisecond
)

func newTestTracker(t *testing.T) (*ActivityTracker, chan struct{}, chan struct{}) {
	t.Helper()

	warned := make(chan struct{}, 1)
	expired := make(chan struct{}, 1)
	tracker := NewActivityTracker(testInactivityTimeout, testWarningTime,
		func() { warned <- struct{}{} },
		func() { expired <- struct{}{} },
		slog.Default())

	t.Cleanup(tracker.Stop)

	return tracker, warned, expired
}

func waitFor(t *testing.T, ch chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func assertQuiet(t *testing.T, ch chan struct{}, d time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(d):
	}
}

func TestActivityTracker_TwoPhaseCountdown(t *testing.T) {
	tracker, warned, expired := newTestTracker(t)

	tracker.Start()

	// phase one: warning after inactivityTimeout - warningTime
	assertQuiet(t, warned, testInactivityTimeout-testWarningTime-30*time.Millisecond, "early warning")
	waitFor(t, warned, 2*testWarningTime, "warning")

	// phase two: expiry a full warningTime later
	assertQuiet(t, expired, testWarningTime-30*time.Millisecond, "early expiry")
	waitFor(t, expired, 2*testWarningTime, "expiry")

	assert.False(t, tracker.Active())
}

func TestActivityTracker_ActivityResetsBothPhases(t *testing.T) {
	tracker, warned, expired := newTestTracker(t)

	tracker.Start()
	waitFor(t, warned, 2*testInactivityTimeout, "warning")

	// activity during the warning phase cancels the pending expiry and
	// restarts the full countdown from phase one
	tracker.Record(ActivityClick)

	assertQuiet(t, expired, testWarningTime+30*time.Millisecond, "expiry after reset")
	assert.True(t, tracker.Active())

	// the full cycle then plays out again
	waitFor(t, warned, 2*testInactivityTimeout, "second warning")
	waitFor(t, expired, 2*testWarningTime, "second expiry")
}

func TestActivityTracker_SteadyActivityNeverWarns(t *testing.T) {
	tracker, warned, _ := newTestTracker(t)

	tracker.Start()

	for range 6 {
		time.Sleep(20 * time.Millisecond)
		tracker.Record(ActivityMove)
	}

	select {
	case <-warned:
		t.Fatal("warning fired despite continuous activity")
	default:
	}
	assert.True(t, tracker.Active())
}

func TestActivityTracker_StopCancelsBothTimers(t *testing.T) {
	tracker, warned, expired := newTestTracker(t)

	tracker.Start()
	tracker.Stop()

	assertQuiet(t, warned, testInactivityTimeout+50*time.Millisecond, "warning after stop")
	select {
	case <-expired:
		t.Fatal("expiry fired after stop")
	default:
	}
	assert.False(t, tracker.Active())
}

func TestActivityTracker_StopDuringWarningPhase(t *testing.T) {
	tracker, warned, expired := newTestTracker(t)

	tracker.Start()
	waitFor(t, warned, 2*testInactivityTimeout, "warning")

	tracker.Stop()

	assertQuiet(t, expired, testWarningTime+50*time.Millisecond, "expiry after stop")
}

func TestActivityTracker_RecordIgnoredWhenStopped(t *testing.T) {
	tracker, warned, _ := newTestTracker(t)

	tracker.Record(ActivityPress)

	assertQuiet(t, warned, testInactivityTimeout+50*time.Millisecond, "warning without start")
	assert.True(t, tracker.LastActivity().IsZero())
}

func TestActivityTracker_RecordUpdatesLastActivity(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	tracker.Start()
	before := tracker.LastActivity()
	time.Sleep(5 * time.Millisecond)
	tracker.Record(ActivityScroll)

	assert.True(t, tracker.LastActivity().After(before))
}
