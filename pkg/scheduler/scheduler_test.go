package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestScheduleDebouncesByKey(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs, last atomic.Int64
	for i := 1; i <= 5; i++ {
		v := int64(i)
		s.Schedule("qty:item-1", 20*time.Millisecond, func(context.Context, Token) {
			runs.Add(1)
			last.Store(v)
		})
	}

	waitFor(t, func() bool { return runs.Load() == 1 })
	time.Sleep(40 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected exactly one run, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Fatalf("expected the last scheduled action to run, got %d", got)
	}
}

func TestScheduleKeysAreIndependent(t *testing.T) {
	s := New()
	defer s.Stop()

	var a, b atomic.Bool
	s.Schedule("a", 5*time.Millisecond, func(context.Context, Token) { a.Store(true) })
	s.Schedule("b", 5*time.Millisecond, func(context.Context, Token) { b.Store(true) })

	waitFor(t, func() bool { return a.Load() && b.Load() })
}

func TestTokenGoesStaleWhenRescheduledMidFlight(t *testing.T) {
	s := New()
	defer s.Stop()

	started := make(chan Token, 1)
	release := make(chan struct{})
	s.Schedule("shipping", 0, func(_ context.Context, tok Token) {
		started <- tok
		<-release
	})

	first := <-started
	if first.Stale() {
		t.Fatalf("token should be fresh while its action runs")
	}

	s.Schedule("shipping", time.Hour, nil)
	if !first.Stale() {
		t.Fatalf("token should be stale after the key is rescheduled")
	}
	close(release)
}

func TestCancelStopsPendingAction(t *testing.T) {
	s := New()
	defer s.Stop()

	var ran atomic.Bool
	tok := s.Schedule("k", 20*time.Millisecond, func(context.Context, Token) { ran.Store(true) })
	if !s.Pending("k") {
		t.Fatalf("expected pending timer")
	}
	s.Cancel("k")

	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("cancelled action ran")
	}
	if !tok.Stale() {
		t.Fatalf("token should be stale after cancel")
	}
	if s.Pending("k") {
		t.Fatalf("no timer should remain after cancel")
	}
}

func TestStopCancelsContextAndIgnoresLaterSchedules(t *testing.T) {
	s := New()

	started := make(chan struct{})
	done := make(chan struct{})
	s.Schedule("k", 0, func(ctx context.Context, _ Token) {
		close(started)
		<-ctx.Done()
		close(done)
	})
	<-started
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("running action did not observe cancellation")
	}

	var ran atomic.Bool
	s.Schedule("k", 0, func(context.Context, Token) { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("schedule after stop should not run")
	}
}

func TestZeroTokenIsStale(t *testing.T) {
	if !(Token{}).Stale() {
		t.Fatalf("zero token must be stale")
	}
}
