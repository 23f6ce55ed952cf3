// Package scheduler runs keyed, debounced actions. Scheduling a key again
// cancels the pending timer and marks any action already running for that key
// as stale, so late results can be dropped by the caller.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Action runs once the delay for its key elapses without being superseded.
type Action func(ctx context.Context, tok Token)

// Token identifies one scheduling of a key.
type Token struct {
	s   *Scheduler
	key string
	gen uint64
}

// Stale reports whether the key was scheduled again or cancelled after this
// token was issued. The zero Token is always stale.
func (t Token) Stale() bool {
	if t.s == nil {
		return true
	}
	return t.s.generation(t.key) != t.gen
}

type entry struct {
	gen   uint64
	timer *time.Timer
}

type Scheduler struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]*entry
	wg      sync.WaitGroup
	stopped bool
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		entries: map[string]*entry{},
	}
}

// Schedule arranges for action to run after delay unless key is scheduled
// again first. The returned token goes stale on the next Schedule or Cancel for
// the same key. In-flight actions are not interrupted.
func (s *Scheduler) Schedule(key string, delay time.Duration, action Action) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.bumpLocked(key)
	tok := Token{s: s, key: key, gen: e.gen}
	if s.stopped || action == nil {
		return tok
	}
	if delay < 0 {
		delay = 0
	}

	s.wg.Add(1)
	e.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		if !s.fire(key, tok.gen) {
			return
		}
		action(s.ctx, tok)
	})
	return tok
}

// Cancel drops the pending timer for key and invalidates outstanding tokens.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumpLocked(key)
}

// Pending reports whether a timer for key is still waiting to fire.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.timer != nil
}

// Stop cancels every timer, cancels the context handed to running actions and
// waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key := range s.entries {
		s.bumpLocked(key)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// bumpLocked advances the generation for key and stops its timer. A timer that
// is stopped before firing never runs its func, so its WaitGroup slot is
// released here.
func (s *Scheduler) bumpLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	if e.timer != nil && e.timer.Stop() {
		s.wg.Done()
	}
	e.timer = nil
	e.gen++
	return e
}

func (s *Scheduler) fire(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return false
	}
	e.timer = nil
	return true
}

func (s *Scheduler) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.gen
	}
	return 0
}
