package syncer

import (
	"sync"
	"time"
)

// State is the synchronization state one stream session controller owns:
// the last-send clock, the bounded time-expiring recently-sent id set, and
// the per-resource in-flight fetch map. It replaces the ad-hoc module-level
// trackers a naive implementation accretes, and is safe for concurrent use
// by the send path and the stream handlers.
type State struct {
	mu    sync.Mutex
	clock Clock
	cfg   Config

	lastSendAt time.Time
	recentSent map[string]time.Time

	inflight  map[string]struct{}
	lastFetch map[string]time.Time
}

func NewState(cfg Config, clock Clock) *State {
	if clock == nil {
		clock = SystemClock
	}
	return &State{
		clock:      clock,
		cfg:        cfg,
		recentSent: make(map[string]time.Time),
		inflight:   make(map[string]struct{}),
		lastFetch:  make(map[string]time.Time),
	}
}

// NoteSend records a local send: bumps the last-send clock and remembers
// the (temporary) id for echo matching.
func (s *State) NoteSend(id string) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSendAt = now
	s.insertLocked(id, now)
}

// ConfirmSend supersedes a temporary id with the server-assigned one,
// keeping the original send timestamp so the validity window is unchanged.
func (s *State) ConfirmSend(tempID, realID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sentAt, ok := s.recentSent[tempID]
	if !ok {
		sentAt = s.clock.Now()
	}
	delete(s.recentSent, tempID)
	s.insertLocked(realID, sentAt)
}

// RecentlySent reports whether id was sent by this device within the TTL,
// opportunistically pruning expired entries.
func (s *State) RecentlySent(id string) bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	_, ok := s.recentSent[id]
	return ok
}

// SinceLastSend returns the elapsed time since the last local send, or a
// very large duration if nothing was ever sent.
func (s *State) SinceLastSend() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSendAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return s.clock.Now().Sub(s.lastSendAt)
}

// CanFetch marks key in flight and returns true only if no fetch for key is
// currently in flight and (force, or the last completed fetch is older than
// minInterval). A denied caller skips silently; the in-flight fetch will
// deliver sufficiently fresh state.
func (s *State) CanFetch(key string, minInterval time.Duration, force bool) bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	if !force {
		if last, ok := s.lastFetch[key]; ok && now.Sub(last) <= minInterval {
			return false
		}
	}
	s.inflight[key] = struct{}{}
	return true
}

// MarkDone clears the in-flight mark. Callers must invoke it in a defer
// regardless of fetch success or failure.
func (s *State) MarkDone(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
	s.lastFetch[key] = s.clock.Now()
}

func (s *State) insertLocked(id string, at time.Time) {
	if len(s.recentSent) >= s.cfg.RecentSentCap && s.cfg.RecentSentCap > 0 {
		oldestID := ""
		var oldestAt time.Time
		for k, v := range s.recentSent {
			if oldestID == "" || v.Before(oldestAt) {
				oldestID, oldestAt = k, v
			}
		}
		delete(s.recentSent, oldestID)
	}
	s.recentSent[id] = at
}

func (s *State) pruneLocked(now time.Time) {
	for id, at := range s.recentSent {
		if now.Sub(at) > s.cfg.RecentSentTTL {
			delete(s.recentSent, id)
		}
	}
}
