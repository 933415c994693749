package service

import (
	"sync"
	"time"
)

// VotingSession bounds the window in which state-mutating operations are
// accepted. A zero duration means the session has no deadline and stays open
// until explicitly ended.
type VotingSession struct {
	startTime time.Time
	endTime   time.Time
	isActive  bool
	mu        sync.RWMutex
}

func NewVotingSession(duration time.Duration) *VotingSession {
	now := time.Now()
	session := &VotingSession{
		startTime: now,
		isActive:  true,
	}
	// A negative duration yields a deadline already in the past, so the
	// session starts closed rather than open-ended.
	if duration != 0 {
		session.endTime = now.Add(duration)
	}
	return session
}

func (vs *VotingSession) IsActive() bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	if !vs.isActive {
		return false
	}
	return vs.endTime.IsZero() || time.Now().Before(vs.endTime)
}

func (vs *VotingSession) End() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.isActive = false
}

func (vs *VotingSession) StartedAt() time.Time {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.startTime
}

// Deadline returns the session end time and whether one is set.
func (vs *VotingSession) Deadline() (time.Time, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.endTime, !vs.endTime.IsZero()
}
