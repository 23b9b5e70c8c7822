package services

import "sync"

// sessionLockRegistry serializes writers within one session without ever
// blocking across sessions. Autosave takes the session's read lock plus a
// per-question mutex, so saves for distinct questions run concurrently
// while two saves for the same question serialize (last commit wins).
// FinalizeRound takes the write lock, which acts as the read barrier: it
// waits for in-flight autosaves to commit, then holds the lock across
// the answer snapshot and the completed-status flip, so saves queued
// behind it re-read the session as completed and are rejected.
type sessionLockRegistry struct {
	mu       sync.Mutex
	sessions map[uint]*sessionLock
}

type sessionLock struct {
	barrier sync.RWMutex

	mu        sync.Mutex
	questions map[uint]*sync.Mutex
}

func newSessionLockRegistry() *sessionLockRegistry {
	return &sessionLockRegistry{sessions: make(map[uint]*sessionLock)}
}

func (r *sessionLockRegistry) get(sessionID uint) *sessionLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.sessions[sessionID]
	if !ok {
		lock = &sessionLock{questions: make(map[uint]*sync.Mutex)}
		r.sessions[sessionID] = lock
	}
	return lock
}

// LockQuestion acquires the autosave-side locks for one (session, question)
// pair and returns the release function.
func (r *sessionLockRegistry) LockQuestion(sessionID, questionID uint) func() {
	lock := r.get(sessionID)
	lock.barrier.RLock()

	lock.mu.Lock()
	qmu, ok := lock.questions[questionID]
	if !ok {
		qmu = &sync.Mutex{}
		lock.questions[questionID] = qmu
	}
	lock.mu.Unlock()

	qmu.Lock()
	return func() {
		qmu.Unlock()
		lock.barrier.RUnlock()
	}
}

// LockSession acquires the finalize-side write barrier for a session and
// returns the release function.
func (r *sessionLockRegistry) LockSession(sessionID uint) func() {
	lock := r.get(sessionID)
	lock.barrier.Lock()
	return func() {
		lock.barrier.Unlock()
	}
}

// Release drops the lock state for a finished session. Safe to call while
// no writer holds the locks; completed sessions take no further writes.
func (r *sessionLockRegistry) Release(sessionID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}
