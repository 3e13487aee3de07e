package engine

import (
	"sync"
)

// workflowLocks serializes runs of the same workflow. Concurrent runs of
// different workflows proceed independently.
type workflowLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWorkflowLocks() *workflowLocks {
	return &workflowLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *workflowLocks) lock(workflowID string) func() {
	l.mu.Lock()
	m, ok := l.locks[workflowID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[workflowID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
