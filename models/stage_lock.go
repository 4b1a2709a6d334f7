package models

import (
	"os"
	"time"
)

// StageLock marks a stage as being run by one process, so that two
// runs of the same stage do not process the same deposits. The lock
// is advisory: a lock older than the configured timeout is treated
// as abandoned.
type StageLock struct {
	Stage      string
	Node       string
	Pid        int
	AcquiredAt time.Time
}

// NewStageLock returns a lock for stage owned by this process.
func NewStageLock(stage string) *StageLock {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "hostname?"
	}
	return &StageLock{
		Stage:      stage,
		Node:       hostname,
		Pid:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
}

// BelongsToAnotherProcess returns true if the lock was taken by a
// different host or process.
func (lock *StageLock) BelongsToAnotherProcess() bool {
	hostname, _ := os.Hostname()
	return lock.Node != hostname || lock.Pid != os.Getpid()
}

// IsStale returns true if the lock is older than timeout.
func (lock *StageLock) IsStale(timeout time.Duration) bool {
	return time.Since(lock.AcquiredAt) > timeout
}
