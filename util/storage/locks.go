package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/models"
)

// GetStageLock returns the current lock on stage, or nil.
func (boltDB *BoltDB) GetStageLock(stage string) (lock *models.StageLock, err error) {
	err = boltDB.View(func(tx *Tx) error {
		lock = &models.StageLock{}
		found, err := tx.get(LockBucket, []byte(stage), lock)
		if !found {
			lock = nil
		}
		return err
	})
	return lock, err
}

// AcquireStageLock takes the lock on stage for this process. If
// another process holds a lock that is younger than timeout, this
// returns ErrLocked. A lock held by this process is renewed.
func (boltDB *BoltDB) AcquireStageLock(stage string, timeout time.Duration) (lock *models.StageLock, err error) {
	err = boltDB.Update(func(tx *Tx) error {
		existing := &models.StageLock{}
		found, err := tx.get(LockBucket, []byte(stage), existing)
		if err != nil {
			return err
		}
		if found && existing.BelongsToAnotherProcess() && !existing.IsStale(timeout) {
			return errors.Wrapf(ErrLocked, "%s is locked by %s pid %d since %s",
				stage, existing.Node, existing.Pid, existing.AcquiredAt.Format(time.RFC3339))
		}
		lock = models.NewStageLock(stage)
		return tx.put(LockBucket, []byte(stage), lock)
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// ReleaseStageLock removes lock if this process still holds it.
func (boltDB *BoltDB) ReleaseStageLock(lock *models.StageLock) error {
	return boltDB.Update(func(tx *Tx) error {
		existing := &models.StageLock{}
		found, err := tx.get(LockBucket, []byte(lock.Stage), existing)
		if err != nil || !found {
			return err
		}
		if existing.Node != lock.Node || existing.Pid != lock.Pid {
			return nil
		}
		return tx.delete(LockBucket, []byte(lock.Stage))
	})
}
