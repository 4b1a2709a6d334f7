package storage

import "github.com/pkp/pln/models"

// PutStageLockForTest writes a lock as if another process held it.
func PutStageLockForTest(tx *Tx, lock *models.StageLock) error {
	return tx.put(LockBucket, []byte(lock.Stage), lock)
}
