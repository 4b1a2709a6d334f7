package storage_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageLocks(t *testing.T) {
	boltDB := openTestDB(t)
	lock, err := boltDB.GetStageLock(constants.StageHarvest)
	require.Nil(t, err)
	assert.Nil(t, lock)

	lock, err = boltDB.AcquireStageLock(constants.StageHarvest, time.Hour)
	require.Nil(t, err)
	require.NotNil(t, lock)

	// Same process may renew.
	again, err := boltDB.AcquireStageLock(constants.StageHarvest, time.Hour)
	require.Nil(t, err)
	require.NotNil(t, again)

	stored, err := boltDB.GetStageLock(constants.StageHarvest)
	require.Nil(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, lock.Pid, stored.Pid)

	require.Nil(t, boltDB.ReleaseStageLock(again))
	stored, err = boltDB.GetStageLock(constants.StageHarvest)
	require.Nil(t, err)
	assert.Nil(t, stored)
}

func TestStageLocks_OtherProcess(t *testing.T) {
	boltDB := openTestDB(t)
	foreign := &models.StageLock{
		Stage:      constants.StageValidate,
		Node:       "some-other-host",
		Pid:        1,
		AcquiredAt: time.Now().UTC(),
	}
	require.Nil(t, boltDB.Update(func(tx *storage.Tx) error {
		return storage.PutStageLockForTest(tx, foreign)
	}))

	_, err := boltDB.AcquireStageLock(constants.StageValidate, time.Hour)
	assert.Equal(t, storage.ErrLocked, errors.Cause(err))

	// Releasing someone else's lock does nothing.
	mine := models.NewStageLock(constants.StageValidate)
	require.Nil(t, boltDB.ReleaseStageLock(mine))
	stored, err := boltDB.GetStageLock(constants.StageValidate)
	require.Nil(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "some-other-host", stored.Node)

	// A stale lock can be taken over.
	lock, err := boltDB.AcquireStageLock(constants.StageValidate, time.Nanosecond)
	require.Nil(t, err)
	assert.False(t, lock.BelongsToAnotherProcess())
}
