package models_test

import (
	"github.com/pkp/pln/models"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestStageLock(t *testing.T) {
	lock := models.NewStageLock("harvest")
	assert.Equal(t, "harvest", lock.Stage)
	assert.False(t, lock.BelongsToAnotherProcess())
	assert.False(t, lock.IsStale(time.Minute))

	lock.Pid = lock.Pid + 1
	assert.True(t, lock.BelongsToAnotherProcess())

	lock.AcquiredAt = time.Now().Add(-2 * time.Hour)
	assert.True(t, lock.IsStale(time.Hour))
}
