package models_test

import (
	"github.com/pkp/pln/models"
	"github.com/stretchr/testify/assert"
	"testing"
)

func depositOfSize(uuid string, size int64) *models.Deposit {
	deposit := models.NewDeposit("P", uuid)
	deposit.PackageSize = size
	return deposit
}

func TestAuContainerLatch(t *testing.T) {
	container := models.NewAuContainer()
	assert.True(t, container.IsOpen())
	container.SetOpen(true)
	assert.True(t, container.IsOpen())
	container.SetOpen(false)
	assert.False(t, container.IsOpen())
	container.SetOpen(true)
	assert.False(t, container.IsOpen())
}

func TestAuContainerSize(t *testing.T) {
	container := models.NewAuContainer()
	container.Id = 3
	assert.Equal(t, int64(0), container.Size())

	d1 := depositOfSize("D1", 100)
	d2 := depositOfSize("D2", 250)
	d3 := depositOfSize("D3", 50)
	container.AddDeposit(d1)
	container.AddDeposit(d2)
	container.AddDeposit(d3)
	assert.Equal(t, int64(400), container.Size())
	assert.Equal(t, 3, container.CountDeposits())
	assert.Equal(t, uint64(3), d2.AuContainerId)

	assert.True(t, container.RemoveDeposit("D2"))
	assert.Equal(t, int64(150), container.Size())
	assert.Equal(t, 2, container.CountDeposits())
	assert.Equal(t, uint64(0), d2.AuContainerId)
	assert.False(t, container.RemoveDeposit("D2"))

	// Size is recomputed, so a member's new size shows up at once.
	d1.PackageSize = 1000
	assert.Equal(t, int64(1050), container.Size())
}
