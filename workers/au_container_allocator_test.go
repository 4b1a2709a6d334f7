package workers_test

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"testing"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/testutil"
	"github.com/pkp/pln/workers"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveSizedDeposits(t *testing.T, _context *context.Context, sizes ...int64) []string {
	uuids := make([]string, len(sizes))
	for i, size := range sizes {
		deposit := models.NewDeposit("provider-1", fmt.Sprintf("dep-%02d", i))
		deposit.State = constants.StateValidated
		deposit.PackageSize = size
		require.Nil(t, _context.Store.SaveDeposit(deposit))
		uuids[i] = deposit.DepositUuid
	}
	return uuids
}

func TestAllocator(t *testing.T) {
	config := testutil.TestConfig(t)
	config.MaxAuSize = 1000
	_context := testutil.MakeContextWithConfig(t, config)
	uuids := saveSizedDeposits(t, _context, 400, 400, 400)

	allocator := workers.NewAuContainerAllocator(_context)
	runStats, err := allocator.Run(false)
	require.Nil(t, err)
	assert.Equal(t, 3, runStats.Selected)
	assert.Equal(t, 3, runStats.Succeeded)

	first, err := _context.Store.GetContainer(1)
	require.Nil(t, err)
	assert.False(t, first.IsOpen())
	assert.Equal(t, int64(800), first.Size())
	assert.Equal(t, []string{uuids[0], uuids[1]}, first.DepositUuids)

	second, err := _context.Store.GetContainer(2)
	require.Nil(t, err)
	assert.True(t, second.IsOpen())
	assert.Equal(t, int64(400), second.Size())

	deposit, err := _context.Store.GetDeposit(uuids[2])
	require.Nil(t, err)
	assert.Equal(t, uint64(2), deposit.AuContainerId)
	assert.Equal(t, float64(400), promtest.ToFloat64(_context.Collector.AuContainerSize))

	// Assigned deposits are not selected again.
	runStats, err = allocator.Run(false)
	require.Nil(t, err)
	assert.Equal(t, 0, runStats.Selected)
}

func TestAllocator_ClosesFullContainer(t *testing.T) {
	config := testutil.TestConfig(t)
	config.MaxAuSize = 1000
	_context := testutil.MakeContextWithConfig(t, config)
	saveSizedDeposits(t, _context, 1500, 10)

	_, err := workers.NewAuContainerAllocator(_context).Run(false)
	require.Nil(t, err)

	// An oversized deposit still goes into an empty container,
	// which is then closed.
	first, err := _context.Store.GetContainer(1)
	require.Nil(t, err)
	assert.Equal(t, 1, first.CountDeposits())
	assert.False(t, first.IsOpen())

	second, err := _context.Store.GetContainer(2)
	require.Nil(t, err)
	assert.Equal(t, int64(10), second.Size())
	assert.True(t, second.IsOpen())
}

func TestAllocator_SealedContainersStayClosed(t *testing.T) {
	_context := testutil.MakeContext(t)
	saveSizedDeposits(t, _context, 10)
	allocator := workers.NewAuContainerAllocator(_context)
	_, err := allocator.Run(false)
	require.Nil(t, err)

	container, err := allocator.Seal(1)
	require.Nil(t, err)
	assert.False(t, container.IsOpen())

	deposit := models.NewDeposit("provider-1", "late")
	deposit.State = constants.StatePackaged
	deposit.PackageSize = 5
	require.Nil(t, _context.Store.SaveDeposit(deposit))
	_, err = allocator.Run(false)
	require.Nil(t, err)

	sealed, err := _context.Store.GetContainer(1)
	require.Nil(t, err)
	assert.Equal(t, 1, sealed.CountDeposits())
	stored, err := _context.Store.GetDeposit("late")
	require.Nil(t, err)
	assert.Equal(t, uint64(2), stored.AuContainerId)
}

func TestAllocator_DryRun(t *testing.T) {
	_context := testutil.MakeContext(t)
	saveSizedDeposits(t, _context, 10, 20)
	before, err := ioutil.ReadFile(_context.Store.FilePath())
	require.Nil(t, err)

	runStats, err := workers.NewAuContainerAllocator(_context).Run(true)
	require.Nil(t, err)
	assert.Equal(t, 2, len(runStats.Transitions))

	containers, err := _context.Store.Containers()
	require.Nil(t, err)
	assert.Empty(t, containers)
	after, err := ioutil.ReadFile(_context.Store.FilePath())
	require.Nil(t, err)
	assert.True(t, bytes.Equal(before, after))
}
