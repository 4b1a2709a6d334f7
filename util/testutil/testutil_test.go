package testutil_test

import (
	"testing"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/util"
	"github.com/pkp/pln/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeProvider(t *testing.T) {
	provider := testutil.MakeProvider()
	assert.True(t, util.LooksLikeUUID(provider.Uuid))
	assert.True(t, util.LooksLikeURL(provider.Url))
	assert.Equal(t, constants.ProviderHealthy, provider.Status)
}

func TestMakeDeposit(t *testing.T) {
	provider := testutil.MakeProvider()
	deposit := testutil.MakeDeposit(provider.Uuid)
	assert.Equal(t, provider.Uuid, deposit.ProviderUuid)
	assert.Equal(t, constants.StateDepositedByJournal, deposit.State)
	assert.True(t, deposit.HasValidChecksum())
	assert.True(t, deposit.PackageSize > 0)
}

func TestMakeContext(t *testing.T) {
	_context := testutil.MakeContext(t)
	require.NotNil(t, _context.Store)
	require.NotNil(t, _context.Guard)
	assert.Equal(t, "", _context.Config.NsqdHttpAddress)
	assert.Nil(t, _context.NSQClient)
}

func TestMemoryLogger(t *testing.T) {
	log, backend := testutil.MemoryLogger("testutil_test")
	log.Info("first %d", 1)
	log.Warning("second")
	messages := testutil.LoggedMessages(backend)
	assert.Equal(t, []string{"first 1", "second"}, messages)
}
