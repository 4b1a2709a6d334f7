package context_test

import (
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/pkp/pln/context"
	"github.com/pkp/pln/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	appConfig := testutil.TestConfig(t)
	// In some tests we want to log to STDERR, but in this case, if it
	// happens to be turned on, it just creates useless, annoying output.
	appConfig.LogToStderr = false
	appConfig.NsqdHttpAddress = "http://localhost:4151"

	_context, err := context.NewContext(appConfig)
	require.Nil(t, err)
	require.NotNil(t, _context)
	defer _context.Close()

	expectedPathToLogFile := filepath.Join(_context.Config.AbsLogDirectory(), path.Base(os.Args[0])+".log")
	expectedPathToJsonLog := filepath.Join(_context.Config.AbsLogDirectory(), path.Base(os.Args[0])+".json")

	assert.NotNil(t, _context.Config)
	assert.NotNil(t, _context.NSQClient)
	assert.NotNil(t, _context.Store)
	assert.NotNil(t, _context.Guard)
	assert.NotNil(t, _context.Collector)
	assert.NotNil(t, _context.MessageLog)
	assert.NotNil(t, _context.JsonLog)
	assert.Equal(t, expectedPathToLogFile, _context.PathToLogFile())
	assert.Equal(t, expectedPathToJsonLog, _context.PathToJsonLog())
	assert.Equal(t, appConfig.DatabaseFile, _context.Store.FilePath())
	assert.Equal(t, int64(0), _context.Succeeded())
	assert.Equal(t, int64(0), _context.Failed())

	assert.NotPanics(t, func() { _context.MessageLog.Info("Test INFO log message") })
	assert.NotPanics(t, func() { _context.MessageLog.Debug("Test DEBUG log message") })
	assert.NotPanics(t, func() { _context.LogStats() })
}

func TestContextCounters(t *testing.T) {
	_context := testutil.MakeContext(t)
	_context.IncrementSucceeded()
	_context.IncrementSucceeded()
	_context.IncrementFailed()
	assert.Equal(t, int64(2), _context.Succeeded())
	assert.Equal(t, int64(1), _context.Failed())
}

func TestArchiveClient(t *testing.T) {
	_context := testutil.MakeContext(t)
	client, err := _context.ArchiveClient()
	require.Nil(t, err)
	require.NotNil(t, client)
	assert.Equal(t, _context.Config.ArchiveBucket, client.Bucket)

	again, err := _context.ArchiveClient()
	require.Nil(t, err)
	assert.True(t, client == again)
}
