package models_test

import (
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	configFile := filepath.Join("config", "test.json")
	config, err := models.LoadConfigFile(configFile)
	require.Nil(t, err)

	// Spot check a few settings.
	assert.Equal(t, configFile, config.ActiveConfig)
	assert.True(t, config.PlnAccepting)
	assert.Equal(t, "3.1.2.0", config.MinOjsVersion)
	assert.Equal(t, int64(1000000), config.MaxAuSize)
	assert.Equal(t, "harvest_topic", config.HarvestWorker.NsqTopic)
	assert.Equal(t, "10s", config.StatusWorker.HeartbeatInterval)
	assert.Equal(t, 2, config.ValidateWorker.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := models.LoadConfigFile(filepath.Join("config", "no_such_file.json"))
	require.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "Error reading config file"))
}

func TestEnsureDirectories(t *testing.T) {
	dir, err := ioutil.TempDir("", "config_test")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	config := &models.Config{
		LogDirectory:        filepath.Join(dir, "logs"),
		HarvestDirectory:    filepath.Join(dir, "harvest"),
		ProcessingDirectory: filepath.Join(dir, "processing"),
		DatabaseFile:        filepath.Join(dir, "db", "pln.db"),
	}
	absPathToLogDir, err := config.EnsureDirectories()
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(absPathToLogDir, "/"))
	assert.DirExists(t, config.HarvestDirectory)
	assert.DirExists(t, config.ProcessingDirectory)
	assert.DirExists(t, filepath.Join(dir, "db"))

	config.HarvestDirectory = ""
	_, err = config.EnsureDirectories()
	assert.NotNil(t, err)
}

func TestExpandFilePaths(t *testing.T) {
	config := &models.Config{
		LogDirectory:     "~/tmp/log",
		HarvestDirectory: "/abs/harvest",
	}
	config.ExpandFilePaths()
	assert.False(t, strings.HasPrefix(config.LogDirectory, "~"))
	assert.Equal(t, "/abs/harvest", config.HarvestDirectory)
}

func TestWorkerConfigFor(t *testing.T) {
	config, err := models.LoadConfigFile(filepath.Join("config", "test.json"))
	require.Nil(t, err)
	for _, stage := range constants.Stages {
		workerConfig, err := config.WorkerConfigFor(stage)
		require.Nil(t, err)
		assert.Equal(t, stage+"_topic", workerConfig.NsqTopic)
	}
	_, err = config.WorkerConfigFor("restore")
	assert.NotNil(t, err)
}

func TestDurations(t *testing.T) {
	config := &models.Config{
		PingTimeout:      "3s",
		HarvestTimeout:   "not a duration",
		StageLockTimeout: "",
	}
	assert.Equal(t, 3*time.Second, config.PingTimeoutDuration())
	assert.Equal(t, 5*time.Minute, config.HarvestTimeoutDuration())
	assert.Equal(t, 2*time.Hour, config.StageLockTimeoutDuration())
}

func TestHarvestAndProcessingPaths(t *testing.T) {
	config := &models.Config{
		HarvestDirectory:    "/mnt/pln/harvest",
		ProcessingDirectory: "/mnt/pln/processing",
	}
	deposit := models.NewDeposit("abcd-1234", "dep-1")
	assert.Equal(t, "/mnt/pln/harvest/ABCD-1234/DEP-1", config.HarvestPath(deposit))
	assert.Equal(t, "/mnt/pln/processing/ABCD-1234/DEP-1", config.ProcessingPath(deposit))
}

func TestTestsAreRunning(t *testing.T) {
	config := &models.Config{}
	assert.True(t, config.TestsAreRunning())
}

func TestGetAWSAccessKeyId(t *testing.T) {
	keyId := os.Getenv("AWS_ACCESS_KEY_ID")
	defer os.Setenv("AWS_ACCESS_KEY_ID", keyId)

	config := &models.Config{}
	os.Setenv("AWS_ACCESS_KEY_ID", "")
	assert.Equal(t, "TestKeyId", config.GetAWSAccessKeyId())
	os.Setenv("AWS_ACCESS_KEY_ID", "abc")
	assert.Equal(t, "abc", config.GetAWSAccessKeyId())
}
