package logger_test

import (
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggingConfig(t *testing.T) *models.Config {
	return &models.Config{
		LogDirectory: t.TempDir(),
		LogLevel:     logging.ERROR,
	}
}

func TestInitLogger(t *testing.T) {
	config := loggingConfig(t)
	log, filename, err := logger.InitLogger(config)
	require.Nil(t, err)
	log.Error("Deposit harvest failed.")
	log.Info("Below the configured level")
	assert.Equal(t, filepath.Join(config.AbsLogDirectory(), path.Base(os.Args[0])+".log"), filename)
	data, err := ioutil.ReadFile(filename)
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(string(data), "[ERROR] Deposit harvest failed.\n"))
	assert.NotContains(t, string(data), "Below the configured level")
}

func TestInitJsonLogger(t *testing.T) {
	config := loggingConfig(t)
	log, filename, err := logger.InitJsonLogger(config)
	require.Nil(t, err)
	log.Println(`{"deposit":"D"}`)
	assert.Equal(t, filepath.Join(config.AbsLogDirectory(), path.Base(os.Args[0])+".json"), filename)
	data, err := ioutil.ReadFile(filename)
	require.Nil(t, err)
	assert.Equal(t, "{\"deposit\":\"D\"}\n", string(data))
}

func TestInitLogger_BadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.Nil(t, ioutil.WriteFile(file, []byte("x"), 0644))
	_, _, err := logger.InitLogger(&models.Config{LogDirectory: file})
	assert.NotNil(t, err)
}

func TestDiscardLogger(t *testing.T) {
	log := logger.DiscardLogger("logger_test")
	require.NotNil(t, log)
	log.Info("Nowhere")
	logger.DiscardJsonLogger().Println("{}")
}
