// Package logger opens the two logs every pln command writes: a
// human-readable message log and a JSON log with one committed
// deposit transition per line.
package logger

import (
	"fmt"
	"io/ioutil"
	stdlog "log"
	"os"
	"path"
	"path/filepath"

	"github.com/op/go-logging"
	"github.com/pkp/pln/models"
)

const messageFormat = "%{time:2006-01-02T15:04:05.000Z07:00} [%{level}] %{message}"

// logName is the base name of the log files, taken from the running
// executable.
func logName() string {
	return path.Base(os.Args[0])
}

func openLogFile(config *models.Config, extension string) (*os.File, string, error) {
	filename := filepath.Join(config.AbsLogDirectory(), logName()+extension)
	if err := os.MkdirAll(config.AbsLogDirectory(), 0755); err != nil {
		return nil, filename, fmt.Errorf("Cannot create log directory: %v", err)
	}
	writer, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, filename, fmt.Errorf("Cannot open log file '%s': %v", filename, err)
	}
	return writer, filename, nil
}

// InitLogger returns the message log at config.LogLevel, and the
// path of its file. With config.LogToStderr, messages also go to
// stderr.
func InitLogger(config *models.Config) (*logging.Logger, string, error) {
	writer, filename, err := openLogFile(config, ".log")
	if err != nil {
		return nil, filename, err
	}
	module := logName()
	log := logging.MustGetLogger(module)
	logging.SetFormatter(logging.MustStringFormatter(messageFormat))
	fileBackend := logging.NewLogBackend(writer, "", 0)
	if config.LogToStderr {
		stderrBackend := logging.NewLogBackend(os.Stderr, "", 0)
		stderrBackend.Color = true
		logging.SetBackend(fileBackend, stderrBackend)
	} else {
		logging.SetBackend(fileBackend)
	}
	// SetBackend resets levels.
	logging.SetLevel(config.LogLevel, module)
	return log, filename, nil
}

// InitJsonLogger returns the transition log and the path of its
// file. Lines are bare JSON objects.
func InitJsonLogger(config *models.Config) (*stdlog.Logger, string, error) {
	writer, filename, err := openLogFile(config, ".json")
	if err != nil {
		return nil, filename, err
	}
	return stdlog.New(writer, "", 0), filename, nil
}

// DiscardLogger returns a message log that writes nowhere.
func DiscardLogger(module string) *logging.Logger {
	log := logging.MustGetLogger(module)
	logging.SetBackend(logging.NewLogBackend(ioutil.Discard, "", 0))
	logging.SetLevel(logging.INFO, module)
	return log
}

func DiscardJsonLogger() *stdlog.Logger {
	return stdlog.New(ioutil.Discard, "", 0)
}
