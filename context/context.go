package context

import (
	stdlog "log"
	"sync"
	"sync/atomic"

	"github.com/op/go-logging"
	"github.com/pkp/pln/access"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
	"github.com/pkp/pln/stats"
	"github.com/pkp/pln/util/logger"
	"github.com/pkp/pln/util/storage"
	"github.com/prometheus/client_golang/prometheus"
)

/*
Context sets up the items common to the staging server's commands
and services: the SWORD server, each pipeline stage, the allocator,
ping and health check. It also encapsulates some functions common
to all of them.
*/
type Context struct {
	Config     *models.Config
	MessageLog *logging.Logger
	JsonLog    *stdlog.Logger
	Store      *storage.BoltDB
	Guard      *access.Guard
	Registry   *prometheus.Registry
	Collector  *stats.Collector
	// NSQClient is nil when Config.NsqdHttpAddress is empty.
	NSQClient *network.NSQClient

	pathToLogFile string
	pathToJsonLog string
	succeeded     int64
	failed        int64

	archiveOnce   sync.Once
	archiveClient *network.ArchiveClient
	archiveErr    error
}

/*
NewContext creates and returns a new Context object, with logs
written to Config.LogDirectory. It returns an error if it cannot
create the configured directories or open the database.
*/
func NewContext(config *models.Config) (*Context, error) {
	if _, err := config.EnsureDirectories(); err != nil {
		return nil, err
	}
	messageLog, pathToLogFile, err := logger.InitLogger(config)
	if err != nil {
		return nil, err
	}
	jsonLog, pathToJsonLog, err := logger.InitJsonLogger(config)
	if err != nil {
		return nil, err
	}
	context, err := NewContextWithLoggers(config, messageLog, jsonLog)
	if err != nil {
		return nil, err
	}
	context.pathToLogFile = pathToLogFile
	context.pathToJsonLog = pathToJsonLog
	return context, nil
}

// NewContextWithLoggers creates a Context that writes to the given
// loggers instead of opening log files.
func NewContextWithLoggers(config *models.Config, messageLog *logging.Logger, jsonLog *stdlog.Logger) (*Context, error) {
	store, err := storage.NewBoltDB(config.DatabaseFile)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	collector := stats.NewCollector(registry)
	context := &Context{
		Config:     config,
		MessageLog: messageLog,
		JsonLog:    jsonLog,
		Store:      store,
		Registry:   registry,
		Collector:  collector,
		Guard:      access.NewGuard(store, config.PlnAccepting, messageLog, collector),
	}
	if config.NsqdHttpAddress != "" {
		context.NSQClient = network.NewNSQClient(config.NsqdHttpAddress)
	}
	return context, nil
}

// Close closes the database.
func (context *Context) Close() {
	context.Store.Close()
}

// ArchiveClient returns a client for the archive's S3-compatible
// endpoint, creating it on first use.
func (context *Context) ArchiveClient() (*network.ArchiveClient, error) {
	context.archiveOnce.Do(func() {
		accessKey, secretKey := context.Config.GetArchiveCredentials()
		context.archiveClient, context.archiveErr = network.NewArchiveClient(
			context.Config.ArchiveEndpoint,
			accessKey,
			secretKey,
			context.Config.ArchiveBucket,
			context.Config.ArchiveUseSSL)
	})
	return context.archiveClient, context.archiveErr
}

// Returns the number of items that succeeded.
func (context *Context) Succeeded() int64 {
	return atomic.LoadInt64(&context.succeeded)
}

// Returns the number of items that failed.
func (context *Context) Failed() int64 {
	return atomic.LoadInt64(&context.failed)
}

// Increases the count of successfully processed items by one.
func (context *Context) IncrementSucceeded() int64 {
	return atomic.AddInt64(&context.succeeded, 1)
}

// Increases the count of unsuccessfully processed items by one.
func (context *Context) IncrementFailed() int64 {
	return atomic.AddInt64(&context.failed, 1)
}

// Returns the path to this process' log file
func (context *Context) PathToLogFile() string {
	return context.pathToLogFile
}

// Returns the path to this process' JSON log file
func (context *Context) PathToJsonLog() string {
	return context.pathToJsonLog
}

// Logs info about the number of items that have succeeded and failed.
func (context *Context) LogStats() {
	context.MessageLog.Info("**STATS** Succeeded: %d, Failed: %d",
		context.Succeeded(), context.Failed())
}
