package models

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/util/fileutil"
)

type WorkerConfig struct {
	// This describes how often the NSQ client should ping
	// the NSQ server to let it know it's still there. The
	// setting must be formatted like so:
	//
	// "800ms" for 800 milliseconds
	// "10s" for ten seconds
	// "1m" for one minute
	HeartbeatInterval string

	// The maximum number of times NSQ should deliver a message
	// for this stage before the consumer gives up on it.
	MaxAttempts uint16

	// Maximum number of messages a consumer will accept from the
	// queue at one time.
	MaxInFlight int

	// If the NSQ server does not hear from a client that a
	// job is complete in this amount of time, the server
	// considers the job to have timed out and re-queues it.
	MessageTimeout string

	// The name of the NSQ Channel the worker should read from.
	NsqChannel string

	// The name of the NSQ Topic the worker should listen to.
	// The pipeline also publishes to the next stage's topic
	// after a deposit moves forward.
	NsqTopic string

	// This describes how long the NSQ client will wait for
	// a read from the NSQ server before timing out. The format
	// is the same as for HeartbeatInterval.
	ReadTimeout string

	// Number of deposits a pipeline run processes at once.
	// Zero or one means one at a time.
	Workers int

	// This describes how long the NSQ client will wait for
	// a write to the NSQ server to complete before timing out.
	// The format is the same as for HeartbeatInterval.
	WriteTimeout string
}

type Config struct {
	// ActiveConfig is the configuration currently
	// in use.
	ActiveConfig string

	// ArchiveBucket is the bucket on the archive's S3-compatible
	// endpoint where the network stores AU content.
	ArchiveBucket string

	// ArchiveEndpoint is the host:port of the archive's S3-compatible
	// interface. Do not include the protocol.
	ArchiveEndpoint string

	// ArchiveUseSSL tells the archive client whether to use https.
	ArchiveUseSSL bool

	// BlockPrivateNetworks makes ping and harvest requests refuse
	// private, loopback and link-local addresses. Leave this on
	// everywhere but development and test.
	BlockPrivateNetworks bool

	// DatabaseFile is the path to the bolt database that holds
	// providers, deposits, containers, lists and terms.
	DatabaseFile string

	// DaysSilent is how long a provider may go without contacting
	// us before the health check flags it.
	DaysSilent int

	// Configuration options for the deposit stage.
	DepositWorker WorkerConfig

	// Configuration options for the harvest stage.
	HarvestWorker WorkerConfig

	// HarvestDirectory is where harvested deposits are unpacked,
	// one directory per provider.
	HarvestDirectory string

	// HarvestTimeout bounds each package download, e.g. "5m".
	HarvestTimeout string

	// ListenAddress is where the SWORD server listens, e.g. ":8080".
	ListenAddress string

	// LogDirectory is where we'll write our log files.
	LogDirectory string

	// LogLevel is defined in github.com/op/go-logging
	// and should be one of the following:
	// 1 - CRITICAL
	// 2 - ERROR
	// 3 - WARNING
	// 4 - NOTICE
	// 5 - INFO
	// 6 - DEBUG
	LogLevel logging.Level

	// If true, processes will log to STDERR in addition
	// to their standard log files. You really only want
	// to do this in development.
	LogToStderr bool

	// MaxAuSize is the size in bytes at which an AU container
	// is closed.
	MaxAuSize int64

	// MaxHarvestAttempts is the number of times the harvester
	// tries a deposit before leaving it in harvest-error.
	MaxHarvestAttempts int

	// MaxUploadSize is the largest package, in bytes, that a
	// provider may deposit. Reported in the service document.
	MaxUploadSize int64

	// MinOjsVersion is the oldest application version that is
	// automatically enrolled on the allow list by ping.
	MinOjsVersion string

	// Messages shown in the provider's network status widget.
	NetworkAccepting string
	NetworkDefault   string
	NetworkOldOjs    string

	// NotificationTopic is the NSQ topic that receives health
	// check notifications for operators. Leave blank to only log.
	NotificationTopic string

	// NsqdHttpAddress tells us where to find the NSQ server
	// where we can read from and write to topics and channels.
	// It's typically something like "http://localhost:4151"
	NsqdHttpAddress string

	// NsqLookupd is the full HTTP(S) address of the NSQ Lookup
	// daemon, which is where our worker processes look first to
	// discover where they can find topics and channels. This is
	// typically something like "localhost:4161"
	NsqLookupd string

	// Configuration options for the package stage.
	PackageWorker WorkerConfig

	// PingTimeout bounds each ping request, e.g. "15s".
	PingTimeout string

	// PlnAccepting is the access decision for providers that are
	// on neither the allow list nor the deny list.
	PlnAccepting bool

	// ProcessingDirectory is where the packager builds bags
	// and tar files.
	ProcessingDirectory string

	// RequestsPerMinute is the per-client rate limit for the
	// SWORD endpoints. Zero turns rate limiting off.
	RequestsPerMinute int

	// ServiceUrl is the public base URL of the SWORD server,
	// used to build collection IRIs and deposit receipts.
	ServiceUrl string

	// StageLockTimeout is how long a stage lock stays valid
	// before another node may take it, e.g. "2h".
	StageLockTimeout string

	// StagingBucket and StagingRegion name the S3 bucket where
	// packaged deposits are uploaded for the archive to collect.
	StagingBucket string
	StagingRegion string

	// Configuration options for the status stage.
	StatusWorker WorkerConfig

	// UploadChecksumType is the digest algorithm providers should
	// use. Reported in the service document.
	UploadChecksumType string

	// Configuration options for the validate stage.
	ValidateWorker WorkerConfig
}

// This returns the configuration that the user requested,
// which is specified in the --config flag when we run a
// program from the command line
func LoadConfigFile(pathToConfigFile string) (*Config, error) {
	file, err := fileutil.LoadRelativeFile(pathToConfigFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading config file '%s'", pathToConfigFile)
	}
	config := &Config{}
	err = json.Unmarshal(file, config)
	if err != nil {
		return nil, errors.Wrapf(err, "Error parsing JSON from config file '%s'", pathToConfigFile)
	}
	config.ActiveConfig = pathToConfigFile
	return config, nil
}

// EnsureDirectories expands ~ in all configured paths and creates
// the log, harvest and processing directories if necessary.
// Returns the absolute path the logging directory.
func (config *Config) EnsureDirectories() (string, error) {
	config.ExpandFilePaths()
	err := config.createDirectories()
	if err != nil {
		return "", err
	}
	return config.AbsLogDirectory(), nil
}

func (config *Config) AbsLogDirectory() string {
	absLogDir, err := filepath.Abs(config.LogDirectory)
	if err != nil {
		msg := fmt.Sprintf("Cannot get absolute path to log directory. "+
			"config.LogDirectory is set to '%s'", config.LogDirectory)
		panic(msg)
	}
	return absLogDir
}

// Expands ~ file paths to absolute paths.
func (config *Config) ExpandFilePaths() {
	for _, path := range []*string{
		&config.LogDirectory,
		&config.HarvestDirectory,
		&config.ProcessingDirectory,
		&config.DatabaseFile,
	} {
		expanded, err := fileutil.ExpandTilde(*path)
		if err == nil {
			*path = expanded
		}
	}
}

func (config *Config) createDirectories() error {
	if config.LogDirectory == "" {
		return fmt.Errorf("You must define config.LogDirectory")
	}
	if config.HarvestDirectory == "" {
		return fmt.Errorf("You must define config.HarvestDirectory")
	}
	if config.ProcessingDirectory == "" {
		return fmt.Errorf("You must define config.ProcessingDirectory")
	}
	dirs := []string{config.LogDirectory, config.HarvestDirectory, config.ProcessingDirectory}
	if config.DatabaseFile != "" {
		dirs = append(dirs, filepath.Dir(config.DatabaseFile))
	}
	for _, dir := range dirs {
		if !fileutil.FileExists(dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

// WorkerConfigFor returns the worker settings for the named stage.
func (config *Config) WorkerConfigFor(stage string) (WorkerConfig, error) {
	switch stage {
	case constants.StageHarvest:
		return config.HarvestWorker, nil
	case constants.StageValidate:
		return config.ValidateWorker, nil
	case constants.StagePackage:
		return config.PackageWorker, nil
	case constants.StageDeposit:
		return config.DepositWorker, nil
	case constants.StageStatus:
		return config.StatusWorker, nil
	}
	return WorkerConfig{}, fmt.Errorf("Unknown stage: %s", stage)
}

// HarvestPath returns the directory where the deposit's package
// is unpacked.
func (config *Config) HarvestPath(deposit *Deposit) string {
	return filepath.Join(config.HarvestDirectory, deposit.ProviderUuid, deposit.DepositUuid)
}

// ProcessingPath returns the directory where the packager builds
// the deposit's bag.
func (config *Config) ProcessingPath(deposit *Deposit) string {
	return filepath.Join(config.ProcessingDirectory, deposit.ProviderUuid, deposit.DepositUuid)
}

// PingTimeoutDuration returns PingTimeout, or 15 seconds if it
// is missing or malformed.
func (config *Config) PingTimeoutDuration() time.Duration {
	return parseDuration(config.PingTimeout, 15*time.Second)
}

// HarvestTimeoutDuration returns HarvestTimeout, or 5 minutes if
// it is missing or malformed.
func (config *Config) HarvestTimeoutDuration() time.Duration {
	return parseDuration(config.HarvestTimeout, 5*time.Minute)
}

// StageLockTimeoutDuration returns StageLockTimeout, or 2 hours if
// it is missing or malformed.
func (config *Config) StageLockTimeoutDuration() time.Duration {
	return parseDuration(config.StageLockTimeout, 2*time.Hour)
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return defaultValue
	}
	return duration
}

// TestsAreRunning returns true if we're running unit or integration
// tests; false otherwise.
func (config *Config) TestsAreRunning() bool {
	return flag.Lookup("test.v") != nil
}

// GetAWSAccessKeyId returns the AWS Access Key ID from the environment,
// or an empty string if the ENV var isn't set. In test context, this
// returns a dummy key id.
func (config *Config) GetAWSAccessKeyId() string {
	keyId := os.Getenv("AWS_ACCESS_KEY_ID")
	if keyId == "" && config.TestsAreRunning() {
		keyId = "TestKeyId"
	}
	return keyId
}

// GetArchiveCredentials returns the access key and secret for the
// archive's S3-compatible endpoint from ARCHIVE_ACCESS_KEY and
// ARCHIVE_SECRET_KEY.
func (config *Config) GetArchiveCredentials() (accessKey, secretKey string) {
	return os.Getenv("ARCHIVE_ACCESS_KEY"), os.Getenv("ARCHIVE_SECRET_KEY")
}
