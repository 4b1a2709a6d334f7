// Package testutil builds the records, configs and contexts the
// package tests share.
package testutil

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/icrowley/fake"
	"github.com/op/go-logging"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/logger"
	uuid "github.com/satori/go.uuid"
)

// TestConfigFile is the config the tests start from, relative to
// the project root.
const TestConfigFile = "config/test.json"

// RandomUuid returns a new upper-case uuid.
func RandomUuid() string {
	return strings.ToUpper(uuid.NewV4().String())
}

// RandomDateTime returns a time in the past year.
func RandomDateTime() time.Time {
	return time.Now().UTC().Add(-time.Duration(rand.Intn(365*24)) * time.Hour).Truncate(time.Second)
}

// MakeProvider returns a healthy provider with random details.
func MakeProvider() *models.Provider {
	domain := fake.DomainName()
	provider := models.NewProvider(RandomUuid(), fmt.Sprintf("http://%s/index.php/%s", domain, fake.Word()))
	provider.Title = fake.Title()
	provider.Issn = fmt.Sprintf("%04d-%04d", rand.Intn(10000), rand.Intn(10000))
	provider.PublisherName = fake.Company()
	provider.PublisherUrl = "http://" + domain
	provider.Email = fake.EmailAddress()
	provider.Status = constants.ProviderHealthy
	provider.OjsVersion = "3.3.0.8"
	provider.TermsAccepted = true
	return provider
}

// MakeDeposit returns a new deposit for the provider.
func MakeDeposit(providerUuid string) *models.Deposit {
	deposit := models.NewDeposit(providerUuid, RandomUuid())
	deposit.Url = fmt.Sprintf("http://%s/deposit/%s.zip", fake.DomainName(), deposit.DepositUuid)
	deposit.ChecksumType = constants.AlgSha1
	deposit.ChecksumValue = fake.CharactersN(40)
	deposit.Volume = fmt.Sprintf("%d", rand.Intn(50)+1)
	deposit.Issue = fmt.Sprintf("%d", rand.Intn(12)+1)
	deposit.PubDate = RandomDateTime()
	deposit.PackageSize = int64(rand.Intn(500000) + 1000)
	return deposit
}

// MakeTermOfUse returns an unsaved term.
func MakeTermOfUse(weight int) *models.TermOfUse {
	return &models.TermOfUse{
		Weight:   weight,
		KeyCode:  "plugins.generic.pln.terms_of_use." + fake.Word(),
		LangCode: "en_US",
		Content:  fake.Sentence(),
	}
}

// TestConfig loads the test config and points every directory and
// the database into a temp directory that is removed when the test
// ends. NSQ publishing is turned off.
func TestConfig(t testing.TB) *models.Config {
	config, err := models.LoadConfigFile(TestConfigFile)
	if err != nil {
		t.Fatalf("Cannot load %s: %v", TestConfigFile, err)
	}
	dir := t.TempDir()
	config.LogDirectory = filepath.Join(dir, "logs")
	config.HarvestDirectory = filepath.Join(dir, "harvest")
	config.ProcessingDirectory = filepath.Join(dir, "processing")
	config.DatabaseFile = filepath.Join(dir, "pln.db")
	config.NsqdHttpAddress = ""
	if _, err = config.EnsureDirectories(); err != nil {
		t.Fatalf("Cannot create test directories: %v", err)
	}
	return config
}

// MakeContext returns a context over a fresh store, with logs
// discarded.
func MakeContext(t testing.TB) *context.Context {
	return MakeContextWithConfig(t, TestConfig(t))
}

// MakeContextWithConfig is MakeContext for a config the test has
// already adjusted.
func MakeContextWithConfig(t testing.TB, config *models.Config) *context.Context {
	_context, err := context.NewContextWithLoggers(config, logger.DiscardLogger("pln_test"), logger.DiscardJsonLogger())
	if err != nil {
		t.Fatalf("Cannot create context: %v", err)
	}
	t.Cleanup(_context.Close)
	return _context
}

// MemoryLogger returns a logger that keeps the last 1000 records in
// memory, so tests can check what was logged.
func MemoryLogger(module string) (*logging.Logger, *logging.MemoryBackend) {
	log := logging.MustGetLogger(module)
	backend := logging.NewMemoryBackend(1000)
	logging.SetBackend(backend)
	logging.SetLevel(logging.DEBUG, module)
	return log, backend
}

// LoggedMessages returns the messages held by a memory backend,
// oldest first.
func LoggedMessages(backend *logging.MemoryBackend) []string {
	messages := make([]string, 0)
	for node := backend.Head(); node != nil; node = node.Next() {
		messages = append(messages, node.Record.Message())
	}
	return messages
}
