package workers_test

import (
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
	"github.com/pkp/pln/util/testutil"
	"github.com/pkp/pln/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	key      string
	body     string
	metadata map[string]string
	err      error
}

func (uploader *fakeUploader) Upload(key string, reader io.Reader, metadata map[string]string) (string, error) {
	if uploader.err != nil {
		return "", uploader.err
	}
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return "", err
	}
	uploader.key = key
	uploader.body = string(data)
	uploader.metadata = metadata
	return "https://staging.example.com/" + key, nil
}

func packagedDeposit(t *testing.T) *models.Deposit {
	deposit := testutil.MakeDeposit(testutil.RandomUuid())
	deposit.State = constants.StatePackaged
	deposit.PackagePath = filepath.Join(t.TempDir(), "package.tar")
	deposit.PackageChecksum = "abc123"
	require.Nil(t, ioutil.WriteFile(deposit.PackagePath, []byte("tar bytes"), 0644))
	return deposit
}

func TestDepositor(t *testing.T) {
	_context := testutil.MakeContext(t)
	uploader := &fakeUploader{}
	depositor := &workers.Depositor{Context: _context, Uploader: uploader}
	deposit := packagedDeposit(t)
	deposit.AuContainerId = 4

	outcome, err := depositor.ProcessDeposit(deposit)
	require.Nil(t, err)
	assert.Equal(t, models.Success(), outcome)
	assert.Equal(t, fmt.Sprintf("4/%s/%s.tar", deposit.ProviderUuid, deposit.DepositUuid), uploader.key)
	assert.Equal(t, "tar bytes", uploader.body)
	assert.Equal(t, "abc123", uploader.metadata[workers.MetaChecksum])
	assert.Equal(t, uploader.key, deposit.ArchiveKey)
	assert.Equal(t, constants.PlnStateInProgress, deposit.PlnState)
}

func TestDepositor_NeedsContainer(t *testing.T) {
	_context := testutil.MakeContext(t)
	uploader := &fakeUploader{}
	depositor := &workers.Depositor{Context: _context, Uploader: uploader}
	outcome, err := depositor.ProcessDeposit(packagedDeposit(t))
	require.Nil(t, err)
	assert.Equal(t, models.NotReady(), outcome)
	assert.Equal(t, "", uploader.key)
}

func TestDepositor_UploadError(t *testing.T) {
	_context := testutil.MakeContext(t)
	depositor := &workers.Depositor{Context: _context, Uploader: &fakeUploader{err: errors.New("503")}}
	deposit := packagedDeposit(t)
	deposit.AuContainerId = 1
	outcome, err := depositor.ProcessDeposit(deposit)
	assert.NotNil(t, err)
	assert.Equal(t, models.Failure(), outcome)
	assert.Equal(t, "", deposit.ArchiveKey)
}

type fakeArchive struct {
	objects map[string]*network.ArchiveObject
	err     error
}

func (archive *fakeArchive) Stat(key string) (*network.ArchiveObject, error) {
	if archive.err != nil {
		return nil, archive.err
	}
	object, ok := archive.objects[key]
	if !ok {
		return nil, errors.Wrapf(network.ErrArchiveObjectNotFound, "bucket/%s", key)
	}
	return object, nil
}

func sentDeposit() *models.Deposit {
	deposit := testutil.MakeDeposit(testutil.RandomUuid())
	deposit.State = constants.StateSent
	deposit.AuContainerId = 1
	deposit.ArchiveKey = deposit.StagingKey()
	deposit.PackageChecksum = "abc123"
	return deposit
}

func TestStatusChecker(t *testing.T) {
	_context := testutil.MakeContext(t)
	deposit := sentDeposit()
	archive := &fakeArchive{objects: map[string]*network.ArchiveObject{
		deposit.ArchiveKey: {Key: deposit.ArchiveKey, Metadata: map[string]string{
			"X-Amz-Meta-Pln-Checksum-Sha256": "ABC123",
		}},
	}}
	checker := &workers.StatusChecker{Context: _context, Archive: archive}
	outcome, err := checker.ProcessDeposit(deposit)
	require.Nil(t, err)
	assert.Equal(t, models.Success(), outcome)
	assert.Equal(t, constants.PlnStateAgreement, deposit.PlnState)
	assert.True(t, deposit.IsDeposited())
}

func TestStatusChecker_NotYetInArchive(t *testing.T) {
	_context := testutil.MakeContext(t)
	checker := &workers.StatusChecker{Context: _context, Archive: &fakeArchive{}}
	deposit := sentDeposit()
	outcome, err := checker.ProcessDeposit(deposit)
	require.Nil(t, err)
	assert.Equal(t, models.NotReady(), outcome)
	assert.False(t, deposit.IsDeposited())
}

func TestStatusChecker_Disagreement(t *testing.T) {
	_context := testutil.MakeContext(t)
	log, backend := testutil.MemoryLogger("status_checker_test")
	_context.MessageLog = log
	deposit := sentDeposit()
	archive := &fakeArchive{objects: map[string]*network.ArchiveObject{
		deposit.ArchiveKey: {Key: deposit.ArchiveKey, Metadata: map[string]string{
			"Pln-Checksum-Sha256": "def456",
		}},
	}}
	checker := &workers.StatusChecker{Context: _context, Archive: archive}
	outcome, err := checker.ProcessDeposit(deposit)
	require.Nil(t, err)
	assert.Equal(t, models.NotReady(), outcome)
	assert.Equal(t, constants.PlnStateDisagreement, deposit.PlnState)
	assert.Equal(t, "", deposit.ProcessingLog)
	messages := testutil.LoggedMessages(backend)
	require.Equal(t, 1, len(messages))
	assert.Contains(t, messages[0], "does not match the package sent")

	// Warned once.
	_, err = checker.ProcessDeposit(deposit)
	require.Nil(t, err)
	assert.Equal(t, "", deposit.ProcessingLog)
	assert.Equal(t, 1, len(testutil.LoggedMessages(backend)))
}

func TestStatusChecker_ArchiveError(t *testing.T) {
	_context := testutil.MakeContext(t)
	checker := &workers.StatusChecker{Context: _context, Archive: &fakeArchive{err: errors.New("timeout")}}
	outcome, err := checker.ProcessDeposit(sentDeposit())
	assert.NotNil(t, err)
	assert.Equal(t, models.Failure(), outcome)
}
