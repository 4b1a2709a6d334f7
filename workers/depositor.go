package workers

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
)

// Uploader puts a package where the archive will collect it.
type Uploader interface {
	Upload(key string, reader io.Reader, metadata map[string]string) (string, error)
}

// Metadata keys stored with each staged package. The status
// checker compares the archive's copy against MetaChecksum.
const (
	MetaDepositUuid  = "Pln-Deposit-Uuid"
	MetaProviderUuid = "Pln-Provider-Uuid"
	MetaChecksum     = "Pln-Checksum-Sha256"
)

// Depositor uploads packaged deposits to the staging bucket. A
// deposit is not ready until the allocator has put it in an AU
// container, since the container id is part of the staging key.
type Depositor struct {
	Context  *context.Context
	Uploader Uploader
}

func NewDepositor(_context *context.Context) *Depositor {
	return &Depositor{
		Context: _context,
		Uploader: network.NewStagingUploader(_context.Config.StagingRegion,
			"", _context.Config.StagingBucket),
	}
}

func (depositor *Depositor) ProcessDeposit(deposit *models.Deposit) (models.Outcome, error) {
	if deposit.AuContainerId == 0 {
		return models.NotReady(), nil
	}
	file, err := os.Open(deposit.PackagePath)
	if err != nil {
		return models.Failure(), errors.Wrap(err, "Cannot open package")
	}
	defer file.Close()
	key := deposit.StagingKey()
	location, err := depositor.Uploader.Upload(key, file, map[string]string{
		MetaDepositUuid:  deposit.DepositUuid,
		MetaProviderUuid: deposit.ProviderUuid,
		MetaChecksum:     deposit.PackageChecksum,
	})
	if err != nil {
		return models.Failure(), err
	}
	deposit.ArchiveKey = key
	deposit.PlnState = constants.PlnStateInProgress
	depositor.Context.MessageLog.Info("Sent %s to %s", deposit.DepositUuid, location)
	return models.Success(), nil
}
