package workers

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
)

// ArchiveStatter looks up an object in the archive.
type ArchiveStatter interface {
	Stat(key string) (*network.ArchiveObject, error)
}

// contextArchive connects to the archive on first use, so stages
// that never check status do not need archive credentials.
type contextArchive struct {
	context *context.Context
}

func (archive contextArchive) Stat(key string) (*network.ArchiveObject, error) {
	client, err := archive.context.ArchiveClient()
	if err != nil {
		return nil, err
	}
	return client.Stat(key)
}

// StatusChecker asks the archive whether it holds a sent deposit
// and whether its copy matches the package we sent.
type StatusChecker struct {
	Context *context.Context
	Archive ArchiveStatter
}

func NewStatusChecker(_context *context.Context) *StatusChecker {
	return &StatusChecker{
		Context: _context,
		Archive: contextArchive{context: _context},
	}
}

func (checker *StatusChecker) ProcessDeposit(deposit *models.Deposit) (models.Outcome, error) {
	if deposit.ArchiveKey == "" {
		return models.Failure(), fmt.Errorf("Deposit %s has no archive key", deposit.DepositUuid)
	}
	object, err := checker.Archive.Stat(deposit.ArchiveKey)
	if errors.Cause(err) == network.ErrArchiveObjectNotFound {
		return models.NotReady(), nil
	}
	if err != nil {
		return models.Failure(), err
	}
	if !checksumAgrees(object, deposit.PackageChecksum) {
		if deposit.PlnState != constants.PlnStateDisagreement {
			deposit.PlnState = constants.PlnStateDisagreement
			checker.Context.MessageLog.Warning("Archive copy of %s does not match the package sent",
				deposit.DepositUuid)
		}
		return models.NotReady(), nil
	}
	deposit.PlnState = constants.PlnStateAgreement
	if !deposit.IsDeposited() {
		if err = deposit.MarkDeposited(time.Now()); err != nil {
			return models.Failure(), err
		}
	}
	return models.Success(), nil
}

// checksumAgrees compares the checksum stored with the archive's
// copy to ours. Metadata keys are case-insensitive.
func checksumAgrees(object *network.ArchiveObject, checksum string) bool {
	for key, value := range object.Metadata {
		if strings.EqualFold(key, MetaChecksum) || strings.EqualFold(key, "X-Amz-Meta-"+MetaChecksum) {
			return strings.EqualFold(value, checksum)
		}
	}
	return false
}
