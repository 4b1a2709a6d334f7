package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/util"
)

// Deposit is one content package sent by a provider. It moves
// through the processing stages described by StageDefinition,
// collecting a plain-text ProcessingLog along the way.
type Deposit struct {
	DepositUuid     string    `json:"deposit_uuid"`
	ProviderUuid    string    `json:"provider_uuid"`
	AuContainerId   uint64    `json:"au_container_id"`
	Action          string    `json:"action"`
	Url             string    `json:"url"`
	ChecksumType    string    `json:"checksum_type"`
	ChecksumValue   string    `json:"checksum_value"`
	State           string    `json:"state"`
	PlnState        string    `json:"pln_state"`
	PackageSize     int64     `json:"package_size"`
	PackagePath     string    `json:"package_path"`
	PackageChecksum string    `json:"package_checksum"`
	ArchiveKey      string    `json:"archive_key"`
	Volume          string    `json:"volume"`
	Issue           string    `json:"issue"`
	PubDate         time.Time `json:"pub_date"`
	DepositDate     time.Time `json:"deposit_date"`
	DepositReceipt  string    `json:"deposit_receipt"`
	HarvestAttempts int       `json:"harvest_attempts"`
	ProcessingLog   string    `json:"processing_log"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewDeposit returns a deposit in the initial processing state.
func NewDeposit(providerUuid, depositUuid string) *Deposit {
	now := time.Now().UTC()
	return &Deposit{
		DepositUuid:  util.NormalizeUuid(depositUuid),
		ProviderUuid: util.NormalizeUuid(providerUuid),
		Action:       constants.ActionAdd,
		State:        constants.StateDepositedByJournal,
		PlnState:     constants.PlnStateInProgress,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Copy returns a shallow copy of the deposit. All fields are
// values, so the copy shares nothing with the original.
func (deposit *Deposit) Copy() *Deposit {
	depositCopy := *deposit
	return &depositCopy
}

// AddToProcessingLog appends a line to the processing log. Blank
// messages are ignored.
func (deposit *Deposit) AddToProcessingLog(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	deposit.ProcessingLog += message
}

// IsDeposited returns true once the archive has confirmed the
// deposit.
func (deposit *Deposit) IsDeposited() bool {
	return !deposit.DepositDate.IsZero()
}

// MarkDeposited sets DepositDate. The date can only be set once.
func (deposit *Deposit) MarkDeposited(when time.Time) error {
	if deposit.IsDeposited() {
		return fmt.Errorf("Deposit %s was already marked deposited on %s",
			deposit.DepositUuid, deposit.DepositDate.Format(time.RFC3339))
	}
	deposit.DepositDate = when.UTC()
	return nil
}

// ReportedState is the processing state we show providers.
func (deposit *Deposit) ReportedState() string {
	if deposit.State == constants.StateComplete {
		return constants.ReportedDeposited
	}
	return deposit.State
}

// ReportedPlnState is the coarse preservation state we show providers.
func (deposit *Deposit) ReportedPlnState() string {
	switch {
	case util.StringListContains(constants.ErrorStates, deposit.State):
		return constants.PlnStateFailed
	case deposit.State == constants.StateSent:
		if deposit.PlnState == "" {
			return constants.PlnStateInProgress
		}
		return deposit.PlnState
	case deposit.State == constants.StateComplete:
		if deposit.PlnState == "" {
			return constants.PlnStateAgreement
		}
		return deposit.PlnState
	case util.StringListContains(constants.InProgressStates, deposit.State):
		return constants.PlnStateInProgress
	}
	return constants.PlnStateUnknown
}

// HasValidChecksum returns true if the deposit declares a checksum
// type and value for its package.
func (deposit *Deposit) HasValidChecksum() bool {
	return deposit.ChecksumType != "" && deposit.ChecksumValue != ""
}

// StagingKey is where the depositor uploads the deposit's package.
func (deposit *Deposit) StagingKey() string {
	return fmt.Sprintf("%d/%s/%s.tar", deposit.AuContainerId, deposit.ProviderUuid, deposit.DepositUuid)
}
