package models

import (
	"time"
)

// AuContainer groups deposits into an Archival Unit for the archive.
// A container starts open and is closed once it is full or sealed
// by an operator. It never reopens.
//
// DepositUuids is the persisted member list. The member deposits
// themselves are attached by the store when the container is
// loaded, so Size always reflects current package sizes.
type AuContainer struct {
	Id           uint64
	Sealed       bool
	DepositUuids []string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	deposits []*Deposit
}

func NewAuContainer() *AuContainer {
	now := time.Now().UTC()
	return &AuContainer{
		DepositUuids: make([]string, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
		deposits:     make([]*Deposit, 0),
	}
}

// IsOpen returns true if the container can accept deposits.
func (container *AuContainer) IsOpen() bool {
	return !container.Sealed
}

// SetOpen closes the container when open is false. Once closed,
// SetOpen(true) does nothing.
func (container *AuContainer) SetOpen(open bool) {
	if !open {
		container.Sealed = true
	}
}

// SetDeposits attaches the loaded member deposits.
func (container *AuContainer) SetDeposits(deposits []*Deposit) {
	container.deposits = deposits
}

// Deposits returns the attached member deposits.
func (container *AuContainer) Deposits() []*Deposit {
	return container.deposits
}

// AddDeposit adds a member and points the deposit at this container.
func (container *AuContainer) AddDeposit(deposit *Deposit) {
	container.deposits = append(container.deposits, deposit)
	container.DepositUuids = append(container.DepositUuids, deposit.DepositUuid)
	deposit.AuContainerId = container.Id
}

// RemoveDeposit removes a member. Returns false if the deposit
// was not in the container.
func (container *AuContainer) RemoveDeposit(depositUuid string) bool {
	found := false
	uuids := make([]string, 0, len(container.DepositUuids))
	for _, uuid := range container.DepositUuids {
		if uuid == depositUuid {
			found = true
			continue
		}
		uuids = append(uuids, uuid)
	}
	deposits := make([]*Deposit, 0, len(container.deposits))
	for _, deposit := range container.deposits {
		if deposit.DepositUuid == depositUuid {
			deposit.AuContainerId = 0
			continue
		}
		deposits = append(deposits, deposit)
	}
	container.DepositUuids = uuids
	container.deposits = deposits
	return found
}

// Size is the sum of the members' package sizes, in bytes.
func (container *AuContainer) Size() int64 {
	var size int64
	for _, deposit := range container.deposits {
		size += deposit.PackageSize
	}
	return size
}

func (container *AuContainer) CountDeposits() int {
	return len(container.DepositUuids)
}
