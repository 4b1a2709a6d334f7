package workers

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/stats"
	"github.com/pkp/pln/util/storage"
)

// AllocateStage names allocator runs in stats and metrics.
const AllocateStage = "allocate"

// errDryRun rolls back a dry-run allocation.
var errDryRun = errors.New("dry run")

// AuContainerAllocator assigns validated and packaged deposits to
// AU containers. Containers fill up to Config.MaxAuSize and are
// then closed. A closed container never takes another deposit.
type AuContainerAllocator struct {
	Context *context.Context
	mutex   sync.Mutex
}

func NewAuContainerAllocator(_context *context.Context) *AuContainerAllocator {
	return &AuContainerAllocator{Context: _context}
}

// Run assigns every unassigned deposit in the validated or packaged
// state. Each assignment is its own transaction. A dry run performs
// each assignment and rolls it back.
func (allocator *AuContainerAllocator) Run(dryRun bool) (*stats.PipelineStats, error) {
	allocator.mutex.Lock()
	defer allocator.mutex.Unlock()
	started := time.Now()
	runStats := stats.NewPipelineStats(AllocateStage, dryRun)
	defer func() {
		allocator.Context.Collector.RecordStageDuration(AllocateStage, time.Since(started))
	}()

	deposits, err := allocator.Context.Store.DepositsInStates(constants.StateValidated, constants.StatePackaged)
	if err != nil {
		runStats.AddError(err.Error())
		return runStats, &HarnessError{Stage: AllocateStage, Err: err}
	}
	unassigned := make([]*models.Deposit, 0, len(deposits))
	for _, deposit := range deposits {
		if deposit.AuContainerId == 0 {
			unassigned = append(unassigned, deposit)
		}
	}
	runStats.SetSelected(len(unassigned))

	for _, deposit := range unassigned {
		transition, err := allocator.assign(deposit.DepositUuid, dryRun)
		if errors.Cause(err) == storage.ErrStateChanged {
			runStats.AddSkipped(fmt.Sprintf("Skipped %s: %v", deposit.DepositUuid, err))
			continue
		}
		if err != nil {
			runStats.AddError(err.Error())
			return runStats, &HarnessError{Stage: AllocateStage, Err: err}
		}
		runStats.AddTransition(transition)
		allocator.Context.MessageLog.Info(transition.Message)
	}
	allocator.updateGauge()
	allocator.Context.MessageLog.Info(runStats.Summary())
	return runStats, nil
}

// assign puts one deposit into the newest open container, opening
// a new one when the deposit would push a non-empty container past
// the size limit.
func (allocator *AuContainerAllocator) assign(depositUuid string, dryRun bool) (models.Transition, error) {
	maxSize := allocator.Context.Config.MaxAuSize
	var transition models.Transition
	err := allocator.Context.Store.Update(func(tx *storage.Tx) error {
		deposit, err := tx.Deposit(depositUuid)
		if err != nil {
			return err
		}
		if deposit == nil || deposit.AuContainerId != 0 {
			return errors.Wrapf(storage.ErrStateChanged, "deposit %s was assigned or removed", depositUuid)
		}
		container, err := tx.NewestOpenContainer()
		if err != nil {
			return err
		}
		if container == nil {
			container = models.NewAuContainer()
			if err = tx.PutContainer(container); err != nil {
				return err
			}
		}
		if container.CountDeposits() > 0 && container.Size()+deposit.PackageSize > maxSize {
			container.SetOpen(false)
			if err = tx.PutContainer(container); err != nil {
				return err
			}
			container = models.NewAuContainer()
			if err = tx.PutContainer(container); err != nil {
				return err
			}
		}
		container.AddDeposit(deposit)
		if container.Size() >= maxSize {
			container.SetOpen(false)
		}
		if err = tx.PutDeposit(deposit); err != nil {
			return err
		}
		if err = tx.PutContainer(container); err != nil {
			return err
		}
		transition = models.Transition{
			Stage:       AllocateStage,
			DepositUuid: deposit.DepositUuid,
			Outcome:     models.Success().String(),
			FromState:   deposit.State,
			ToState:     deposit.State,
			Message:     fmt.Sprintf("Deposit %s assigned to AU container %d.", deposit.DepositUuid, container.Id),
			DryRun:      dryRun,
			At:          time.Now().UTC(),
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err == errDryRun {
		err = nil
	}
	return transition, err
}

// Seal closes a container so it takes no more deposits.
func (allocator *AuContainerAllocator) Seal(id uint64) (*models.AuContainer, error) {
	allocator.mutex.Lock()
	defer allocator.mutex.Unlock()
	container, err := allocator.Context.Store.SealContainer(id)
	if err != nil {
		return nil, err
	}
	allocator.Context.MessageLog.Info("Sealed AU container %d with %d deposits, %d bytes",
		container.Id, container.CountDeposits(), container.Size())
	allocator.updateGauge()
	return container, nil
}

func (allocator *AuContainerAllocator) updateGauge() {
	var size int64
	err := allocator.Context.Store.View(func(tx *storage.Tx) error {
		container, err := tx.NewestOpenContainer()
		if container != nil {
			size = container.Size()
		}
		return err
	})
	if err == nil {
		allocator.Context.Collector.SetOpenContainerSize(size)
	}
}
