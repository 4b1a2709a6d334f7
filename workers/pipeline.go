package workers

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/stats"
	"github.com/pkp/pln/util"
	"github.com/pkp/pln/util/storage"
	"golang.org/x/sync/errgroup"
)

// Processor does the work of one stage for one deposit. It receives
// a private copy of the deposit and may change any field but State;
// the pipeline sets the state from the returned outcome. A returned
// error is recorded as a failure of that deposit.
type Processor interface {
	ProcessDeposit(deposit *models.Deposit) (models.Outcome, error)
}

// ProcessorFunc lets an ordinary function serve as a Processor.
type ProcessorFunc func(deposit *models.Deposit) (models.Outcome, error)

func (fn ProcessorFunc) ProcessDeposit(deposit *models.Deposit) (models.Outcome, error) {
	return fn(deposit)
}

// HarnessError is a fault in the pipeline itself, as opposed to a
// fault processing one deposit. It stops the run.
type HarnessError struct {
	Stage string
	Err   error
}

func (err *HarnessError) Error() string {
	return fmt.Sprintf("%s pipeline: %v", err.Stage, err.Err)
}

// Cause lets errors.Cause see the underlying error.
func (err *HarnessError) Cause() error {
	return err.Err
}

// Pipeline runs one processing stage over the deposits waiting for
// it. Each deposit is processed on a copy. The transition and the
// processor's changes are then written in one transaction, and only
// if nobody else changed the deposit in the meantime.
type Pipeline struct {
	Context   *context.Context
	Stage     models.StageDefinition
	Processor Processor
	// NextTopic is the NSQ topic told about deposits that move
	// forward. Empty for the last stage.
	NextTopic string
	// Workers is the number of deposits processed at once.
	Workers int
}

func NewPipeline(_context *context.Context, stage models.StageDefinition, processor Processor) *Pipeline {
	pipeline := &Pipeline{
		Context:   _context,
		Stage:     stage,
		Processor: processor,
		Workers:   1,
	}
	if workerConfig, err := _context.Config.WorkerConfigFor(stage.Name); err == nil && workerConfig.Workers > 1 {
		pipeline.Workers = workerConfig.Workers
	}
	return pipeline
}

// Run processes every deposit waiting for this stage. With
// retryFailed, deposits in the stage's error state are tried again.
// If ids is not empty, only those deposits are considered, and only
// if they are in a selectable state. A dry run computes and reports
// each transition but writes nothing.
//
// Problems with individual deposits are recorded in the returned
// stats. The error is non-nil only for a HarnessError.
func (pipeline *Pipeline) Run(retryFailed bool, ids []string, dryRun bool) (*stats.PipelineStats, error) {
	started := time.Now()
	runStats := stats.NewPipelineStats(pipeline.Stage.Name, dryRun)
	log := pipeline.Context.MessageLog
	defer func() {
		pipeline.Context.Collector.RecordStageDuration(pipeline.Stage.Name, time.Since(started))
	}()

	if !dryRun {
		lock, err := pipeline.Context.Store.AcquireStageLock(pipeline.Stage.Name,
			pipeline.Context.Config.StageLockTimeoutDuration())
		if err != nil {
			return runStats, pipeline.harnessError(runStats, err)
		}
		defer func() {
			if err := pipeline.Context.Store.ReleaseStageLock(lock); err != nil {
				log.Warning("Cannot release %s lock: %v", pipeline.Stage.Name, err)
			}
		}()
	}

	deposits, err := pipeline.selectDeposits(retryFailed, ids)
	if err != nil {
		return runStats, pipeline.harnessError(runStats, err)
	}
	runStats.SetSelected(len(deposits))
	log.Info("%s: %d deposits selected (retry %t, dry run %t)",
		pipeline.Stage.Name, len(deposits), retryFailed, dryRun)

	// A failed commit cancels groupCtx; deposits not yet started are
	// left alone.
	group, groupCtx := errgroup.WithContext(stdcontext.Background())
	group.SetLimit(pipeline.workers())
	for _, deposit := range deposits {
		if groupCtx.Err() != nil {
			break
		}
		deposit := deposit
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			return pipeline.processOne(deposit, dryRun, runStats)
		})
	}
	if err = group.Wait(); err != nil {
		return runStats, pipeline.harnessError(runStats, err)
	}
	log.Info(runStats.Summary())
	return runStats, nil
}

func (pipeline *Pipeline) workers() int {
	if pipeline.Workers < 1 {
		return 1
	}
	return pipeline.Workers
}

func (pipeline *Pipeline) harnessError(runStats *stats.PipelineStats, err error) error {
	harnessErr := &HarnessError{Stage: pipeline.Stage.Name, Err: err}
	runStats.AddError(harnessErr.Error())
	pipeline.Context.Collector.RecordPipelineError(pipeline.Stage.Name)
	pipeline.Context.MessageLog.Error(harnessErr.Error())
	return harnessErr
}

func (pipeline *Pipeline) selectDeposits(retryFailed bool, ids []string) ([]*models.Deposit, error) {
	deposits, err := pipeline.Context.Store.DepositsInStates(pipeline.Stage.SelectionStates(retryFailed)...)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot list deposits")
	}
	if len(ids) == 0 {
		return deposits, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[util.NormalizeUuid(id)] = true
	}
	selected := make([]*models.Deposit, 0, len(ids))
	for _, deposit := range deposits {
		if wanted[deposit.DepositUuid] {
			selected = append(selected, deposit)
		}
	}
	return selected, nil
}

// processOne runs the processor on a copy of original and commits
// the result. Only a failed commit is returned as an error.
func (pipeline *Pipeline) processOne(original *models.Deposit, dryRun bool, runStats *stats.PipelineStats) error {
	log := pipeline.Context.MessageLog
	working := original.Copy()
	outcome, err := pipeline.runProcessor(working)
	var transition models.Transition
	if err != nil {
		transition = pipeline.Stage.ApplyError(working, err)
		runStats.AddError(fmt.Sprintf("%s: %v", original.DepositUuid, err))
		pipeline.Context.Collector.RecordPipelineError(pipeline.Stage.Name)
		log.Error("%s %s: %v", pipeline.Stage.Name, original.DepositUuid, err)
	} else {
		transition = pipeline.Stage.Apply(working, outcome)
	}
	transition.DryRun = dryRun

	if dryRun {
		runStats.AddTransition(transition)
		pipeline.logTransition(transition)
		return nil
	}

	transition.ApplyTo(working)
	if *working == *original {
		runStats.AddTransition(transition)
		return nil
	}
	working.UpdatedAt = time.Now().UTC()
	err = pipeline.Context.Store.CompareAndSwapDeposit(original, working)
	switch errors.Cause(err) {
	case nil:
	case storage.ErrStateChanged, storage.ErrNotFound:
		message := fmt.Sprintf("Skipped %s: %v", original.DepositUuid, err)
		runStats.AddSkipped(message)
		log.Warning(message)
		return nil
	default:
		return errors.Wrapf(err, "Cannot save deposit %s", original.DepositUuid)
	}

	runStats.AddTransition(transition)
	pipeline.Context.Collector.RecordTransition(pipeline.Stage.Name, transition.Outcome)
	pipeline.logTransition(transition)
	if transition.ToState == pipeline.Stage.NextState && transition.FromState != transition.ToState {
		pipeline.Context.IncrementSucceeded()
		pipeline.announce(working, runStats)
	} else if transition.ToState == pipeline.Stage.ErrorState {
		pipeline.Context.IncrementFailed()
	}
	return nil
}

// runProcessor turns a panic in the processor into an error for
// that deposit.
func (pipeline *Pipeline) runProcessor(deposit *models.Deposit) (outcome models.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			pipeline.Context.MessageLog.Error("Panic processing %s: %v\n%s",
				deposit.DepositUuid, r, debug.Stack())
			outcome = models.Failure()
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return pipeline.Processor.ProcessDeposit(deposit)
}

func (pipeline *Pipeline) logTransition(transition models.Transition) {
	if transition.IsNoop() {
		pipeline.Context.MessageLog.Debug("%s %s: not ready", transition.Stage, transition.DepositUuid)
		return
	}
	pipeline.Context.MessageLog.Info("%s %s: %s -> %s (%s, dry run %t)", transition.Stage,
		transition.DepositUuid, transition.FromState, transition.ToState,
		transition.Outcome, transition.DryRun)
	data, err := json.Marshal(transition)
	if err != nil {
		pipeline.Context.MessageLog.Error("Cannot serialize transition for %s: %v", transition.DepositUuid, err)
		return
	}
	pipeline.Context.JsonLog.Println(string(data))
}

// announce tells the next stage's consumers about the deposit.
// Failure to publish is only a warning.
func (pipeline *Pipeline) announce(deposit *models.Deposit, runStats *stats.PipelineStats) {
	if pipeline.Context.NSQClient == nil || pipeline.NextTopic == "" {
		return
	}
	if err := pipeline.Context.NSQClient.Enqueue(pipeline.NextTopic, deposit.DepositUuid); err != nil {
		message := fmt.Sprintf("Cannot publish %s to %s: %v", deposit.DepositUuid, pipeline.NextTopic, err)
		runStats.AddWarning(message)
		pipeline.Context.MessageLog.Warning(message)
	}
}
