package models

import (
	"fmt"
	"time"

	"github.com/pkp/pln/constants"
)

// OutcomeKind says what a stage processor decided about a deposit.
type OutcomeKind int

const (
	// The deposit is not ready yet. Nothing changes.
	OutcomeNotReady OutcomeKind = iota
	OutcomeSuccess
	OutcomeFailure
	// The processor named the state the deposit should move to.
	OutcomeHold
)

// Outcome is the result of running one stage processor on one
// deposit. Use Success, Failure, NotReady or Hold to build one.
type Outcome struct {
	Kind      OutcomeKind
	HoldState string
}

func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

func Failure() Outcome {
	return Outcome{Kind: OutcomeFailure}
}

func NotReady() Outcome {
	return Outcome{Kind: OutcomeNotReady}
}

// Hold moves the deposit to an arbitrary state, usually
// constants.StateHeld.
func Hold(state string) Outcome {
	return Outcome{Kind: OutcomeHold, HoldState: state}
}

func (outcome Outcome) String() string {
	switch outcome.Kind {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeHold:
		return fmt.Sprintf("hold(%s)", outcome.HoldState)
	}
	return "not-ready"
}

// StageDefinition describes one processing stage as data: which
// deposits it picks up, where they go next, where they go when
// processing fails, and what to write in the processing log.
type StageDefinition struct {
	Name            string
	ProcessingState string
	NextState       string
	ErrorState      string
	SuccessMessage  string
	FailureMessage  string
}

// Transition is the change a stage outcome makes to a deposit.
// It is computed by StageDefinition.Apply and made real by
// Transition.ApplyTo, so a dry run can report a transition without
// touching the deposit.
type Transition struct {
	Stage       string    `json:"stage"`
	DepositUuid string    `json:"deposit_uuid"`
	Outcome     string    `json:"outcome"`
	FromState   string    `json:"from_state"`
	ToState     string    `json:"to_state"`
	Message     string    `json:"message"`
	DryRun      bool      `json:"dry_run"`
	At          time.Time `json:"at"`
}

// IsNoop returns true if the transition changes neither the state
// nor the log.
func (transition Transition) IsNoop() bool {
	return transition.FromState == transition.ToState && transition.Message == ""
}

// ApplyTo sets the deposit's state and appends the transition's
// message to its processing log. The two always happen together.
func (transition Transition) ApplyTo(deposit *Deposit) {
	if transition.IsNoop() {
		return
	}
	deposit.State = transition.ToState
	deposit.AddToProcessingLog(transition.Message)
	deposit.UpdatedAt = transition.At
}

// Apply computes the transition for deposit given outcome:
//
//   - Success moves to NextState and logs SuccessMessage.
//   - Failure moves to ErrorState and logs FailureMessage.
//   - NotReady changes nothing and logs nothing.
//   - Hold moves to the named state and logs "Holding deposit."
//
// The deposit itself is not modified.
func (stage StageDefinition) Apply(deposit *Deposit, outcome Outcome) Transition {
	transition := Transition{
		Stage:       stage.Name,
		DepositUuid: deposit.DepositUuid,
		Outcome:     outcome.String(),
		FromState:   deposit.State,
		ToState:     deposit.State,
		At:          time.Now().UTC(),
	}
	switch outcome.Kind {
	case OutcomeSuccess:
		transition.ToState = stage.NextState
		transition.Message = stage.SuccessMessage
	case OutcomeFailure:
		transition.ToState = stage.ErrorState
		transition.Message = stage.FailureMessage
	case OutcomeHold:
		transition.ToState = outcome.HoldState
		transition.Message = constants.HoldingMessage
	}
	return transition
}

// ApplyError computes the failure transition for a processor that
// returned an error or panicked. The log line carries the stage's
// failure message followed by the error text.
func (stage StageDefinition) ApplyError(deposit *Deposit, err error) Transition {
	transition := stage.Apply(deposit, Failure())
	transition.Message = fmt.Sprintf("%s %v", stage.FailureMessage, err)
	return transition
}

// IsEligible returns true if a deposit in state should be picked up
// by this stage. Deposits in the error state are only eligible on
// a retry.
func (stage StageDefinition) IsEligible(state string, retryFailed bool) bool {
	return state == stage.ProcessingState || (retryFailed && state == stage.ErrorState)
}

// SelectionStates returns the states a run of this stage selects from.
func (stage StageDefinition) SelectionStates(retryFailed bool) []string {
	if retryFailed {
		return []string{stage.ProcessingState, stage.ErrorState}
	}
	return []string{stage.ProcessingState}
}

var plnStateDescriptions = map[string]string{
	constants.PlnStateFailed:       "Processing this deposit failed. The network staff have been notified.",
	constants.PlnStateInProgress:   "The deposit is being processed by the network.",
	constants.PlnStateDisagreement: "The deposit has been sent to the archive, but the preserved copies do not agree yet.",
	constants.PlnStateAgreement:    "The deposit has been preserved and all copies agree.",
	constants.PlnStateUnknown:      "The state of this deposit is unknown.",
}

// PlnStateDescription returns the human-readable description of a
// reported preservation state.
func PlnStateDescription(plnState string) string {
	if description, ok := plnStateDescriptions[plnState]; ok {
		return description
	}
	return plnStateDescriptions[constants.PlnStateUnknown]
}
