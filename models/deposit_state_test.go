package models_test

import (
	"fmt"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
)

var harvestStage = models.StageDefinition{
	Name:            constants.StageHarvest,
	ProcessingState: constants.StateDepositedByJournal,
	NextState:       constants.StateHarvested,
	ErrorState:      constants.StateHarvestError,
	SuccessMessage:  "Harvest succeeded.",
	FailureMessage:  "Harvest failed.",
}

func makeDeposit() *models.Deposit {
	deposit := models.NewDeposit("ABCD-1234", "DEP-1")
	deposit.AddToProcessingLog("Received deposit.")
	return deposit
}

func TestApplySuccess(t *testing.T) {
	deposit := makeDeposit()
	transition := harvestStage.Apply(deposit, models.Success())
	assert.Equal(t, constants.StateDepositedByJournal, deposit.State, "Apply must not modify the deposit")
	assert.Equal(t, constants.StateDepositedByJournal, transition.FromState)
	assert.Equal(t, constants.StateHarvested, transition.ToState)
	assert.Equal(t, "success", transition.Outcome)

	transition.ApplyTo(deposit)
	assert.Equal(t, constants.StateHarvested, deposit.State)
	assert.True(t, strings.HasSuffix(deposit.ProcessingLog, "Harvest succeeded.\n"))
	assert.Equal(t, 1, strings.Count(deposit.ProcessingLog, "Harvest succeeded."))
}

func TestApplyFailure(t *testing.T) {
	deposit := makeDeposit()
	harvestStage.Apply(deposit, models.Failure()).ApplyTo(deposit)
	assert.Equal(t, constants.StateHarvestError, deposit.State)
	assert.True(t, strings.HasSuffix(deposit.ProcessingLog, "Harvest failed.\n"))
}

func TestApplyNotReady(t *testing.T) {
	deposit := makeDeposit()
	logBefore := deposit.ProcessingLog
	transition := harvestStage.Apply(deposit, models.NotReady())
	assert.True(t, transition.IsNoop())
	transition.ApplyTo(deposit)
	assert.Equal(t, constants.StateDepositedByJournal, deposit.State)
	assert.Equal(t, logBefore, deposit.ProcessingLog)
}

func TestApplyHold(t *testing.T) {
	for _, state := range []string{constants.StateHeld, "some-other-state"} {
		deposit := makeDeposit()
		harvestStage.Apply(deposit, models.Hold(state)).ApplyTo(deposit)
		assert.Equal(t, state, deposit.State)
		assert.True(t, strings.HasSuffix(deposit.ProcessingLog, "Holding deposit.\n"))
	}
}

func TestApplyError(t *testing.T) {
	deposit := makeDeposit()
	transition := harvestStage.ApplyError(deposit, fmt.Errorf("connection refused"))
	assert.Equal(t, constants.StateHarvestError, transition.ToState)
	assert.Equal(t, "Harvest failed. connection refused", transition.Message)
}

func TestIsEligible(t *testing.T) {
	assert.True(t, harvestStage.IsEligible(constants.StateDepositedByJournal, false))
	assert.True(t, harvestStage.IsEligible(constants.StateDepositedByJournal, true))
	assert.False(t, harvestStage.IsEligible(constants.StateHarvestError, false))
	assert.True(t, harvestStage.IsEligible(constants.StateHarvestError, true))
	assert.False(t, harvestStage.IsEligible(constants.StateValidated, false))
	assert.False(t, harvestStage.IsEligible(constants.StateValidated, true))

	assert.Equal(t, []string{constants.StateDepositedByJournal}, harvestStage.SelectionStates(false))
	assert.Equal(t, []string{constants.StateDepositedByJournal, constants.StateHarvestError},
		harvestStage.SelectionStates(true))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", models.Success().String())
	assert.Equal(t, "failure", models.Failure().String())
	assert.Equal(t, "not-ready", models.NotReady().String())
	assert.Equal(t, "hold(held)", models.Hold(constants.StateHeld).String())
}

func TestPlnStateDescription(t *testing.T) {
	assert.NotEmpty(t, models.PlnStateDescription(constants.PlnStateAgreement))
	assert.NotEqual(t,
		models.PlnStateDescription(constants.PlnStateAgreement),
		models.PlnStateDescription(constants.PlnStateDisagreement))
	assert.Equal(t,
		models.PlnStateDescription(constants.PlnStateUnknown),
		models.PlnStateDescription("no-such-state"))
}
