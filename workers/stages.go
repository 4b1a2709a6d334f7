package workers

import (
	"fmt"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/validation"
)

var stageDefinitions = []models.StageDefinition{
	{
		Name:            constants.StageHarvest,
		ProcessingState: constants.StateDepositedByJournal,
		NextState:       constants.StateHarvested,
		ErrorState:      constants.StateHarvestError,
		SuccessMessage:  "Deposit harvest succeeded.",
		FailureMessage:  "Deposit harvest failed.",
	},
	{
		Name:            constants.StageValidate,
		ProcessingState: constants.StateHarvested,
		NextState:       constants.StateValidated,
		ErrorState:      constants.StateValidateError,
		SuccessMessage:  "Deposit validation succeeded.",
		FailureMessage:  "Deposit validation failed.",
	},
	{
		Name:            constants.StagePackage,
		ProcessingState: constants.StateValidated,
		NextState:       constants.StatePackaged,
		ErrorState:      constants.StatePackageError,
		SuccessMessage:  "Deposit packaging succeeded.",
		FailureMessage:  "Deposit packaging failed.",
	},
	{
		Name:            constants.StageDeposit,
		ProcessingState: constants.StatePackaged,
		NextState:       constants.StateSent,
		ErrorState:      constants.StateDepositError,
		SuccessMessage:  "Deposit sent to the archive.",
		FailureMessage:  "Sending deposit to the archive failed.",
	},
	{
		Name:            constants.StageStatus,
		ProcessingState: constants.StateSent,
		NextState:       constants.StateComplete,
		ErrorState:      constants.StateStatusError,
		SuccessMessage:  "Deposit preserved by the archive.",
		FailureMessage:  "Deposit status check failed.",
	},
}

// StageDefinitions returns the five processing stages in order.
func StageDefinitions() []models.StageDefinition {
	definitions := make([]models.StageDefinition, len(stageDefinitions))
	copy(definitions, stageDefinitions)
	return definitions
}

// StageDefinitionFor returns the named stage.
func StageDefinitionFor(name string) (models.StageDefinition, error) {
	for _, definition := range stageDefinitions {
		if definition.Name == name {
			return definition, nil
		}
	}
	return models.StageDefinition{}, fmt.Errorf("Unknown stage: %s", name)
}

// NewProcessor returns the processor for the named stage.
func NewProcessor(_context *context.Context, name string) (Processor, error) {
	switch name {
	case constants.StageHarvest:
		return NewHarvester(_context), nil
	case constants.StageValidate:
		return validation.NewXmlValidator(_context.Config, _context.MessageLog), nil
	case constants.StagePackage:
		return NewPackager(_context), nil
	case constants.StageDeposit:
		return NewDepositor(_context), nil
	case constants.StageStatus:
		return NewStatusChecker(_context), nil
	}
	return nil, fmt.Errorf("Unknown stage: %s", name)
}

// NewStagePipeline returns the pipeline for the named stage, with
// its processor and the topic of the stage that follows it.
func NewStagePipeline(_context *context.Context, name string) (*Pipeline, error) {
	definition, err := StageDefinitionFor(name)
	if err != nil {
		return nil, err
	}
	processor, err := NewProcessor(_context, name)
	if err != nil {
		return nil, err
	}
	pipeline := NewPipeline(_context, definition, processor)
	pipeline.NextTopic = nextTopic(_context.Config, name)
	return pipeline, nil
}

// Stages returns the pipelines for all five stages, in order.
func Stages(_context *context.Context) ([]*Pipeline, error) {
	pipelines := make([]*Pipeline, 0, len(stageDefinitions))
	for _, definition := range stageDefinitions {
		pipeline, err := NewStagePipeline(_context, definition.Name)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, pipeline)
	}
	return pipelines, nil
}

func nextTopic(config *models.Config, name string) string {
	for i, stage := range constants.Stages {
		if stage == name && i+1 < len(constants.Stages) {
			workerConfig, err := config.WorkerConfigFor(constants.Stages[i+1])
			if err == nil {
				return workerConfig.NsqTopic
			}
		}
	}
	return ""
}
