package workers

import (
	"strings"

	"github.com/nsqio/go-nsq"
	"github.com/pkg/errors"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util"
)

// StageMessageHandler runs a stage's pipeline for the deposit named
// in each NSQ message. The message body is the deposit uuid.
type StageMessageHandler struct {
	Pipeline *Pipeline
}

func NewStageMessageHandler(pipeline *Pipeline) *StageMessageHandler {
	return &StageMessageHandler{Pipeline: pipeline}
}

// HandleMessage processes one deposit. A message whose deposit is
// not waiting for this stage is finished without doing anything.
// A harness fault requeues the message.
func (handler *StageMessageHandler) HandleMessage(message *nsq.Message) error {
	message.DisableAutoResponse()
	log := handler.Pipeline.Context.MessageLog
	depositUuid := strings.TrimSpace(string(message.Body))
	if !util.LooksLikeUUID(depositUuid) {
		log.Error("Ignoring NSQ message with body '%s': not a deposit uuid", depositUuid)
		message.Finish()
		return nil
	}
	runStats, err := handler.Pipeline.Run(false, []string{depositUuid}, false)
	if err != nil {
		log.Error("Requeueing %s: %v", depositUuid, err)
		message.Requeue(-1)
		return err
	}
	if runStats.Selected == 0 {
		log.Info("%s: deposit %s is not waiting for this stage", handler.Pipeline.Stage.Name, depositUuid)
	}
	message.Finish()
	return nil
}

// NsqConfig translates a stage's worker settings into go-nsq
// settings.
func NsqConfig(workerConfig *models.WorkerConfig) (*nsq.Config, error) {
	nsqConfig := nsq.NewConfig()
	settings := map[string]interface{}{
		"max_in_flight":      workerConfig.MaxInFlight,
		"heartbeat_interval": workerConfig.HeartbeatInterval,
		"max_attempts":       workerConfig.MaxAttempts,
		"read_timeout":       workerConfig.ReadTimeout,
		"write_timeout":      workerConfig.WriteTimeout,
		"msg_timeout":        workerConfig.MessageTimeout,
	}
	for option, value := range settings {
		if err := nsqConfig.Set(option, value); err != nil {
			return nil, errors.Wrapf(err, "Bad NSQ setting %s for topic %s", option, workerConfig.NsqTopic)
		}
	}
	return nsqConfig, nil
}

// NewStageConsumer returns an NSQ consumer that feeds the stage's
// topic to pipeline. The caller connects it.
func NewStageConsumer(pipeline *Pipeline) (*nsq.Consumer, error) {
	workerConfig, err := pipeline.Context.Config.WorkerConfigFor(pipeline.Stage.Name)
	if err != nil {
		return nil, err
	}
	nsqConfig, err := NsqConfig(&workerConfig)
	if err != nil {
		return nil, err
	}
	consumer, err := nsq.NewConsumer(workerConfig.NsqTopic, workerConfig.NsqChannel, nsqConfig)
	if err != nil {
		return nil, err
	}
	consumer.AddHandler(NewStageMessageHandler(pipeline))
	return consumer, nil
}
