package testutil

import (
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
)

// NSQTestDelegate captures what a stage message handler does with
// an NSQ message. It implements nsq.MessageDelegate:
// https://github.com/nsqio/go-nsq/blob/master/delegates.go#L35
type NSQTestDelegate struct {
	Message    *nsq.Message
	Delay      time.Duration
	Backoff    bool
	Operation  string
	Operations []string
	mutex      sync.Mutex
}

// NewNSQTestDelegate returns a pointer to a new NSQTestDelegate.
func NewNSQTestDelegate() *NSQTestDelegate {
	return &NSQTestDelegate{Operations: make([]string, 0)}
}

// NewTestMessage returns an NSQ message with body that reports
// finish, requeue and touch calls to delegate.
func NewTestMessage(body string, delegate *NSQTestDelegate) *nsq.Message {
	var id nsq.MessageID
	copy(id[:], "test-message-id-")
	message := nsq.NewMessage(id, []byte(body))
	message.Delegate = delegate
	return message
}

func (delegate *NSQTestDelegate) record(message *nsq.Message, operation string) {
	delegate.mutex.Lock()
	defer delegate.mutex.Unlock()
	delegate.Message = message
	delegate.Operation = operation
	delegate.Operations = append(delegate.Operations, operation)
}

// OnFinish receives the Finish() call from an NSQ message.
func (delegate *NSQTestDelegate) OnFinish(message *nsq.Message) {
	delegate.record(message, "finish")
}

// OnRequeue receives the Requeue() call from an NSQ message.
func (delegate *NSQTestDelegate) OnRequeue(message *nsq.Message, delay time.Duration, backoff bool) {
	delegate.mutex.Lock()
	delegate.Delay = delay
	delegate.Backoff = backoff
	delegate.mutex.Unlock()
	delegate.record(message, "requeue")
}

// OnTouch receives the Touch() call from an NSQ message.
func (delegate *NSQTestDelegate) OnTouch(message *nsq.Message) {
	delegate.record(message, "touch")
}
